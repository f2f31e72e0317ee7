package authkit

import (
	"io"
	"time"

	"github.com/MrEthical07/authkit/internal/audit"
)

// Audit types re-exported from internal/audit so integrations only import
// the root package.
type (
	// AuditEvent is an alias of [audit.Event].
	AuditEvent = audit.Event
	// AuditSink is an alias of [audit.Sink].
	AuditSink = audit.Sink
	// NoOpSink is an alias of [audit.NoOpSink].
	NoOpSink = audit.NoOpSink
	// ChannelSink is an alias of [audit.ChannelSink].
	ChannelSink = audit.ChannelSink
	// JSONWriterSink is an alias of [audit.JSONWriterSink].
	JSONWriterSink = audit.JSONWriterSink
)

// NewChannelSink returns a sink that writes events into a buffered channel.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event types emitted by the engine.
const (
	AuditLogin        = "login"
	AuditLoginLocked  = "login_locked"
	AuditTokenRefresh = "token_refresh"
	AuditTokenRevoke  = "token_revoke"
	AuditCodeGrant    = "code_grant"
	AuditCodeExchange = "code_exchange"
	AuditClientGrant  = "client_credentials_grant"
	AuditDeviceGrant  = "device_grant"
	AuditDeviceRedeem = "device_redeem"
	AuditLogout       = "logout"
	AuditLogoutAll    = "logout_all"
	AuditResetRequest = "password_reset_request"
	AuditResetRedeem  = "password_reset_redeem"
)

func newAuditEvent(eventType, identityID string, success bool) AuditEvent {
	return AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		IdentityID: identityID,
		Success:    success,
	}
}
