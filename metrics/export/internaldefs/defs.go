package internaldefs

import (
	authkit "github.com/MrEthical07/authkit"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// CounterDefs maps every engine counter to a stable exported name. The
// Prometheus and OTel exporters both render from this table so the two
// surfaces never drift.
var CounterDefs = []CounterDef{
	{ID: authkit.MetricLoginSuccess, Name: "authkit_login_success_total", Help: "Successful password logins."},
	{ID: authkit.MetricLoginFailure, Name: "authkit_login_failure_total", Help: "Failed password logins."},
	{ID: authkit.MetricLoginLocked, Name: "authkit_login_locked_total", Help: "Logins rejected by lockout."},
	{ID: authkit.MetricLoginSuspended, Name: "authkit_login_suspended_total", Help: "Logins rejected for suspended identities."},
	{ID: authkit.MetricMFAGate, Name: "authkit_mfa_gate_total", Help: "Logins stopped at the MFA gate."},
	{ID: authkit.MetricTokenIssued, Name: "authkit_token_issued_total", Help: "Issued token pairs."},
	{ID: authkit.MetricTokenValidated, Name: "authkit_token_validated_total", Help: "Access tokens that validated."},
	{ID: authkit.MetricTokenRejected, Name: "authkit_token_rejected_total", Help: "Access tokens that failed validation."},
	{ID: authkit.MetricTokenRevoked, Name: "authkit_token_revoked_total", Help: "Explicit token revocations."},
	{ID: authkit.MetricRefreshSuccess, Name: "authkit_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authkit.MetricRefreshReplay, Name: "authkit_refresh_replay_total", Help: "Detected refresh token replays."},
	{ID: authkit.MetricCodeGranted, Name: "authkit_code_granted_total", Help: "Minted authorization codes."},
	{ID: authkit.MetricCodeExchanged, Name: "authkit_code_exchanged_total", Help: "Redeemed authorization codes."},
	{ID: authkit.MetricCodeReplay, Name: "authkit_code_replay_total", Help: "Detected authorization code replays."},
	{ID: authkit.MetricPKCEFailure, Name: "authkit_pkce_failure_total", Help: "PKCE verifier mismatches."},
	{ID: authkit.MetricClientCredentials, Name: "authkit_client_credentials_total", Help: "Client credentials grants."},
	{ID: authkit.MetricDeviceGrantStarted, Name: "authkit_device_grant_started_total", Help: "Started device authorization grants."},
	{ID: authkit.MetricDeviceGrantCompleted, Name: "authkit_device_grant_completed_total", Help: "Redeemed device authorization grants."},
	{ID: authkit.MetricDevicePollPending, Name: "authkit_device_poll_pending_total", Help: "Device polls answered pending."},
	{ID: authkit.MetricDevicePollSlowDown, Name: "authkit_device_poll_slow_down_total", Help: "Device polls answered slow down."},
	{ID: authkit.MetricDeviceGrantExpired, Name: "authkit_device_grant_expired_total", Help: "Device grants that expired unredeemed."},
	{ID: authkit.MetricRateLimitHit, Name: "authkit_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: authkit.MetricAuditDropped, Name: "authkit_audit_dropped_total", Help: "Audit events discarded by a full buffer."},
}

// HistogramDefs maps engine latency histograms to exported names.
var HistogramDefs = []HistogramDef{
	{ID: authkit.MetricValidateLatency, Name: "authkit_validate_latency_seconds", Help: "Access token validation latency."},
}

// HistogramBounds are the upper bucket bounds in seconds, matching the
// engine's fixed histogram layout.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix holds the same bounds in a form safe for metric
// name suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets fits a snapshot slice into the fixed bucket layout,
// zero-filling when the snapshot is short.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
