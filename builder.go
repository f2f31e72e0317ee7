package authkit

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/authkit/authz"
	"github.com/MrEthical07/authkit/internal/audit"
	"github.com/MrEthical07/authkit/keyring"
	"github.com/MrEthical07/authkit/password"
	"github.com/MrEthical07/authkit/token"
)

// Builder assembles an [Engine] from stores and configuration. A Builder
// is single-use: Build consumes it.
type Builder struct {
	config Config

	ring        *keyring.Ring
	identities  IdentityStore
	credentials CredentialStore
	tokens      TokenStore
	clients     OAuthClientStore
	codes       AuthorizationCodeStore
	devices     DeviceCodeStore
	resets      ResetStore
	hasher      PasswordHasher
	auditSink   AuditSink

	built bool
}

// New starts a builder with default configuration.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithKeyring supplies a pre-built ring, overriding key configuration.
func (b *Builder) WithKeyring(ring *keyring.Ring) *Builder {
	b.ring = ring
	return b
}

// WithIdentityStore wires the principal lookup store. Required for login.
func (b *Builder) WithIdentityStore(s IdentityStore) *Builder {
	b.identities = s
	return b
}

// WithCredentialStore wires the credential store. Required for login.
func (b *Builder) WithCredentialStore(s CredentialStore) *Builder {
	b.credentials = s
	return b
}

// WithTokenStore wires refresh token and revocation persistence. Required.
func (b *Builder) WithTokenStore(s TokenStore) *Builder {
	b.tokens = s
	return b
}

// WithClientStore wires OAuth2 client registrations. The grant flows are
// only available when client, code, and device stores are all present.
func (b *Builder) WithClientStore(s OAuthClientStore) *Builder {
	b.clients = s
	return b
}

// WithCodeStore wires authorization code persistence.
func (b *Builder) WithCodeStore(s AuthorizationCodeStore) *Builder {
	b.codes = s
	return b
}

// WithDeviceStore wires device code persistence.
func (b *Builder) WithDeviceStore(s DeviceCodeStore) *Builder {
	b.devices = s
	return b
}

// WithResetStore wires password reset grant persistence. Optional; the
// reset flow is unavailable without it.
func (b *Builder) WithResetStore(s ResetStore) *Builder {
	b.resets = s
	return b
}

// WithPasswordHasher replaces the default argon2id hasher.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithAuditSink enables audit dispatch into the given sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the metrics collector.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, assembles the collaborators, and
// returns a ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if b.tokens == nil {
		return nil, errors.New("token store is required")
	}

	ring := b.ring
	if ring == nil {
		var err error
		ring, err = buildRing(b.config.Keys)
		if err != nil {
			return nil, fmt.Errorf("keyring: %w", err)
		}
	}

	hasher := b.hasher
	if hasher == nil {
		var err error
		hasher, err = password.NewHasher(b.config.Password)
		if err != nil {
			return nil, fmt.Errorf("password hasher: %w", err)
		}
	}

	tokens, err := token.NewManager(ring, b.tokens, token.Config{
		Issuer:     b.config.Token.Issuer,
		Audience:   b.config.Token.Audience,
		AccessTTL:  b.config.Token.AccessTTL,
		RefreshTTL: b.config.Token.RefreshTTL,
		Leeway:     b.config.Token.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	metrics := NewMetrics(b.config.Metrics)
	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    b.config.Audit.Enabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
		OnDrop:     func(string) { metrics.Inc(MetricAuditDropped) },
	}, b.auditSink)

	e := &Engine{
		cfg:         b.config,
		ring:        ring,
		tokens:      tokens,
		authzEngine: authz.NewEngine(),
		limiter:     NewRateLimiter(b.config.RateLimit),
		hasher:      hasher,
		identities:  b.identities,
		credentials: b.credentials,
		resets:      b.resets,
		audit:       dispatcher,
		metrics:     metrics,
	}

	if b.clients != nil && b.codes != nil && b.devices != nil {
		oauth2, err := NewOAuth2Manager(b.clients, b.codes, b.devices, b.identities, tokens, b.config.OAuth)
		if err != nil {
			return nil, err
		}
		oauth2.metrics = metrics
		oauth2.audit = dispatcher
		e.oauth2 = oauth2
	}

	return e, nil
}

// buildRing constructs the signing keyring from config: persisted
// load-or-generate when a path is set, fresh in-memory otherwise.
func buildRing(cfg KeyConfig) (*keyring.Ring, error) {
	if cfg.Path != "" {
		return keyring.LoadOrGenerate(cfg.Path, cfg.ActiveKID, cfg.Algorithm)
	}
	ring := keyring.New()
	if _, err := ring.Generate(cfg.ActiveKID, cfg.Algorithm); err != nil {
		return nil, err
	}
	if err := ring.PromoteKey(cfg.ActiveKID); err != nil {
		return nil, err
	}
	return ring, nil
}
