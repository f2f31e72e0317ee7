package authkit

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authkit/keyring"
	"github.com/MrEthical07/authkit/password"
)

// Config is the full engine configuration. Configure it before
// [Builder.Build] and treat it as immutable afterwards.
type Config struct {
	Token     TokenConfig
	Keys      KeyConfig
	Password  password.Config
	RateLimit RateLimitConfig
	OAuth     OAuthConfig
	Reset     ResetConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls access and refresh token issuance.
type TokenConfig struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Leeway is the clock skew tolerance applied to exp/nbf checks.
	// Capped at two minutes.
	Leeway time.Duration
}

/*
====================================
KEY CONFIG
====================================
*/

// KeyConfig controls the signing keyring. When Path is set, the ring is
// loaded from disk at Build and the key material survives restarts;
// otherwise a fresh in-memory key is generated.
type KeyConfig struct {
	Path      string
	ActiveKID string
	Algorithm keyring.Algorithm
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls login lockout. MaxAttempts=0 is valid and means
// unconditional lockout.
type RateLimitConfig struct {
	MaxAttempts     int
	Window          time.Duration
	LockoutDuration time.Duration
}

/*
====================================
OAUTH CONFIG
====================================
*/

// OAuthConfig controls the OAuth2 grant flows.
type OAuthConfig struct {
	CodeTTL            time.Duration
	DeviceCodeTTL      time.Duration
	DevicePollInterval time.Duration
	VerificationURI    string
}

/*
====================================
RESET CONFIG
====================================
*/

// ResetConfig controls password reset grants.
type ResetConfig struct {
	// TTL bounds how long an unredeemed reset token stays valid.
	TTL time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls async audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics collector.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration Build starts from. Callers
// typically take it, override a few fields, and pass the result to
// [Builder.WithConfig].
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:     "authkit",
			AccessTTL:  5 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Leeway:     30 * time.Second,
		},
		Keys: KeyConfig{
			ActiveKID: "k1",
			Algorithm: keyring.AlgEd25519,
		},
		Password: password.DefaultConfig(),
		RateLimit: RateLimitConfig{
			MaxAttempts:     5,
			Window:          15 * time.Minute,
			LockoutDuration: 15 * time.Minute,
		},
		OAuth: OAuthConfig{
			CodeTTL:            time.Minute,
			DeviceCodeTTL:      10 * time.Minute,
			DevicePollInterval: 5 * time.Second,
			VerificationURI:    "/device",
		},
		Reset: ResetConfig{
			TTL: 30 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are value types today; the clone exists so a caller
	// mutating their Config after Build cannot reach engine state.
	return cfg
}

// Validate checks the configuration for internally inconsistent or unsafe
// values. Build calls it; callers constructing a Config by hand can call it
// early for better error locality.
func (c *Config) Validate() error {
	if c.Token.AccessTTL <= 0 {
		return errors.New("token access ttl must be positive")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("token refresh ttl must be positive")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("token refresh ttl must not be shorter than access ttl")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("token leeway must be between 0 and 2m")
	}

	switch c.Keys.Algorithm {
	case keyring.AlgEd25519, keyring.AlgHS256:
	default:
		return fmt.Errorf("unsupported key algorithm %q", c.Keys.Algorithm)
	}
	if c.Keys.ActiveKID == "" {
		return errors.New("active key id must not be empty")
	}

	if c.RateLimit.MaxAttempts < 0 {
		return errors.New("rate limit max attempts must not be negative")
	}
	if c.RateLimit.MaxAttempts > 0 {
		if c.RateLimit.Window <= 0 {
			return errors.New("rate limit window must be positive")
		}
		if c.RateLimit.LockoutDuration <= 0 {
			return errors.New("rate limit lockout duration must be positive")
		}
	}

	if c.OAuth.CodeTTL <= 0 {
		return errors.New("oauth code ttl must be positive")
	}
	if c.OAuth.DeviceCodeTTL <= 0 {
		return errors.New("oauth device code ttl must be positive")
	}
	if c.OAuth.DevicePollInterval <= 0 {
		return errors.New("oauth device poll interval must be positive")
	}

	if c.Reset.TTL <= 0 {
		return errors.New("reset ttl must be positive")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive when auditing is enabled")
	}

	return nil
}
