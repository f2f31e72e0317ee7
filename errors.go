package authkit

import (
	"errors"

	"github.com/MrEthical07/authkit/authz"
	"github.com/MrEthical07/authkit/keyring"
	"github.com/MrEthical07/authkit/token"
)

var (
	// ErrEngineNotReady is returned when a required collaborator was not wired
	// before use.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrInvalidCredentials covers unknown identities, deleted identities, and
	// password mismatches. The cases are deliberately indistinguishable so the
	// login surface leaks no enumeration signal.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a login key is inside a lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountSuspended is returned for suspended identities before any
	// password verification happens.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrMFARequired is returned when the password verified but the identity
	// has a second factor enrolled. No tokens are issued.
	ErrMFARequired = errors.New("mfa required")

	// ErrIdentityNotFound is the store-level signal for an absent identity.
	// Login folds it into [ErrInvalidCredentials] before it reaches callers.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrCredentialNotFound is the store-level signal for an absent credential.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrClientInvalid covers unknown clients and failed client authentication.
	ErrClientInvalid = errors.New("client invalid")
	// ErrRedirectURIMismatch is returned when the redirect_uri is not an exact
	// member of the client's registered set.
	ErrRedirectURIMismatch = errors.New("redirect_uri mismatch")
	// ErrScopeInvalid is returned when requested scopes exceed the client's
	// registered set.
	ErrScopeInvalid = errors.New("scope invalid")
	// ErrPKCERequired is returned when the client mandates PKCE and the
	// authorization request carries no challenge.
	ErrPKCERequired = errors.New("pkce required")
	// ErrPKCEInvalid is returned when the verifier does not match the stored
	// challenge. Kept distinct from [ErrGrantInvalid]: a verifier mismatch
	// points at the requester, not at code replay.
	ErrPKCEInvalid = errors.New("pkce invalid")
	// ErrGrantInvalid covers unknown and already-redeemed authorization codes.
	ErrGrantInvalid = errors.New("grant invalid")
	// ErrGrantExpired is returned when a code outlived its TTL unredeemed.
	ErrGrantExpired = errors.New("grant expired")
	// ErrCodeNotFound is the store-level signal for an absent code record.
	ErrCodeNotFound = errors.New("code not found")
	// ErrCodeConsumed is the store-level signal for an already-redeemed code.
	ErrCodeConsumed = errors.New("code already consumed")

	// ErrResetInvalid covers unknown, expired, and already-redeemed password
	// reset tokens. The cases are indistinguishable on purpose.
	ErrResetInvalid = errors.New("reset token invalid")
	// ErrResetNotFound is the store-level signal for an absent reset grant.
	ErrResetNotFound = errors.New("reset grant not found")

	// ErrDeviceCodePending tells the device to keep polling. Not terminal.
	ErrDeviceCodePending = errors.New("device code pending")
	// ErrDeviceCodeExpired is terminal: the device code outlived its window,
	// authorized or not.
	ErrDeviceCodeExpired = errors.New("device code expired")
	// ErrDeviceCodeSlowDown is returned when the device polls faster than the
	// advertised interval.
	ErrDeviceCodeSlowDown = errors.New("device code slow down")
)

// Token-layer sentinels re-exported so callers that only import the root
// package can still match with errors.Is.
var (
	// ErrTokenMalformed is an alias of [token.ErrTokenMalformed].
	ErrTokenMalformed = token.ErrTokenMalformed
	// ErrTokenExpired is an alias of [token.ErrTokenExpired].
	ErrTokenExpired = token.ErrTokenExpired
	// ErrTokenNotYetValid is an alias of [token.ErrTokenNotYetValid].
	ErrTokenNotYetValid = token.ErrTokenNotYetValid
	// ErrTokenRevoked is an alias of [token.ErrTokenRevoked].
	ErrTokenRevoked = token.ErrTokenRevoked
	// ErrInvalidSignature is an alias of [token.ErrInvalidSignature].
	ErrInvalidSignature = token.ErrInvalidSignature
	// ErrUnknownKeyID is an alias of [keyring.ErrUnknownKeyID].
	ErrUnknownKeyID = keyring.ErrUnknownKeyID
	// ErrRefreshInvalid is an alias of [token.ErrRefreshInvalid].
	ErrRefreshInvalid = token.ErrRefreshInvalid
	// ErrRefreshRevoked is an alias of [token.ErrRefreshRevoked].
	ErrRefreshRevoked = token.ErrRefreshRevoked
	// ErrRefreshExpired is an alias of [token.ErrRefreshExpired].
	ErrRefreshExpired = token.ErrRefreshExpired
)

// Authorization sentinels re-exported from the decision engine.
var (
	// ErrPermissionDenied is an alias of [authz.ErrPermissionDenied].
	ErrPermissionDenied = authz.ErrPermissionDenied
	// ErrInsufficientScope is an alias of [authz.ErrInsufficientScope].
	ErrInsufficientScope = authz.ErrInsufficientScope
	// ErrTenantMismatch is an alias of [authz.ErrTenantMismatch].
	ErrTenantMismatch = authz.ErrTenantMismatch
)
