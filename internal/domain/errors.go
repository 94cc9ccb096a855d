package domain

import "errors"

var (
	// ErrClientNotFound is returned when no client exists for the given id
	ErrClientNotFound = errors.New("client not found")

	// ErrTokenModelNotFound is returned when no token model exists for the given id
	ErrTokenModelNotFound = errors.New("token model not found")

	// ErrSessionNotFound is returned when no session exists for the given
	// id, callback id, or authorization code. A consumed callback id or
	// redeemed authorization code reports the same condition.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSigningKeyNotFound is returned when the key provider has no key for the given id
	ErrSigningKeyNotFound = errors.New("signing key not found")

	// ErrStoreUnavailable wraps transient storage failures
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPublicClientWithoutPKCE is returned when a client with no
	// authentication method is created without requiring PKCE
	ErrPublicClientWithoutPKCE = errors.New("client without authentication method must require PKCE")

	// ErrSecretClientWithoutSecret is returned when a secret-authenticated
	// client is created without a hashed secret
	ErrSecretClientWithoutSecret = errors.New("client with secret authentication must have a hashed secret")

	// ErrTokenModelMissingKey is returned when a JWT token model has no signing key id
	ErrTokenModelMissingKey = errors.New("JWT token models must be associated to a key")

	// ErrUnsupportedTokenType is returned when a token model declares a type
	// the token engine cannot mint
	ErrUnsupportedTokenType = errors.New("unsupported token type")

	// ErrUnsupportedSigningAlgorithm is returned for signing algorithms the
	// token engine does not implement
	ErrUnsupportedSigningAlgorithm = errors.New("unsupported signing algorithm")

	// ErrDuplicateAuthnStep is returned when a step id is registered twice
	ErrDuplicateAuthnStep = errors.New("authentication step already registered")

	// ErrDuplicateAuthnPolicy is returned when a policy id is registered twice
	ErrDuplicateAuthnPolicy = errors.New("authentication policy already registered")

	// ErrUnknownAuthnStep is returned when a step or policy references a step
	// id that was never registered
	ErrUnknownAuthnStep = errors.New("unknown authentication step")

	// ErrNoApplicablePolicy is returned when no registered policy accepts the
	// client and request
	ErrNoApplicablePolicy = errors.New("no authentication policy available")
)

// IsStoreUnavailable checks whether the error wraps a transient storage failure
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
