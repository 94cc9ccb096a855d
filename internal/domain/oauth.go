package domain

import (
	"fmt"
	"net/http"
)

// GrantType identifies the OAuth2 flow used to obtain a token
type GrantType string

const (
	GrantTypeClientCredentials GrantType = "client_credentials"
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeRefreshToken      GrantType = "refresh_token"
)

// ResponseType identifies the value a client may send on the authorization endpoint
type ResponseType string

const (
	ResponseTypeCode ResponseType = "code"
)

// ClientAuthnMethod identifies how a client authenticates on the token endpoint
type ClientAuthnMethod string

const (
	AuthnMethodNone   ClientAuthnMethod = "none"
	AuthnMethodSecret ClientAuthnMethod = "client_secret"
)

// CodeChallengeMethodS256 is the only PKCE transform accepted by the server
const CodeChallengeMethodS256 = "S256"

// BearerTokenType is the token_type reported on token responses
const BearerTokenType = "Bearer"

// ErrorCode is an OAuth2 protocol error code as defined by RFC 6749
type ErrorCode string

const (
	ErrCodeInvalidClient          ErrorCode = "invalid_client"
	ErrCodeInvalidRequest         ErrorCode = "invalid_request"
	ErrCodeInvalidGrant           ErrorCode = "invalid_grant"
	ErrCodeInvalidScope           ErrorCode = "invalid_scope"
	ErrCodeAccessDenied           ErrorCode = "access_denied"
	ErrCodeUnauthorizedClient     ErrorCode = "unauthorized_client"
	ErrCodeUnsupportedGrantType   ErrorCode = "unsupported_grant_type"
	ErrCodeServerError            ErrorCode = "server_error"
	ErrCodeTemporarilyUnavailable ErrorCode = "temporarily_unavailable"
)

// OAuthError is a protocol-level failure surfaced to the boundary layer.
// It carries the RFC 6749 error code, a human description, and the HTTP
// status to use when the error is returned directly rather than via redirect.
type OAuthError struct {
	Code        ErrorCode
	Description string
	Status      int
}

func (e *OAuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewOAuthError creates a new OAuthError
func NewOAuthError(code ErrorCode, description string, status int) *OAuthError {
	return &OAuthError{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

// AsOAuthError normalizes any error into an OAuthError. Errors that are not
// already protocol errors are mapped to server_error or, for store
// unavailability, temporarily_unavailable.
func AsOAuthError(err error) *OAuthError {
	if oe, ok := err.(*OAuthError); ok {
		return oe
	}
	if IsStoreUnavailable(err) {
		return NewOAuthError(ErrCodeTemporarilyUnavailable, "service temporarily unavailable", http.StatusServiceUnavailable)
	}
	return NewOAuthError(ErrCodeServerError, "internal server error", http.StatusInternalServerError)
}

// GrantContext carries everything a grant handler needs to decide whether a
// token can be issued. It is built by the token endpoint and consumed once.
type GrantContext struct {
	Client          *Client
	ClientSecret    string
	TokenModel      *TokenModel
	RequestedScopes []string
	RedirectURI     string
	AuthzCode       string
	CodeVerifier    string
}

// TokenResponse is the token endpoint success payload
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// AuthorizationRequest is the parsed input of the authorization endpoint
type AuthorizationRequest struct {
	ClientID            string
	RedirectURI         string
	Scopes              []string
	ResponseType        ResponseType
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}
