package domain

import "strings"

// TokenType identifies the kind of bearer token a token model mints
type TokenType string

const (
	TokenTypeJWT TokenType = "jwt"
)

// SigningAlgorithm identifies the JWT signing algorithm of a token model
type SigningAlgorithm string

const (
	SigningAlgorithmHS256 SigningAlgorithm = "HS256"
	SigningAlgorithmRS256 SigningAlgorithm = "RS256"
)

// Reserved claim names. Caller-supplied additional claims may never
// overwrite these.
const (
	ClaimTokenID    = "jti"
	ClaimSubject    = "sub"
	ClaimIssuer     = "iss"
	ClaimIssuedAt   = "iat"
	ClaimExpiration = "exp"
	ClaimClientID   = "client_id"
	ClaimScope      = "scope"
)

// TokenModel is the read-only configuration a token is minted from
type TokenModel struct {
	ID               string
	Issuer           string
	ExpiresIn        int // token lifetime in seconds
	Type             TokenType
	KeyID            string
	SigningAlgorithm SigningAlgorithm
}

// NewTokenModel creates a token model, enforcing that JWT-typed models carry
// a signing key id
func NewTokenModel(id, issuer string, expiresIn int, tokenType TokenType, keyID string, alg SigningAlgorithm) (*TokenModel, error) {
	if tokenType == TokenTypeJWT && keyID == "" {
		return nil, ErrTokenModelMissingKey
	}
	return &TokenModel{
		ID:               id,
		Issuer:           issuer,
		ExpiresIn:        expiresIn,
		Type:             tokenType,
		KeyID:            keyID,
		SigningAlgorithm: alg,
	}, nil
}

// TokenInfo is the structured claim set of an issued token. It exists only
// for the duration of one issuance; the core never persists it.
type TokenInfo struct {
	ID               string
	Subject          string
	Issuer           string
	IssuedAt         int64
	Expiration       int64
	ClientID         string
	Scopes           []string
	AdditionalClaims map[string]string
}

// Claims builds the JWT payload. Additional claims are applied first so the
// reserved names always win on conflict.
func (t *TokenInfo) Claims() map[string]interface{} {
	claims := make(map[string]interface{}, len(t.AdditionalClaims)+7)
	for k, v := range t.AdditionalClaims {
		claims[k] = v
	}
	claims[ClaimTokenID] = t.ID
	claims[ClaimSubject] = t.Subject
	claims[ClaimIssuer] = t.Issuer
	claims[ClaimIssuedAt] = t.IssuedAt
	claims[ClaimExpiration] = t.Expiration
	claims[ClaimClientID] = t.ClientID
	claims[ClaimScope] = strings.Join(t.Scopes, " ")
	return claims
}

// BearerToken pairs the signed token string with its structured claim set
type BearerToken struct {
	ID    string
	Info  TokenInfo
	Token string
}

// TokenGenerator mints a signed bearer token from a token model
type TokenGenerator interface {
	GenerateToken(model *TokenModel, clientID, subject string, scopes []string, additionalClaims map[string]string) (*BearerToken, error)
}
