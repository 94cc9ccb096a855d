package domain

import "context"

// ClientRepository defines keyed access to registered clients
type ClientRepository interface {
	Create(ctx context.Context, client *Client) error
	FindByID(ctx context.Context, id string) (*Client, error)
	Update(ctx context.Context, client *Client) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Client, error)
}

// TokenModelRepository defines keyed access to token models
type TokenModelRepository interface {
	Create(ctx context.Context, model *TokenModel) error
	FindByID(ctx context.Context, id string) (*TokenModel, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*TokenModel, error)
}

// SessionStore defines keyed access to authentication sessions.
//
// ConsumeCallbackID and ConsumeAuthorizationCode are atomic
// fetch-and-invalidate operations: of any number of concurrent calls with
// the same key, exactly one receives the session and the rest observe
// ErrSessionNotFound. Authorization-code replay prevention rests entirely on
// this contract.
type SessionStore interface {
	Create(ctx context.Context, session *AuthnSession) error
	GetByID(ctx context.Context, id string) (*AuthnSession, error)
	Update(ctx context.Context, session *AuthnSession) error
	ConsumeCallbackID(ctx context.Context, callbackID string) (*AuthnSession, error)
	ConsumeAuthorizationCode(ctx context.Context, code string) (*AuthnSession, error)
}

// SigningKey is key material resolved by id. Material holds a []byte secret
// for HMAC algorithms or an *rsa.PrivateKey for RSA algorithms.
type SigningKey struct {
	ID        string
	Algorithm SigningAlgorithm
	Material  interface{}
}

// SigningKeyProvider resolves the key material a token model references
type SigningKeyProvider interface {
	Key(keyID string) (*SigningKey, error)
}
