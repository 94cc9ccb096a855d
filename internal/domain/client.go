package domain

import "time"

// Client represents a registered OAuth2 client. Instances read by the core
// are immutable snapshots; mutation happens only through the repository.
type Client struct {
	ID            string
	AuthnMethod   ClientAuthnMethod
	HashedSecret  string
	RedirectURIs  []string
	ResponseTypes []ResponseType
	GrantTypes    []GrantType
	Scopes        []string
	PKCERequired  bool
	TokenModelID  string
	ExtraParams   map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ClientParams holds the attributes supplied when registering a client
type ClientParams struct {
	AuthnMethod   ClientAuthnMethod
	RedirectURIs  []string
	ResponseTypes []ResponseType
	GrantTypes    []GrantType
	Scopes        []string
	PKCERequired  bool
	TokenModelID  string
	ExtraParams   map[string]string
}

// NewClient creates a new client instance. A client without an authentication
// method must prove possession of the authorization code via PKCE, and a
// secret-authenticated client must carry its hashed secret.
func NewClient(id, hashedSecret string, params ClientParams) (*Client, error) {
	if params.AuthnMethod == AuthnMethodNone && !params.PKCERequired {
		return nil, ErrPublicClientWithoutPKCE
	}
	if params.AuthnMethod == AuthnMethodSecret && hashedSecret == "" {
		return nil, ErrSecretClientWithoutSecret
	}

	extraParams := params.ExtraParams
	if extraParams == nil {
		extraParams = make(map[string]string)
	}

	now := time.Now()
	return &Client{
		ID:            id,
		AuthnMethod:   params.AuthnMethod,
		HashedSecret:  hashedSecret,
		RedirectURIs:  params.RedirectURIs,
		ResponseTypes: params.ResponseTypes,
		GrantTypes:    params.GrantTypes,
		Scopes:        params.Scopes,
		PKCERequired:  params.PKCERequired,
		TokenModelID:  params.TokenModelID,
		ExtraParams:   extraParams,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsPublic reports whether the client has no authentication method
func (c *Client) IsPublic() bool {
	return c.AuthnMethod == AuthnMethodNone
}

// AreScopesAllowed reports whether every requested scope is in the client's
// allowed scope set
func (c *Client) AreScopesAllowed(requested []string) bool {
	allowed := make(map[string]struct{}, len(c.Scopes))
	for _, s := range c.Scopes {
		allowed[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := allowed[s]; !ok {
			return false
		}
	}
	return true
}

// OwnsRedirectURI reports whether the redirect URI is registered for the client
func (c *Client) OwnsRedirectURI(redirectURI string) bool {
	for _, uri := range c.RedirectURIs {
		if uri == redirectURI {
			return true
		}
	}
	return false
}

// IsResponseTypeAllowed reports whether the client may use the response type
func (c *Client) IsResponseTypeAllowed(responseType ResponseType) bool {
	for _, rt := range c.ResponseTypes {
		if rt == responseType {
			return true
		}
	}
	return false
}

// IsGrantTypeAllowed reports whether the client may use the grant type
func (c *Client) IsGrantTypeAllowed(grantType GrantType) bool {
	for _, gt := range c.GrantTypes {
		if gt == grantType {
			return true
		}
	}
	return false
}
