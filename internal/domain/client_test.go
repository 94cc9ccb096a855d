package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name         string
		hashedSecret string
		params       ClientParams
		wantErr      error
	}{
		{
			name:         "secret client",
			hashedSecret: "hashed",
			params: ClientParams{
				AuthnMethod: AuthnMethodSecret,
				GrantTypes:  []GrantType{GrantTypeClientCredentials},
				Scopes:      []string{"read"},
			},
		},
		{
			name: "public client with PKCE",
			params: ClientParams{
				AuthnMethod:  AuthnMethodNone,
				PKCERequired: true,
				GrantTypes:   []GrantType{GrantTypeAuthorizationCode},
			},
		},
		{
			name: "public client without PKCE",
			params: ClientParams{
				AuthnMethod:  AuthnMethodNone,
				PKCERequired: false,
			},
			wantErr: ErrPublicClientWithoutPKCE,
		},
		{
			name: "secret client without secret",
			params: ClientParams{
				AuthnMethod: AuthnMethodSecret,
			},
			wantErr: ErrSecretClientWithoutSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient("client-1", tt.hashedSecret, tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, client)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "client-1", client.ID)
			assert.NotNil(t, client.ExtraParams)
		})
	}
}

func TestClient_AreScopesAllowed(t *testing.T) {
	client := &Client{Scopes: []string{"read", "write"}}

	tests := []struct {
		name      string
		requested []string
		want      bool
	}{
		{"subset", []string{"read"}, true},
		{"full set", []string{"read", "write"}, true},
		{"empty requested", nil, true},
		{"scope outside allowance", []string{"admin"}, false},
		{"mixed", []string{"read", "admin"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.AreScopesAllowed(tt.requested))
		})
	}
}

func TestClient_CapabilityChecks(t *testing.T) {
	client := &Client{
		AuthnMethod:   AuthnMethodNone,
		RedirectURIs:  []string{"https://app.example/callback"},
		ResponseTypes: []ResponseType{ResponseTypeCode},
		GrantTypes:    []GrantType{GrantTypeAuthorizationCode},
	}

	assert.True(t, client.IsPublic())
	assert.True(t, client.OwnsRedirectURI("https://app.example/callback"))
	assert.False(t, client.OwnsRedirectURI("https://evil.example/callback"))
	assert.True(t, client.IsResponseTypeAllowed(ResponseTypeCode))
	assert.False(t, client.IsResponseTypeAllowed("token"))
	assert.True(t, client.IsGrantTypeAllowed(GrantTypeAuthorizationCode))
	assert.False(t, client.IsGrantTypeAllowed(GrantTypeClientCredentials))
}
