package application

import (
	"context"
	"net/http"
	"testing"

	"github.com/ipede/authz-server/internal/domain"
	"github.com/ipede/authz-server/internal/infrastructure/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockSessionStore is a mock implementation of domain.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, session *domain.AuthnSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) GetByID(ctx context.Context, id string) (*domain.AuthnSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthnSession), args.Error(1)
}

func (m *MockSessionStore) Update(ctx context.Context, session *domain.AuthnSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) ConsumeCallbackID(ctx context.Context, callbackID string) (*domain.AuthnSession, error) {
	args := m.Called(ctx, callbackID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthnSession), args.Error(1)
}

func (m *MockSessionStore) ConsumeAuthorizationCode(ctx context.Context, code string) (*domain.AuthnSession, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthnSession), args.Error(1)
}

// MockTokenGenerator is a mock implementation of domain.TokenGenerator
type MockTokenGenerator struct {
	mock.Mock
}

func (m *MockTokenGenerator) GenerateToken(model *domain.TokenModel, clientID, subject string, scopes []string, additionalClaims map[string]string) (*domain.BearerToken, error) {
	args := m.Called(model, clientID, subject, scopes, additionalClaims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BearerToken), args.Error(1)
}

func testTokenModel() *domain.TokenModel {
	return &domain.TokenModel{
		ID:               "model-1",
		Issuer:           "https://auth.example",
		ExpiresIn:        300,
		Type:             domain.TokenTypeJWT,
		KeyID:            "key-1",
		SigningAlgorithm: domain.SigningAlgorithmHS256,
	}
}

func assertOAuthError(t *testing.T, err error, code domain.ErrorCode) {
	t.Helper()
	var oauthErr *domain.OAuthError
	require.ErrorAs(t, err, &oauthErr)
	assert.Equal(t, code, oauthErr.Code)
}

func TestGrantService_ClientCredentials(t *testing.T) {
	client := &domain.Client{
		ID:          "client-1",
		AuthnMethod: domain.AuthnMethodSecret,
		GrantTypes:  []domain.GrantType{domain.GrantTypeClientCredentials},
		Scopes:      []string{"read", "write"},
	}

	tests := []struct {
		name            string
		requestedScopes []string
		wantScopes      []string
		wantErrCode     domain.ErrorCode
	}{
		{
			name:            "requested subset",
			requestedScopes: []string{"read"},
			wantScopes:      []string{"read"},
		},
		{
			name:            "empty request defaults to all client scopes",
			requestedScopes: nil,
			wantScopes:      []string{"read", "write"},
		},
		{
			name:            "scope outside allowance",
			requestedScopes: []string{"admin"},
			wantErrCode:     domain.ErrCodeInvalidScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(MockSessionStore)
			generator := new(MockTokenGenerator)

			if tt.wantErrCode == "" {
				generator.On("GenerateToken", testTokenModel(), "client-1", "client-1", tt.wantScopes, map[string]string(nil)).
					Return(&domain.BearerToken{ID: "tok-1", Token: "signed"}, nil)
			}

			service := NewGrantService(sessions, generator, domain.NewAuthnRegistry(), zap.NewNop())
			response, err := service.IssueToken(context.Background(), domain.GrantTypeClientCredentials, &domain.GrantContext{
				Client:          client,
				TokenModel:      testTokenModel(),
				RequestedScopes: tt.requestedScopes,
			})

			if tt.wantErrCode != "" {
				assertOAuthError(t, err, tt.wantErrCode)
				assert.Nil(t, response)
				generator.AssertNotCalled(t, "GenerateToken")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "signed", response.AccessToken)
			assert.Equal(t, domain.BearerTokenType, response.TokenType)
			assert.Equal(t, 300, response.ExpiresIn)
			generator.AssertExpectations(t)
		})
	}
}

func TestGrantService_AuthorizationCode(t *testing.T) {
	client := &domain.Client{
		ID:          "client-2",
		AuthnMethod: domain.AuthnMethodNone,
		GrantTypes:  []domain.GrantType{domain.GrantTypeAuthorizationCode},
		Scopes:      []string{"read", "write"},
	}
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	session := func() *domain.AuthnSession {
		return &domain.AuthnSession{
			ID:              "sess-1",
			ClientID:        "client-2",
			UserID:          "user-1",
			RequestedScopes: []string{"read"},
			AuthzCode:       "code-1",
			AuthnPolicyID:   "policy-1",
			CodeChallenge:   crypto.PKCEChallenge(verifier),
		}
	}

	tests := []struct {
		name        string
		grantCtx    *domain.GrantContext
		setupMocks  func(*MockSessionStore, *MockTokenGenerator)
		wantErrCode domain.ErrorCode
	}{
		{
			name: "success",
			grantCtx: &domain.GrantContext{
				Client:       client,
				TokenModel:   testTokenModel(),
				AuthzCode:    "code-1",
				CodeVerifier: verifier,
			},
			setupMocks: func(sessions *MockSessionStore, generator *MockTokenGenerator) {
				sessions.On("ConsumeAuthorizationCode", mock.Anything, "code-1").Return(session(), nil)
				generator.On("GenerateToken", testTokenModel(), "client-2", "user-1", []string{"read"}, map[string]string(nil)).
					Return(&domain.BearerToken{ID: "tok-2", Token: "signed"}, nil)
			},
		},
		{
			name: "missing code",
			grantCtx: &domain.GrantContext{
				Client:     client,
				TokenModel: testTokenModel(),
			},
			setupMocks:  func(sessions *MockSessionStore, generator *MockTokenGenerator) {},
			wantErrCode: domain.ErrCodeInvalidGrant,
		},
		{
			name: "code not found or already redeemed",
			grantCtx: &domain.GrantContext{
				Client:     client,
				TokenModel: testTokenModel(),
				AuthzCode:  "expired-code",
			},
			setupMocks: func(sessions *MockSessionStore, generator *MockTokenGenerator) {
				sessions.On("ConsumeAuthorizationCode", mock.Anything, "expired-code").Return(nil, domain.ErrSessionNotFound)
			},
			wantErrCode: domain.ErrCodeInvalidGrant,
		},
		{
			name: "code bound to another client",
			grantCtx: &domain.GrantContext{
				Client: &domain.Client{
					ID:     "other-client",
					Scopes: []string{"read"},
				},
				TokenModel:   testTokenModel(),
				AuthzCode:    "code-1",
				CodeVerifier: verifier,
			},
			setupMocks: func(sessions *MockSessionStore, generator *MockTokenGenerator) {
				sessions.On("ConsumeAuthorizationCode", mock.Anything, "code-1").Return(session(), nil)
			},
			wantErrCode: domain.ErrCodeInvalidRequest,
		},
		{
			name: "session scopes exceed client allowance",
			grantCtx: &domain.GrantContext{
				Client: &domain.Client{
					ID:     "client-2",
					Scopes: []string{"write"},
				},
				TokenModel:   testTokenModel(),
				AuthzCode:    "code-1",
				CodeVerifier: verifier,
			},
			setupMocks: func(sessions *MockSessionStore, generator *MockTokenGenerator) {
				sessions.On("ConsumeAuthorizationCode", mock.Anything, "code-1").Return(session(), nil)
			},
			wantErrCode: domain.ErrCodeInvalidScope,
		},
		{
			name: "missing code verifier",
			grantCtx: &domain.GrantContext{
				Client:     client,
				TokenModel: testTokenModel(),
				AuthzCode:  "code-1",
			},
			setupMocks: func(sessions *MockSessionStore, generator *MockTokenGenerator) {
				sessions.On("ConsumeAuthorizationCode", mock.Anything, "code-1").Return(session(), nil)
			},
			wantErrCode: domain.ErrCodeInvalidGrant,
		},
		{
			name: "wrong code verifier",
			grantCtx: &domain.GrantContext{
				Client:       client,
				TokenModel:   testTokenModel(),
				AuthzCode:    "code-1",
				CodeVerifier: "not-the-verifier",
			},
			setupMocks: func(sessions *MockSessionStore, generator *MockTokenGenerator) {
				sessions.On("ConsumeAuthorizationCode", mock.Anything, "code-1").Return(session(), nil)
			},
			wantErrCode: domain.ErrCodeInvalidGrant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(MockSessionStore)
			generator := new(MockTokenGenerator)
			tt.setupMocks(sessions, generator)

			service := NewGrantService(sessions, generator, domain.NewAuthnRegistry(), zap.NewNop())
			response, err := service.IssueToken(context.Background(), domain.GrantTypeAuthorizationCode, tt.grantCtx)

			if tt.wantErrCode != "" {
				assertOAuthError(t, err, tt.wantErrCode)
				assert.Nil(t, response)
				generator.AssertNotCalled(t, "GenerateToken")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "signed", response.AccessToken)
			assert.Equal(t, "read", response.Scope)
			sessions.AssertExpectations(t)
			generator.AssertExpectations(t)
		})
	}
}

func TestGrantService_PolicyExtraClaims(t *testing.T) {
	registry := domain.NewAuthnRegistry()
	require.NoError(t, registry.RegisterStep(&domain.AuthnStep{
		ID: "approve",
		Run: func(ctx context.Context, session *domain.AuthnSession, r *http.Request) (domain.AuthnResult, error) {
			return domain.SuccessResult{}, nil
		},
	}))
	require.NoError(t, registry.RegisterPolicy(&domain.AuthnPolicy{
		ID:          "policy-1",
		IsAvailable: func(client *domain.Client, r *http.Request) bool { return true },
		FirstStepID: "approve",
		ExtraTokenClaims: func(session *domain.AuthnSession) map[string]string {
			return map[string]string{"acr": session.Params["acr"]}
		},
	}))

	client := &domain.Client{ID: "client-2", Scopes: []string{"read"}}
	session := &domain.AuthnSession{
		ID:              "sess-1",
		ClientID:        "client-2",
		UserID:          "user-1",
		RequestedScopes: []string{"read"},
		AuthnPolicyID:   "policy-1",
		Params:          map[string]string{"acr": "mfa"},
	}

	sessions := new(MockSessionStore)
	sessions.On("ConsumeAuthorizationCode", mock.Anything, "code-1").Return(session, nil)

	generator := new(MockTokenGenerator)
	generator.On("GenerateToken", testTokenModel(), "client-2", "user-1", []string{"read"}, map[string]string{"acr": "mfa"}).
		Return(&domain.BearerToken{ID: "tok-3", Token: "signed"}, nil)

	service := NewGrantService(sessions, generator, registry, zap.NewNop())
	_, err := service.IssueToken(context.Background(), domain.GrantTypeAuthorizationCode, &domain.GrantContext{
		Client:     client,
		TokenModel: testTokenModel(),
		AuthzCode:  "code-1",
	})
	require.NoError(t, err)
	generator.AssertExpectations(t)
}

func TestGrantService_UnsupportedGrantTypes(t *testing.T) {
	service := NewGrantService(new(MockSessionStore), new(MockTokenGenerator), domain.NewAuthnRegistry(), zap.NewNop())
	grantCtx := &domain.GrantContext{Client: &domain.Client{ID: "client-1"}, TokenModel: testTokenModel()}

	_, err := service.IssueToken(context.Background(), domain.GrantTypeRefreshToken, grantCtx)
	assertOAuthError(t, err, domain.ErrCodeUnsupportedGrantType)

	_, err = service.IssueToken(context.Background(), "password", grantCtx)
	assertOAuthError(t, err, domain.ErrCodeUnsupportedGrantType)
}
