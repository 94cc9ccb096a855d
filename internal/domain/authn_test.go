package domain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopStep(id string) *AuthnStep {
	return &AuthnStep{
		ID: id,
		Run: func(ctx context.Context, session *AuthnSession, r *http.Request) (AuthnResult, error) {
			return SuccessResult{}, nil
		},
	}
}

func TestAuthnRegistry_RegisterStep(t *testing.T) {
	registry := NewAuthnRegistry()

	require.NoError(t, registry.RegisterStep(noopStep("login")))

	err := registry.RegisterStep(noopStep("login"))
	assert.ErrorIs(t, err, ErrDuplicateAuthnStep)

	err = registry.RegisterStep(&AuthnStep{ID: "no-func"})
	assert.ErrorIs(t, err, ErrUnknownAuthnStep)

	step, ok := registry.Step("login")
	require.True(t, ok)
	assert.Equal(t, "login", step.ID)
}

func TestAuthnRegistry_BuiltinDenyStep(t *testing.T) {
	registry := NewAuthnRegistry()

	step, ok := registry.Step(DenyStepID)
	require.True(t, ok)

	result, err := step.Run(context.Background(), &AuthnSession{}, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, AuthnStatusFailure, result.Status())

	// The deny step id is reserved
	assert.ErrorIs(t, registry.RegisterStep(noopStep(DenyStepID)), ErrDuplicateAuthnStep)
}

func TestAuthnRegistry_RegisterPolicy(t *testing.T) {
	registry := NewAuthnRegistry()
	require.NoError(t, registry.RegisterStep(noopStep("login")))

	always := func(client *Client, r *http.Request) bool { return true }

	require.NoError(t, registry.RegisterPolicy(&AuthnPolicy{
		ID:          "policy-1",
		IsAvailable: always,
		FirstStepID: "login",
	}))

	err := registry.RegisterPolicy(&AuthnPolicy{
		ID:          "policy-1",
		IsAvailable: always,
		FirstStepID: "login",
	})
	assert.ErrorIs(t, err, ErrDuplicateAuthnPolicy)

	err = registry.RegisterPolicy(&AuthnPolicy{
		ID:          "policy-2",
		IsAvailable: always,
		FirstStepID: "never-registered",
	})
	assert.ErrorIs(t, err, ErrUnknownAuthnStep)
}

func TestAuthnRegistry_FirstApplicablePolicy(t *testing.T) {
	registry := NewAuthnRegistry()
	require.NoError(t, registry.RegisterStep(noopStep("login")))

	require.NoError(t, registry.RegisterPolicy(&AuthnPolicy{
		ID:          "public-only",
		IsAvailable: func(client *Client, r *http.Request) bool { return client.IsPublic() },
		FirstStepID: "login",
	}))
	require.NoError(t, registry.RegisterPolicy(&AuthnPolicy{
		ID:          "catch-all",
		IsAvailable: func(client *Client, r *http.Request) bool { return true },
		FirstStepID: "login",
	}))

	req := httptest.NewRequest(http.MethodGet, "/oauth/authorize", nil)

	policy, ok := registry.FirstApplicablePolicy(&Client{AuthnMethod: AuthnMethodNone}, req)
	require.True(t, ok)
	assert.Equal(t, "public-only", policy.ID)

	policy, ok = registry.FirstApplicablePolicy(&Client{AuthnMethod: AuthnMethodSecret}, req)
	require.True(t, ok)
	assert.Equal(t, "catch-all", policy.ID)
}

func TestAuthnResult_Respond(t *testing.T) {
	session := &AuthnSession{
		RedirectURI: "https://app.example/callback",
		State:       "xyz",
		AuthzCode:   "code-123",
	}
	req := httptest.NewRequest(http.MethodGet, "/oauth/authorize", nil)

	t.Run("success redirects with code and state", func(t *testing.T) {
		rec := httptest.NewRecorder()
		SuccessResult{}.Respond(rec, req, session)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		location := rec.Header().Get("Location")
		assert.Contains(t, location, "code=code-123")
		assert.Contains(t, location, "state=xyz")
	})

	t.Run("failure redirects with access_denied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		FailureResult{ErrorDescription: "access denied"}.Respond(rec, req, session)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		location := rec.Header().Get("Location")
		assert.Contains(t, location, "error=access_denied")
		assert.Contains(t, location, "error_description=access+denied")
	})

	t.Run("in progress renders the interaction response", func(t *testing.T) {
		rec := httptest.NewRecorder()
		result := InProgressResult{
			Render: func(w http.ResponseWriter, r *http.Request, s *AuthnSession) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("interaction"))
			},
		}
		result.Respond(rec, req, session)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "interaction", rec.Body.String())
	})
}
