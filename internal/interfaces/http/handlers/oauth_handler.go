package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ipede/authz-server/internal/application"
	"github.com/ipede/authz-server/internal/domain"
	"github.com/ipede/authz-server/internal/infrastructure/crypto"
	httperrors "github.com/ipede/authz-server/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// OAuthHandler serves the authorization, callback, and token endpoints
type OAuthHandler struct {
	clients     domain.ClientRepository
	tokenModels domain.TokenModelRepository
	flow        *application.FlowService
	grants      *application.GrantService
	logger      *zap.Logger
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(
	clients domain.ClientRepository,
	tokenModels domain.TokenModelRepository,
	flow *application.FlowService,
	grants *application.GrantService,
	logger *zap.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		clients:     clients,
		tokenModels: tokenModels,
		flow:        flow,
		grants:      grants,
		logger:      logger,
	}
}

// AuthorizeHandler starts an authentication flow for the requesting client.
// Failures before the redirect URI is validated are answered directly; after
// that every failure travels back to the client as an error redirect so the
// protocol contract is preserved.
func (h *OAuthHandler) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := domain.AuthorizationRequest{
		ClientID:            query.Get("client_id"),
		RedirectURI:         query.Get("redirect_uri"),
		Scopes:              splitScopes(query.Get("scope")),
		ResponseType:        domain.ResponseType(query.Get("response_type")),
		State:               query.Get("state"),
		CodeChallenge:       query.Get("code_challenge"),
		CodeChallengeMethod: query.Get("code_challenge_method"),
	}

	if req.ClientID == "" {
		httperrors.WriteOAuthError(w, domain.NewOAuthError(domain.ErrCodeInvalidRequest, "client_id is required", http.StatusBadRequest))
		return
	}

	client, err := h.clients.FindByID(r.Context(), req.ClientID)
	if err != nil {
		h.logger.Info("Unknown client on authorization endpoint",
			zap.String("client_id", req.ClientID),
			zap.Error(err))
		httperrors.WriteOAuthError(w, domain.NewOAuthError(domain.ErrCodeInvalidClient, "invalid credentials", http.StatusUnauthorized))
		return
	}

	result, session, err := h.flow.Start(r.Context(), client, req, r)
	if err != nil {
		if session == nil {
			httperrors.WriteOAuthError(w, err)
			return
		}
		redirectWithError(w, r, session.RedirectURI, session.State, err)
		return
	}

	result.Respond(w, r, session)
}

// CallbackHandler resumes a suspended authentication flow by callback id
func (h *OAuthHandler) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	callbackID := chi.URLParam(r, "callbackID")

	result, session, err := h.flow.Resume(r.Context(), callbackID, r)
	if err != nil {
		if session == nil {
			httperrors.WriteOAuthError(w, domain.NewOAuthError(domain.ErrCodeInvalidRequest, "invalid callback id", http.StatusBadRequest))
			return
		}
		redirectWithError(w, r, session.RedirectURI, session.State, err)
		return
	}

	result.Respond(w, r, session)
}

// TokenHandler authenticates the client, builds the grant context, and
// dispatches to the grant engine
func (h *OAuthHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httperrors.WriteOAuthError(w, domain.NewOAuthError(domain.ErrCodeInvalidRequest, "malformed request body", http.StatusBadRequest))
		return
	}

	clientID := r.PostFormValue("client_id")
	clientSecret := r.PostFormValue("client_secret")
	if basicID, basicSecret, ok := r.BasicAuth(); ok {
		clientID, clientSecret = basicID, basicSecret
	}

	client, err := h.authenticateClient(r, clientID, clientSecret)
	if err != nil {
		httperrors.WriteOAuthError(w, err)
		return
	}

	grantType := domain.GrantType(r.PostFormValue("grant_type"))
	if !client.IsGrantTypeAllowed(grantType) {
		h.logger.Info("Grant type not allowed for client",
			zap.String("client_id", client.ID),
			zap.String("grant_type", string(grantType)))
		httperrors.WriteOAuthError(w, domain.NewOAuthError(domain.ErrCodeUnauthorizedClient, "grant type not allowed", http.StatusBadRequest))
		return
	}

	tokenModel, err := h.tokenModels.FindByID(r.Context(), client.TokenModelID)
	if err != nil {
		h.logger.Error("Failed to resolve token model",
			zap.String("client_id", client.ID),
			zap.String("token_model_id", client.TokenModelID),
			zap.Error(err))
		httperrors.WriteOAuthError(w, err)
		return
	}

	grantCtx := &domain.GrantContext{
		Client:          client,
		ClientSecret:    clientSecret,
		TokenModel:      tokenModel,
		RequestedScopes: splitScopes(r.PostFormValue("scope")),
		RedirectURI:     r.PostFormValue("redirect_uri"),
		AuthzCode:       r.PostFormValue("code"),
		CodeVerifier:    r.PostFormValue("code_verifier"),
	}

	response, err := h.grants.IssueToken(r.Context(), grantType, grantCtx)
	if err != nil {
		httperrors.WriteOAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	json.NewEncoder(w).Encode(response)
}

// authenticateClient resolves the client and verifies its credentials.
// Secret-authenticated clients must present the matching secret; clients
// with no authentication method must present none.
func (h *OAuthHandler) authenticateClient(r *http.Request, clientID, clientSecret string) (*domain.Client, error) {
	invalidCredentials := domain.NewOAuthError(domain.ErrCodeInvalidClient, "invalid credentials", http.StatusUnauthorized)

	if clientID == "" {
		return nil, invalidCredentials
	}

	client, err := h.clients.FindByID(r.Context(), clientID)
	if err != nil {
		h.logger.Info("Unknown client on token endpoint",
			zap.String("client_id", clientID),
			zap.Error(err))
		return nil, invalidCredentials
	}

	switch client.AuthnMethod {
	case domain.AuthnMethodSecret:
		if clientSecret == "" || !crypto.VerifySecret(clientSecret, client.HashedSecret) {
			h.logger.Info("Client failed secret authentication",
				zap.String("client_id", clientID))
			return nil, invalidCredentials
		}
	case domain.AuthnMethodNone:
		if clientSecret != "" {
			return nil, invalidCredentials
		}
	default:
		return nil, invalidCredentials
	}

	return client, nil
}

// redirectWithError returns the authorization-flow error through the
// client's registered redirect URI
func redirectWithError(w http.ResponseWriter, r *http.Request, redirectURI, state string, err error) {
	oauthErr := domain.AsOAuthError(err)

	target, parseErr := url.Parse(redirectURI)
	if parseErr != nil {
		httperrors.WriteOAuthError(w, err)
		return
	}
	query := target.Query()
	query.Set("error", string(oauthErr.Code))
	query.Set("error_description", oauthErr.Description)
	if state != "" {
		query.Set("state", state)
	}
	target.RawQuery = query.Encode()
	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}

func splitScopes(scope string) []string {
	return strings.Fields(scope)
}
