package application

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ipede/authz-server/internal/domain"
	"github.com/ipede/authz-server/internal/infrastructure/crypto"
	"go.uber.org/zap"
)

type grantHandler func(ctx context.Context, grantCtx *domain.GrantContext) (*domain.TokenResponse, error)

// GrantService dispatches token requests to the handler registered for the
// grant type and enforces the OAuth invariants before minting a token.
type GrantService struct {
	sessions domain.SessionStore
	tokens   domain.TokenGenerator
	registry *domain.AuthnRegistry
	logger   *zap.Logger
	handlers map[domain.GrantType]grantHandler
}

// NewGrantService creates a new GrantService with the static grant-type
// dispatch table
func NewGrantService(sessions domain.SessionStore, tokens domain.TokenGenerator, registry *domain.AuthnRegistry, logger *zap.Logger) *GrantService {
	s := &GrantService{
		sessions: sessions,
		tokens:   tokens,
		registry: registry,
		logger:   logger,
	}
	s.handlers = map[domain.GrantType]grantHandler{
		domain.GrantTypeClientCredentials: s.handleClientCredentials,
		domain.GrantTypeAuthorizationCode: s.handleAuthorizationCode,
		domain.GrantTypeRefreshToken:      s.handleRefreshToken,
	}
	return s
}

// IssueToken resolves the grant handler for the grant type and runs it
func (s *GrantService) IssueToken(ctx context.Context, grantType domain.GrantType, grantCtx *domain.GrantContext) (*domain.TokenResponse, error) {
	handler, ok := s.handlers[grantType]
	if !ok {
		s.logger.Info("Unknown grant type requested",
			zap.String("grant_type", string(grantType)),
			zap.String("client_id", grantCtx.Client.ID))
		return nil, domain.NewOAuthError(domain.ErrCodeUnsupportedGrantType, "unsupported grant type", http.StatusBadRequest)
	}
	return handler(ctx, grantCtx)
}

func (s *GrantService) handleClientCredentials(ctx context.Context, grantCtx *domain.GrantContext) (*domain.TokenResponse, error) {
	client := grantCtx.Client

	if !client.AreScopesAllowed(grantCtx.RequestedScopes) {
		s.logger.Info("Requested scopes exceed client allowance",
			zap.String("client_id", client.ID),
			zap.Strings("requested_scopes", grantCtx.RequestedScopes))
		return nil, domain.NewOAuthError(domain.ErrCodeInvalidScope, "the client does not have access to the required scopes", http.StatusForbidden)
	}

	// A client that requests no scopes gets all of its allowed ones
	scopes := grantCtx.RequestedScopes
	if len(scopes) == 0 {
		scopes = client.Scopes
	}

	token, err := s.tokens.GenerateToken(grantCtx.TokenModel, client.ID, client.ID, scopes, nil)
	if err != nil {
		s.logger.Error("Failed to generate token",
			zap.String("client_id", client.ID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Issued client_credentials token",
		zap.String("client_id", client.ID),
		zap.String("token_id", token.ID))

	return &domain.TokenResponse{
		AccessToken: token.Token,
		TokenType:   domain.BearerTokenType,
		ExpiresIn:   grantCtx.TokenModel.ExpiresIn,
		Scope:       strings.Join(scopes, " "),
	}, nil
}

func (s *GrantService) handleAuthorizationCode(ctx context.Context, grantCtx *domain.GrantContext) (*domain.TokenResponse, error) {
	client := grantCtx.Client

	if grantCtx.AuthzCode == "" {
		return nil, domain.NewOAuthError(domain.ErrCodeInvalidGrant, "the authorization code cannot be null for the authorization_code grant", http.StatusBadRequest)
	}

	// Atomic fetch-and-invalidate: redemption consumes the code in the same
	// store operation that resolves it, so a concurrent or later replay
	// observes not-found.
	session, err := s.sessions.ConsumeAuthorizationCode(ctx, grantCtx.AuthzCode)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Info("Authorization code not found or already redeemed",
				zap.String("client_id", client.ID))
			return nil, domain.NewOAuthError(domain.ErrCodeInvalidGrant, "invalid authorization code", http.StatusBadRequest)
		}
		s.logger.Error("Session store failure during code redemption", zap.Error(err))
		return nil, err
	}

	// The generic description avoids leaking that the code exists for a
	// different client
	if session.ClientID != client.ID {
		s.logger.Info("Authorization code bound to another client",
			zap.String("client_id", client.ID),
			zap.String("session_id", session.ID))
		return nil, domain.NewOAuthError(domain.ErrCodeInvalidRequest, "invalid authorization code", http.StatusBadRequest)
	}

	if !client.AreScopesAllowed(session.RequestedScopes) {
		s.logger.Info("Session scopes exceed client allowance",
			zap.String("client_id", client.ID),
			zap.Strings("session_scopes", session.RequestedScopes))
		return nil, domain.NewOAuthError(domain.ErrCodeInvalidScope, "the client does not have access to the required scopes", http.StatusForbidden)
	}

	if session.CodeChallenge != "" {
		if grantCtx.CodeVerifier == "" {
			return nil, domain.NewOAuthError(domain.ErrCodeInvalidGrant, "code verifier required", http.StatusBadRequest)
		}
		if !crypto.PKCEMatches(grantCtx.CodeVerifier, session.CodeChallenge) {
			s.logger.Info("PKCE verification failed",
				zap.String("client_id", client.ID),
				zap.String("session_id", session.ID))
			return nil, domain.NewOAuthError(domain.ErrCodeInvalidGrant, "invalid code verifier", http.StatusBadRequest)
		}
	}

	var extraClaims map[string]string
	if policy, ok := s.registry.Policy(session.AuthnPolicyID); ok && policy.ExtraTokenClaims != nil {
		extraClaims = policy.ExtraTokenClaims(session)
	}

	token, err := s.tokens.GenerateToken(grantCtx.TokenModel, client.ID, session.UserID, session.RequestedScopes, extraClaims)
	if err != nil {
		s.logger.Error("Failed to generate token",
			zap.String("client_id", client.ID),
			zap.String("session_id", session.ID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Issued authorization_code token",
		zap.String("client_id", client.ID),
		zap.String("session_id", session.ID),
		zap.String("token_id", token.ID))

	return &domain.TokenResponse{
		AccessToken: token.Token,
		TokenType:   domain.BearerTokenType,
		ExpiresIn:   grantCtx.TokenModel.ExpiresIn,
		Scope:       strings.Join(session.RequestedScopes, " "),
	}, nil
}

func (s *GrantService) handleRefreshToken(ctx context.Context, grantCtx *domain.GrantContext) (*domain.TokenResponse, error) {
	// Registered as a grant type on clients but not implemented yet
	return nil, domain.NewOAuthError(domain.ErrCodeUnsupportedGrantType, "refresh_token grant is not supported", http.StatusBadRequest)
}
