package application

import (
	"context"
	"net/http"
	"time"

	"github.com/ipede/authz-server/internal/domain"
	"github.com/ipede/authz-server/internal/infrastructure/crypto"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// FlowService drives the authentication-flow state machine: it selects a
// policy, executes steps, persists session progress, and on terminal success
// mints the authorization code.
type FlowService struct {
	sessions domain.SessionStore
	registry *domain.AuthnRegistry
	logger   *zap.Logger
}

// NewFlowService creates a new FlowService
func NewFlowService(sessions domain.SessionStore, registry *domain.AuthnRegistry, logger *zap.Logger) *FlowService {
	return &FlowService{
		sessions: sessions,
		registry: registry,
		logger:   logger,
	}
}

// Start validates the authorization request against the client, selects the
// first applicable policy, creates a session, and runs steps until one
// suspends or the flow is terminal. The returned session is nil when the
// request never reached a state where redirecting errors back to the client
// would be safe.
func (s *FlowService) Start(ctx context.Context, client *domain.Client, req domain.AuthorizationRequest, r *http.Request) (domain.AuthnResult, *domain.AuthnSession, error) {
	if !client.OwnsRedirectURI(req.RedirectURI) {
		s.logger.Info("Redirect URI not registered for client",
			zap.String("client_id", client.ID),
			zap.String("redirect_uri", req.RedirectURI))
		return nil, nil, domain.NewOAuthError(domain.ErrCodeInvalidRequest, "invalid redirect_uri", http.StatusBadRequest)
	}

	// From here on the redirect URI is trusted, so failures travel back to
	// the client as error redirects
	session := &domain.AuthnSession{
		ID:              crypto.NewSessionID(),
		TrackingID:      ulid.Make().String(),
		CorrelationID:   ulid.Make().String(),
		ClientID:        client.ID,
		RedirectURI:     req.RedirectURI,
		RequestedScopes: req.Scopes,
		State:           req.State,
		CodeChallenge:   req.CodeChallenge,
		Params:          make(map[string]string),
	}

	if !client.IsResponseTypeAllowed(req.ResponseType) {
		return nil, session, domain.NewOAuthError(domain.ErrCodeInvalidRequest, "response type not allowed", http.StatusBadRequest)
	}

	if !client.AreScopesAllowed(req.Scopes) {
		return nil, session, domain.NewOAuthError(domain.ErrCodeInvalidScope, "the client does not have access to the required scopes", http.StatusForbidden)
	}

	if client.PKCERequired && req.CodeChallenge == "" {
		return nil, session, domain.NewOAuthError(domain.ErrCodeInvalidRequest, "code challenge required", http.StatusBadRequest)
	}
	if req.CodeChallenge != "" && req.CodeChallengeMethod != "" && req.CodeChallengeMethod != domain.CodeChallengeMethodS256 {
		return nil, session, domain.NewOAuthError(domain.ErrCodeInvalidRequest, "unsupported code challenge method", http.StatusBadRequest)
	}

	policy, ok := s.registry.FirstApplicablePolicy(client, r)
	if !ok {
		s.logger.Error("No authentication policy available",
			zap.String("client_id", client.ID))
		return nil, session, domain.ErrNoApplicablePolicy
	}

	session.AuthnPolicyID = policy.ID
	session.NextAuthnStepID = policy.FirstStepID

	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Error("Failed to create session",
			zap.String("client_id", client.ID),
			zap.Error(err))
		return nil, session, err
	}

	s.logger.Info("Authentication flow started",
		zap.String("session_id", session.ID),
		zap.String("tracking_id", session.TrackingID),
		zap.String("client_id", client.ID),
		zap.String("policy_id", policy.ID))

	result, err := s.runSteps(ctx, session, r)
	return result, session, err
}

// Resume continues a suspended session. The callback id is consumed by the
// lookup, so a finalized or already-resumed session reports not-found.
func (s *FlowService) Resume(ctx context.Context, callbackID string, r *http.Request) (domain.AuthnResult, *domain.AuthnSession, error) {
	session, err := s.sessions.ConsumeCallbackID(ctx, callbackID)
	if err != nil {
		s.logger.Info("No session associated with callback id", zap.Error(err))
		return nil, nil, err
	}

	s.logger.Info("Authentication flow resumed",
		zap.String("session_id", session.ID),
		zap.String("tracking_id", session.TrackingID),
		zap.String("correlation_id", session.CorrelationID),
		zap.String("step_id", session.NextAuthnStepID))

	result, err := s.runSteps(ctx, session, r)
	return result, session, err
}

// runSteps executes the current step and follows success/failure edges until
// a step suspends or a terminal edge is reached.
func (s *FlowService) runSteps(ctx context.Context, session *domain.AuthnSession, r *http.Request) (domain.AuthnResult, error) {
	for {
		step, ok := s.registry.Step(session.NextAuthnStepID)
		if !ok {
			s.logger.Error("Session references unregistered step",
				zap.String("session_id", session.ID),
				zap.String("step_id", session.NextAuthnStepID))
			return nil, domain.ErrUnknownAuthnStep
		}

		result, err := step.Run(ctx, session, r)
		if err != nil {
			s.logger.Error("Authentication step failed",
				zap.String("session_id", session.ID),
				zap.String("step_id", step.ID),
				zap.Error(err))
			return nil, err
		}

		switch result.Status() {
		case domain.AuthnStatusInProgress:
			// Suspend with a fresh one-time callback id
			session.CallbackID = crypto.NewCallbackID()
			if err := s.sessions.Update(ctx, session); err != nil {
				return nil, err
			}
			s.logger.Info("Authentication flow suspended",
				zap.String("session_id", session.ID),
				zap.String("step_id", step.ID))
			return result, nil

		case domain.AuthnStatusSuccess:
			if step.SuccessNextID == "" {
				return result, s.finalizeSuccess(ctx, session)
			}
			session.NextAuthnStepID = step.SuccessNextID

		case domain.AuthnStatusFailure:
			if step.FailureNextID == "" {
				return result, s.finalizeFailure(ctx, session)
			}
			session.NextAuthnStepID = step.FailureNextID
		}
	}
}

func (s *FlowService) finalizeSuccess(ctx context.Context, session *domain.AuthnSession) error {
	session.AuthzCode = crypto.NewAuthorizationCode()
	session.AuthzCodeCreatedAt = time.Now().Unix()
	session.CallbackID = ""
	session.NextAuthnStepID = ""

	if err := s.sessions.Update(ctx, session); err != nil {
		s.logger.Error("Failed to persist finalized session",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return err
	}

	s.logger.Info("Authentication flow succeeded",
		zap.String("session_id", session.ID),
		zap.String("user_id", session.UserID))
	return nil
}

func (s *FlowService) finalizeFailure(ctx context.Context, session *domain.AuthnSession) error {
	session.CallbackID = ""
	session.NextAuthnStepID = ""

	if err := s.sessions.Update(ctx, session); err != nil {
		s.logger.Error("Failed to persist finalized session",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return err
	}

	s.logger.Info("Authentication flow denied",
		zap.String("session_id", session.ID))
	return nil
}
