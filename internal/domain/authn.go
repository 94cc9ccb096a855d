package domain

import (
	"context"
	"net/http"
	"net/url"
)

// AuthnStatus tags the outcome of one authentication step execution
type AuthnStatus string

const (
	AuthnStatusInProgress AuthnStatus = "in_progress"
	AuthnStatusSuccess    AuthnStatus = "success"
	AuthnStatusFailure    AuthnStatus = "failure"
)

// AuthnResult is the closed set of step outcomes. Respond produces the
// caller-visible effect for the outcome: an interaction response while the
// flow is suspended, or a redirect to the client's registered URI once the
// flow is terminal.
type AuthnResult interface {
	Status() AuthnStatus
	Respond(w http.ResponseWriter, r *http.Request, session *AuthnSession)
}

// InProgressResult suspends the flow and returns an interaction response.
// The session stays addressable through its callback id.
type InProgressResult struct {
	Render func(w http.ResponseWriter, r *http.Request, session *AuthnSession)
}

func (InProgressResult) Status() AuthnStatus { return AuthnStatusInProgress }

func (res InProgressResult) Respond(w http.ResponseWriter, r *http.Request, session *AuthnSession) {
	res.Render(w, r, session)
}

// SuccessResult advances the flow along the success edge. When the edge is
// terminal, the engine has already minted the authorization code on the
// session before Respond runs.
type SuccessResult struct{}

func (SuccessResult) Status() AuthnStatus { return AuthnStatusSuccess }

func (SuccessResult) Respond(w http.ResponseWriter, r *http.Request, session *AuthnSession) {
	redirect(w, r, session.RedirectURI, url.Values{
		"code":  {session.AuthzCode},
		"state": {session.State},
	})
}

// FailureResult advances the flow along the failure edge. When the edge is
// terminal, the user agent is sent back to the client with access_denied.
type FailureResult struct {
	ErrorDescription string
}

func (FailureResult) Status() AuthnStatus { return AuthnStatusFailure }

func (res FailureResult) Respond(w http.ResponseWriter, r *http.Request, session *AuthnSession) {
	redirect(w, r, session.RedirectURI, url.Values{
		"error":             {string(ErrCodeAccessDenied)},
		"error_description": {res.ErrorDescription},
	})
}

// redirect sends the user agent to the redirect URI with the given query
// parameters appended. Both terminal outcomes use the same mechanism so
// success and failure are indistinguishable transport-wise.
func redirect(w http.ResponseWriter, r *http.Request, redirectURI string, params url.Values) {
	target, err := url.Parse(redirectURI)
	if err != nil {
		http.Error(w, "invalid redirect uri", http.StatusInternalServerError)
		return
	}
	query := target.Query()
	for key, values := range params {
		for _, v := range values {
			query.Set(key, v)
		}
	}
	target.RawQuery = query.Encode()
	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}

// AuthnFunc executes one authentication step against the session and the
// incoming request
type AuthnFunc func(ctx context.Context, session *AuthnSession, r *http.Request) (AuthnResult, error)

// AuthnStep is a node in a policy's step graph. Next steps are referenced by
// id and resolved through the registry at execution time; an empty id marks
// a terminal edge.
type AuthnStep struct {
	ID            string
	Run           AuthnFunc
	SuccessNextID string
	FailureNextID string
}

// PolicyPredicate decides whether a policy applies to the client and request
type PolicyPredicate func(client *Client, r *http.Request) bool

// ExtraClaimsFunc produces additional token claims from a finished session
type ExtraClaimsFunc func(session *AuthnSession) map[string]string

// AuthnPolicy is a named entry point into the step graph
type AuthnPolicy struct {
	ID               string
	IsAvailable      PolicyPredicate
	FirstStepID      string
	ExtraTokenClaims ExtraClaimsFunc
}

// DenyStepID is the id of the built-in always-deny step every registry ships with
const DenyStepID = "deny"

// AuthnRegistry holds the process-wide step and policy sets. It is built
// once at startup, before traffic begins, and read without synchronization
// afterwards. Policies keep registration order; the first applicable one wins.
type AuthnRegistry struct {
	steps     map[string]*AuthnStep
	policies  []*AuthnPolicy
	policyIDs map[string]*AuthnPolicy
}

// NewAuthnRegistry creates a registry pre-populated with the built-in
// always-deny step
func NewAuthnRegistry() *AuthnRegistry {
	r := &AuthnRegistry{
		steps:     make(map[string]*AuthnStep),
		policyIDs: make(map[string]*AuthnPolicy),
	}
	r.steps[DenyStepID] = &AuthnStep{
		ID: DenyStepID,
		Run: func(ctx context.Context, session *AuthnSession, req *http.Request) (AuthnResult, error) {
			return FailureResult{ErrorDescription: "access denied"}, nil
		},
	}
	return r
}

// RegisterStep adds a step to the registry. Registering a duplicate id is a
// configuration error.
func (r *AuthnRegistry) RegisterStep(step *AuthnStep) error {
	if step == nil || step.ID == "" || step.Run == nil {
		return ErrUnknownAuthnStep
	}
	if _, exists := r.steps[step.ID]; exists {
		return ErrDuplicateAuthnStep
	}
	r.steps[step.ID] = step
	return nil
}

// RegisterPolicy adds a policy to the registry. The policy's first step must
// already be registered; registering a duplicate id is a configuration error.
func (r *AuthnRegistry) RegisterPolicy(policy *AuthnPolicy) error {
	if policy == nil || policy.ID == "" || policy.IsAvailable == nil {
		return ErrNoApplicablePolicy
	}
	if _, exists := r.policyIDs[policy.ID]; exists {
		return ErrDuplicateAuthnPolicy
	}
	if _, ok := r.steps[policy.FirstStepID]; !ok {
		return ErrUnknownAuthnStep
	}
	r.policies = append(r.policies, policy)
	r.policyIDs[policy.ID] = policy
	return nil
}

// Step resolves a step by id
func (r *AuthnRegistry) Step(id string) (*AuthnStep, bool) {
	step, ok := r.steps[id]
	return step, ok
}

// Policy resolves a policy by id
func (r *AuthnRegistry) Policy(id string) (*AuthnPolicy, bool) {
	policy, ok := r.policyIDs[id]
	return policy, ok
}

// FirstApplicablePolicy returns the first registered policy whose predicate
// accepts the client and request
func (r *AuthnRegistry) FirstApplicablePolicy(client *Client, req *http.Request) (*AuthnPolicy, bool) {
	for _, policy := range r.policies {
		if policy.IsAvailable(client, req) {
			return policy, true
		}
	}
	return nil, false
}
