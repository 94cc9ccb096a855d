package domain

// AuthnSession tracks the progress of one user agent through an
// authentication policy across HTTP round-trips.
//
// Exactly one of three states holds at any time: in progress
// (NextAuthnStepID set), failed terminal (neither NextAuthnStepID nor
// AuthzCode set), or succeeded terminal (AuthzCode set).
type AuthnSession struct {
	ID            string `json:"id"`
	TrackingID    string `json:"tracking_id"`
	CorrelationID string `json:"correlation_id"`

	// CallbackID is the one-time identifier a suspended session can be
	// resumed with. Empty once the session is terminal.
	CallbackID string `json:"callback_id,omitempty"`

	ClientID        string   `json:"client_id"`
	RedirectURI     string   `json:"redirect_uri"`
	RequestedScopes []string `json:"requested_scopes"`
	State           string   `json:"state"`

	AuthnPolicyID   string `json:"authn_policy_id"`
	NextAuthnStepID string `json:"next_authn_step_id,omitempty"`

	// UserID is set by an authentication step once the end user is resolved
	UserID string `json:"user_id,omitempty"`

	AuthzCode          string `json:"authz_code,omitempty"`
	AuthzCodeCreatedAt int64  `json:"authz_code_created_at,omitempty"`

	CodeChallenge string `json:"code_challenge,omitempty"`

	// Params is free-form state steps may use to pass data along the flow
	Params map[string]string `json:"params"`
}

// IsInProgress reports whether the session still has a step to execute
func (s *AuthnSession) IsInProgress() bool {
	return s.NextAuthnStepID != ""
}

// Succeeded reports whether the session reached terminal success
func (s *AuthnSession) Succeeded() bool {
	return s.AuthzCode != ""
}
