package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ipede/authz-server/internal/domain"
)

// registerDevPolicy installs a single-step login policy that accepts any
// non-empty username. It exists so the flow can be exercised end to end on a
// development machine; real deployments register their own steps.
func registerDevPolicy(registry *domain.AuthnRegistry) error {
	step := &domain.AuthnStep{
		ID: "dev_login",
		Run: func(ctx context.Context, session *domain.AuthnSession, r *http.Request) (domain.AuthnResult, error) {
			username := r.FormValue("username")
			if username == "" {
				return domain.InProgressResult{Render: renderDevLoginForm}, nil
			}
			session.UserID = username
			return domain.SuccessResult{}, nil
		},
		FailureNextID: domain.DenyStepID,
	}
	if err := registry.RegisterStep(step); err != nil {
		return err
	}

	return registry.RegisterPolicy(&domain.AuthnPolicy{
		ID: "dev_policy",
		IsAvailable: func(client *domain.Client, r *http.Request) bool {
			return true
		},
		FirstStepID: step.ID,
	})
}

func renderDevLoginForm(w http.ResponseWriter, r *http.Request, session *domain.AuthnSession) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body>
<form method="post" action="/oauth/callback/%s">
  <label>Username <input type="text" name="username"></label>
  <button type="submit">Sign in</button>
</form>
</body></html>`, session.CallbackID)
}
