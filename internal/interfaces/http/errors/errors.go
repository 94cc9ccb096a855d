// Package errors writes OAuth2 protocol errors in the wire shape the token
// and authorization endpoints must use.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/ipede/authz-server/internal/domain"
)

// ErrorResponse is the OAuth2 error payload
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteOAuthError normalizes err into a protocol error and writes it as a
// JSON body with the matching status code. Used where no redirect target
// exists (token endpoint, pre-redirect-URI authorization failures).
func WriteOAuthError(w http.ResponseWriter, err error) {
	oauthErr := domain.AsOAuthError(err)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(oauthErr.Status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:            string(oauthErr.Code),
		ErrorDescription: oauthErr.Description,
	})
}
