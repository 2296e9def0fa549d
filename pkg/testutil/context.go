package testutil

import (
	"net/http"

	id "loanbroker/pkg/domain"
	"loanbroker/pkg/requestcontext"
)

// WithIdentity places an authenticated principal on the request context,
// the state RequireAuth leaves behind for downstream handlers.
func WithIdentity(req *http.Request, userID id.UserID, role, email string) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), userID, role, email))
}

// WithBearer sets an Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
