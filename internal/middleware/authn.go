package middleware

import (
	"log/slog"
	"net/http"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/logging"
	"github.com/wilschoy78/school-mis-api/internal/services/iam"
)

// AuthnDependencies bundles collaborators required by the authentication middleware.
type AuthnDependencies struct {
	Authenticator iam.Authenticator
	Logger        *slog.Logger
}

var errMissingCredentials = apperr.Unauthorized("authentication required")

// NewAuthnMiddleware requires a valid bearer token and stores the principal
// in the request context. Missing or invalid credentials yield 401.
func NewAuthnMiddleware(deps AuthnDependencies) func(http.Handler) http.Handler {
	return newAuthn(deps, true)
}

// NewOptionalAuthnMiddleware authenticates when credentials are present and
// passes anonymous requests through. Invalid credentials still yield 401.
func NewOptionalAuthnMiddleware(deps AuthnDependencies) func(http.Handler) http.Handler {
	return newAuthn(deps, false)
}

func newAuthn(deps AuthnDependencies, required bool) func(http.Handler) http.Handler {
	logger := logging.OrDiscard(deps.Logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := deps.Authenticator.Authenticate(r.Context(), iam.AuthRequest{Headers: r.Header})
			if err != nil {
				if apperr.IsKind(err, apperr.KindUnauthorized) {
					logger.DebugContext(r.Context(), "authentication failed", "path", r.URL.Path, "error", err)
				}
				WriteError(w, r, logger, err)
				return
			}
			if principal == nil {
				if required {
					WriteError(w, r, logger, errMissingCredentials)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.SetPrincipal(r.Context(), *principal)))
		})
	}
}
