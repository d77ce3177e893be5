package middleware

import (
	"log/slog"
	"net/http"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
	"github.com/wilschoy78/school-mis-api/internal/auth"
)

var errForbidden = apperr.Forbidden("insufficient role for this operation")

// SelfCheck reports whether the request targets the principal's own account.
type SelfCheck func(r *http.Request, principal auth.Principal) bool

// RequireRoles allows the request when the principal holds any role the
// policy grants for op. No principal yields 401, a role mismatch 403.
func RequireRoles(policy *auth.Policy, op string, logger *slog.Logger) func(http.Handler) http.Handler {
	return RequireRolesOrSelf(policy, op, nil, logger)
}

// RequireRolesOrSelf is RequireRoles that also admits a principal acting on
// itself, as decided by self.
func RequireRolesOrSelf(policy *auth.Policy, op string, self SelfCheck, logger *slog.Logger) func(http.Handler) http.Handler {
	if _, ok := policy.Operation(op); !ok {
		// Wiring bug; fail at router construction.
		panic("middleware: unknown operation " + op)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, r, logger, errMissingCredentials)
				return
			}

			if policy.Allows(principal.Roles, op) || (self != nil && self(r, principal)) {
				next.ServeHTTP(w, r)
				return
			}

			if logger != nil {
				logger.InfoContext(r.Context(), "authorization denied",
					"account_id", principal.AccountID,
					"operation", op,
					"roles", auth.RoleNames(principal.Roles),
				)
			}
			WriteError(w, r, logger, errForbidden)
		})
	}
}
