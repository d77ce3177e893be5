package server

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
	"github.com/wilschoy78/school-mis-api/internal/services/iam"
	"github.com/wilschoy78/school-mis-api/internal/services/validation"
	"github.com/wilschoy78/school-mis-api/internal/telemetry"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	MiddleName *string  `json:"middleName"`
	Phone      *string  `json:"phone"`
	Roles      []string `json:"roles"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User               *models.Account `json:"user"`
	Token              string          `json:"token"`
	ExpiresAt          time.Time       `json:"expiresAt"`
	MustChangePassword bool            `json:"mustChangePassword"`
	TemporaryPassword  string          `json:"temporaryPassword,omitempty"`
}

func newAuthResponse(res *iam.AuthResult) AuthResponse {
	return AuthResponse{
		User:               res.Account,
		Token:              res.Token,
		ExpiresAt:          res.ExpiresAt,
		MustChangePassword: res.MustChangePassword,
		TemporaryPassword:  res.TemporaryPassword,
	}
}

var (
	errRoleGrantUnauthenticated = apperr.Unauthorized("authentication required to assign roles")
	errRoleGrantForbidden       = apperr.Forbidden("insufficient role to assign roles")
)

// HandleLogin exchanges credentials for a bearer token.
func HandleLogin(svc authService, v *validation.RequestValidator, metrics *telemetry.Metrics, logger *slog.Logger) http.HandlerFunc {
	record := func(outcome string) {
		if metrics != nil {
			metrics.RecordLogin(outcome)
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := v.Decode(validation.SchemaLogin, r.Body, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}

		res, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if apperr.IsKind(err, apperr.KindUnauthorized) {
				record(telemetry.LoginRejected)
			} else {
				record(telemetry.LoginErrored)
			}
			writeError(w, r, logger, err)
			return
		}

		record(telemetry.LoginSucceeded)
		writeJSON(w, r, http.StatusOK, newAuthResponse(res))
	}
}

// HandleRegister creates an account and signs it in. Anonymous callers get
// the default role; explicit roles require a principal allowed to create
// users, and only a SuperAdmin may grant super_admin.
func HandleRegister(svc authService, policy *auth.Policy, v *validation.RequestValidator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := v.Decode(validation.SchemaRegister, r.Body, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}

		roles, err := parseRoles(req.Roles)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		if len(roles) > 0 {
			principal, ok := auth.PrincipalFromContext(r.Context())
			switch {
			case !ok:
				writeError(w, r, logger, errRoleGrantUnauthenticated)
				return
			case !policy.Allows(principal.Roles, auth.UsersCreate):
				writeError(w, r, logger, errRoleGrantForbidden)
				return
			case superAdminGrantDenied(r, roles):
				writeError(w, r, logger, errRoleGrantForbidden)
				return
			}
		}

		res, err := svc.Register(r.Context(), iam.RegisterInput{
			Email:      req.Email,
			Password:   req.Password,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			MiddleName: req.MiddleName,
			Phone:      req.Phone,
			Roles:      roles,
		})
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		writeJSON(w, r, http.StatusCreated, newAuthResponse(res))
	}
}

// HandleMe returns the caller's current account.
func HandleMe(svc authService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, r, logger, apperr.Unauthorized("authentication required"))
			return
		}

		account, err := svc.ValidateSubject(r.Context(), principal.AccountID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				err = iam.ErrInvalidToken
			}
			writeError(w, r, logger, err)
			return
		}

		writeJSON(w, r, http.StatusOK, account)
	}
}

// superAdminGrantDenied reports whether roles hands out super_admin to a
// caller that does not hold it.
func superAdminGrantDenied(r *http.Request, roles []auth.Role) bool {
	if !slices.Contains(roles, auth.RoleSuperAdmin) {
		return false
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	return !principal.HasAny(auth.RoleSuperAdmin)
}
