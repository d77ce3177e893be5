// Package server assembles the HTTP API: routing, CORS, authentication and
// per-operation role guards in front of the iam, directory and reference
// services.
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
	"github.com/wilschoy78/school-mis-api/internal/logging"
	authmw "github.com/wilschoy78/school-mis-api/internal/middleware"
	"github.com/wilschoy78/school-mis-api/internal/services/directory"
	"github.com/wilschoy78/school-mis-api/internal/services/iam"
	"github.com/wilschoy78/school-mis-api/internal/services/reference"
	"github.com/wilschoy78/school-mis-api/internal/services/validation"
	"github.com/wilschoy78/school-mis-api/internal/telemetry"
)

// RouterOptions controls the construction of the HTTP router.
// Services, Authenticator, Policy and Validator are required.
type RouterOptions struct {
	IAM           iam.Service
	Authenticator iam.Authenticator
	Policy        *auth.Policy
	Directory     *directory.Service
	Departments   *reference.DepartmentService
	Positions     *reference.PositionService
	Validator     *validation.RequestValidator

	Metrics       *telemetry.Metrics // optional; /metrics is mounted when set
	Logger        *slog.Logger
	CORSOptions   *cors.Options
	HealthHandler http.HandlerFunc
}

// DefaultCORSOptions returns the CORS policy for the browser front end at origin.
func DefaultCORSOptions(origin string) cors.Options {
	return cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (o RouterOptions) validate() error {
	var errs []error
	if o.IAM == nil {
		errs = append(errs, errors.New("IAM service is required"))
	}
	if o.Authenticator == nil {
		errs = append(errs, errors.New("authenticator is required"))
	}
	if o.Policy == nil {
		errs = append(errs, errors.New("policy is required"))
	}
	if o.Directory == nil {
		errs = append(errs, errors.New("directory service is required"))
	}
	if o.Departments == nil || o.Positions == nil {
		errs = append(errs, errors.New("reference services are required"))
	}
	if o.Validator == nil {
		errs = append(errs, errors.New("request validator is required"))
	}
	return errors.Join(errs...)
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the API handlers mounted behind their role guards.
func NewRouter(opts RouterOptions) (chi.Router, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := logging.OrDiscard(opts.Logger)

	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions("http://localhost:5173")
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	authnDeps := authmw.AuthnDependencies{Authenticator: opts.Authenticator, Logger: logger}
	requireAuthn := authmw.NewAuthnMiddleware(authnDeps)
	guard := func(op string) func(http.Handler) http.Handler {
		return authmw.RequireRoles(opts.Policy, op, logger)
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", HandleLogin(opts.IAM, opts.Validator, opts.Metrics, logger))
		r.With(authmw.NewOptionalAuthnMiddleware(authnDeps)).
			Post("/register", HandleRegister(opts.IAM, opts.Policy, opts.Validator, logger))
		r.With(requireAuthn).Get("/me", HandleMe(opts.IAM, logger))
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuthn)
		r.With(guard(auth.UsersList)).Get("/", HandleListUsers(opts.Directory, logger))
		r.With(guard(auth.UsersStats)).Get("/stats", HandleUserStats(opts.Directory, logger))
		r.With(guard(auth.UsersCreate)).Post("/", HandleCreateUser(opts.Directory, opts.Validator, logger))
		r.With(guard(auth.UsersRead)).Get("/{id}", HandleGetUser(opts.Directory, logger))
		r.With(guard(auth.UsersUpdate)).Put("/{id}", HandleUpdateUser(opts.Directory, opts.Validator, logger))
		r.With(guard(auth.UsersUpdateStatus)).Patch("/{id}/status", HandleUpdateUserStatus(opts.Directory, opts.Validator, logger))
		r.With(authmw.RequireRolesOrSelf(opts.Policy, auth.UsersUpdatePassword, isSelf, logger)).
			Patch("/{id}/password", HandleUpdateUserPassword(opts.Directory, opts.Validator, logger))
		r.With(guard(auth.UsersDelete)).Delete("/{id}", HandleDeleteUser(opts.Directory, logger))
	})

	r.Route("/departments", func(r chi.Router) {
		r.Use(requireAuthn)
		mountReference[models.Department](r, opts.Departments, opts.Policy, opts.Validator, logger)
	})
	r.Route("/positions", func(r chi.Router) {
		r.Use(requireAuthn)
		mountReference[models.Position](r, opts.Positions, opts.Policy, opts.Validator, logger)
	})

	return r, nil
}
