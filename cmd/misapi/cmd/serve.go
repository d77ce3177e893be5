package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wilschoy78/school-mis-api/cmd/misapi/cmd/cmdutil"
	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/config"
	"github.com/wilschoy78/school-mis-api/internal/logging"
	"github.com/wilschoy78/school-mis-api/internal/migrations"
	"github.com/wilschoy78/school-mis-api/internal/server"
	"github.com/wilschoy78/school-mis-api/internal/services/iam"
	"github.com/wilschoy78/school-mis-api/internal/services/validation"
	"github.com/wilschoy78/school-mis-api/internal/telemetry"
)

var (
	migrateOnStart   bool
	bootstrapOnStart bool
	schemaCacheSize  int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MIS API server",
	Long:  `Starts the HTTP server exposing the auth, users, departments and positions endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		bundle, err := cmdutil.NewServiceBundle(cfg, logger)
		if err != nil {
			return err
		}
		defer bundle.Close()
		logger.Info("connected to database")

		if migrateOnStart {
			group, err := migrations.Apply(ctx, bundle.DB)
			if err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			if group.ID == 0 {
				logger.Info("no new migrations to apply")
			} else {
				logger.Info("applied migration group", "group", group.ID)
			}
		}

		if bootstrapOnStart {
			if err := seedSuperAdmin(ctx, bundle.IAM, cfg.Bootstrap, logger); err != nil {
				return err
			}
		}

		policy, err := auth.NewPolicy(auth.DefaultOperations...)
		if err != nil {
			return fmt.Errorf("configure role policy: %w", err)
		}

		validator, err := validation.NewRequestValidator(schemaCacheSize)
		if err != nil {
			return fmt.Errorf("create request validator: %w", err)
		}
		// Fail at startup rather than on the first request with a broken schema.
		if err := validator.Precompile(); err != nil {
			return fmt.Errorf("compile request schemas: %w", err)
		}
		logger.Info("request schemas compiled", "schemas", validator.CacheSize())

		healthHandler := func(w http.ResponseWriter, r *http.Request) {
			if err := bundle.DB.PingContext(r.Context()); err != nil {
				logger.Warn("health check failed", logging.Err(err))
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		}

		corsOpts := server.DefaultCORSOptions(cfg.FrontendOrigin)
		r, err := server.NewRouter(server.RouterOptions{
			IAM:           bundle.IAM,
			Authenticator: iam.NewBearerAuthenticator(bundle.IAM),
			Policy:        policy,
			Directory:     bundle.Directory,
			Departments:   bundle.Departments,
			Positions:     bundle.Positions,
			Validator:     validator,
			Metrics:       telemetry.NewMetrics(),
			Logger:        logger,
			CORSOptions:   &corsOpts,
			HealthHandler: healthHandler,
		})
		if err != nil {
			return fmt.Errorf("build router: %w", err)
		}

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server",
				"addr", cfg.ServerAddr,
				"frontend_origin", cfg.FrontendOrigin,
				"token_ttl", bundle.Tokens.TTL().String(),
			)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down gracefully", "signal", sig.String())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			logger.Info("server stopped")
			return nil
		}
	},
}

// seedSuperAdmin creates the SuperAdmin from bc unless one already exists.
func seedSuperAdmin(ctx context.Context, svc iam.Service, bc config.BootstrapConfig, logger *slog.Logger) error {
	created, err := svc.Bootstrap(ctx, iam.BootstrapInput{
		Email:     bc.Email,
		Password:  bc.Password,
		FirstName: bc.FirstName,
		LastName:  bc.LastName,
	})
	if err != nil {
		return fmt.Errorf("bootstrap super admin: %w", err)
	}
	if created {
		logger.Info("super admin created", "email", bc.Email)
	} else {
		logger.Info("super admin already present")
	}
	return nil
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Apply pending database migrations before serving")
	serveCmd.Flags().BoolVar(&bootstrapOnStart, "bootstrap", false, "Seed the SuperAdmin from the bootstrap configuration before serving")
	serveCmd.Flags().IntVar(&schemaCacheSize, "schema-cache-size", 32, "Number of compiled request schemas to keep in memory")
	rootCmd.AddCommand(serveCmd)
}
