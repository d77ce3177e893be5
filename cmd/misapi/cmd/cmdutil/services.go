// Package cmdutil wires configuration into the database, repositories and
// services shared by the misapi subcommands.
package cmdutil

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/config"
	"github.com/wilschoy78/school-mis-api/internal/db/bunx"
	"github.com/wilschoy78/school-mis-api/internal/logging"
	"github.com/wilschoy78/school-mis-api/internal/repository"
	"github.com/wilschoy78/school-mis-api/internal/services/directory"
	"github.com/wilschoy78/school-mis-api/internal/services/iam"
	"github.com/wilschoy78/school-mis-api/internal/services/reference"
)

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.Options{Format: cfg.LogFormat, Debug: cfg.Debug})
}

// OperatorEmail identifies the CLI operator in audit logs.
const OperatorEmail = "cli-operator"

// OperatorContext marks ctx as acting for the local operator. Commands run with
// direct database access, so the operator holds super_admin.
func OperatorContext(ctx context.Context) context.Context {
	return auth.SetPrincipal(ctx, auth.Principal{
		Email: OperatorEmail,
		Roles: []auth.Role{auth.RoleSuperAdmin},
	})
}

// OpenDB connects to cfg.DatabaseURL, retrying the initial ping.
func OpenDB(cfg *config.Config, logger *slog.Logger) (*bun.DB, error) {
	db, err := bunx.NewDB(cfg.DatabaseURL,
		bunx.WithMaxConns(cfg.MaxDBConnections),
		bunx.WithPingRetry(cfg.DBConnectRetries, 500*time.Millisecond),
		bunx.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// ServiceBundle bundles the services with their underlying DB connection so
// callers can reuse the connection for other repositories when necessary.
type ServiceBundle struct {
	DB          *bun.DB
	Tokens      *auth.TokenIssuer
	Accounts    *repository.BunAccountRepository
	IAM         iam.Service
	Directory   *directory.Service
	Departments *reference.DepartmentService
	Positions   *reference.PositionService
}

// Close releases the underlying database connection.
func (b *ServiceBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// NewServiceBundle centralizes service construction for CLI commands and the
// server. It connects to the database, wires repositories and returns
// ready-to-use services.
func NewServiceBundle(cfg *config.Config, logger *slog.Logger) (*ServiceBundle, error) {
	logger = logging.OrDiscard(logger)

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:    []byte(cfg.JWT.Secret),
		TTL:       cfg.JWT.TTL,
		Issuer:    cfg.JWT.Issuer,
		CacheSize: cfg.JWT.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	db, err := OpenDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	accounts := repository.NewBunAccountRepository(db)
	iamService, err := iam.NewIAMService(
		iam.IAMServiceDependencies{Accounts: accounts, Tokens: tokens, Logger: logger},
		iam.IAMServiceConfig{},
	)
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to create IAM service: %w", err)
	}

	return &ServiceBundle{
		DB:       db,
		Tokens:   tokens,
		Accounts: accounts,
		IAM:      iamService,
		Directory: directory.NewService(accounts, directory.Config{
			DefaultPassword: cfg.Accounts.DefaultPassword,
			Logger:          logger,
		}),
		Departments: reference.NewDepartmentService(repository.NewBunDepartmentRepository(db), logger),
		Positions:   reference.NewPositionService(repository.NewBunPositionRepository(db), logger),
	}, nil
}
