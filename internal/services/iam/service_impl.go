package iam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
	"github.com/wilschoy78/school-mis-api/internal/logging"
	"github.com/wilschoy78/school-mis-api/internal/repository"
)

// iamService implements the Service interface.
type iamService struct {
	accounts repository.AccountRepository
	tokens   *auth.TokenIssuer
	logger   *slog.Logger
	now      func() time.Time
}

// IAMServiceDependencies contains all dependencies for IAM service construction.
type IAMServiceDependencies struct {
	Accounts repository.AccountRepository
	Tokens   *auth.TokenIssuer
	Logger   *slog.Logger
}

// IAMServiceConfig contains optional settings for IAM service construction.
type IAMServiceConfig struct {
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewIAMService creates a new IAM service.
func NewIAMService(deps IAMServiceDependencies, cfg IAMServiceConfig) (Service, error) {
	if deps.Accounts == nil {
		return nil, errors.New("iam: account repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("iam: token issuer is required")
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &iamService{
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		logger:   logging.OrDiscard(deps.Logger).With("component", "iam"),
		now:      now,
	}, nil
}

func (s *iamService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(input.Email)

	// Fast path; the unique index settles races.
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("Email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	roles := input.Roles
	if len(roles) == 0 {
		roles = []auth.Role{auth.DefaultRole}
	}

	password := input.Password
	var temporary string
	if password == "" {
		generated, err := auth.GenerateTemporaryPassword()
		if err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		password, temporary = generated, generated
	}

	account := &models.Account{
		Email:      email,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		MiddleName: input.MiddleName,
		Phone:      input.Phone,
		Status:     models.StatusActive,
		Roles:      auth.NewRoleSet(roles...),
		// A generated password is only ever shown once.
		MustChangePassword: temporary != "",
	}
	account.SetPassword(password)

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	result, err := s.signIn(account)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	result.TemporaryPassword = temporary

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID, "roles", auth.RoleNames(account.RoleList()))
	return result, nil
}

func (s *iamService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.BurnPasswordCheck(password)
			s.logger.DebugContext(ctx, "login rejected", "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !account.IsActive() {
		auth.BurnPasswordCheck(password)
		s.logger.DebugContext(ctx, "login rejected", "reason", "account not active", "account_id", account.ID, "status", account.Status)
		return nil, ErrInvalidCredentials
	}

	if !account.CheckPassword(password) {
		s.logger.DebugContext(ctx, "login rejected", "reason", "wrong password", "account_id", account.ID)
		return nil, ErrInvalidCredentials
	}

	result, err := s.signIn(account)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	now := s.now()
	if err := s.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	account.LastLoginAt = &now

	s.logger.InfoContext(ctx, "login succeeded", "account_id", account.ID)
	return result, nil
}

func (s *iamService) ValidateSubject(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("validate subject: %w", err)
	}
	return account, nil
}

func (s *iamService) AuthenticateToken(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, err, ErrInvalidToken.Message)
	}

	id, err := claims.AccountID()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, err, ErrInvalidToken.Message)
	}

	if _, err := s.ValidateSubject(ctx, id); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Wrap(apperr.KindUnauthorized, err, ErrInvalidToken.Message)
		}
		return nil, err
	}

	return &auth.Principal{
		AccountID: id,
		Email:     claims.Email,
		Roles:     claims.Roles,
		TokenID:   claims.ID,
	}, nil
}

func (s *iamService) Bootstrap(ctx context.Context, input BootstrapInput) (bool, error) {
	exists, err := s.accounts.ExistsWithRole(ctx, auth.RoleSuperAdmin)
	if err != nil {
		return false, fmt.Errorf("bootstrap: %w", err)
	}
	if exists {
		s.logger.InfoContext(ctx, "bootstrap skipped, super admin already exists")
		return false, nil
	}

	account := &models.Account{
		Email:     strings.TrimSpace(input.Email),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Status:    models.StatusActive,
		Roles:     auth.NewRoleSet(auth.RoleSuperAdmin),
	}
	account.SetPassword(input.Password)

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return false, apperr.Conflict("Email already registered")
		}
		return false, fmt.Errorf("bootstrap: %w", err)
	}

	s.logger.InfoContext(ctx, "super admin created", "account_id", account.ID, "email", account.Email)
	return true, nil
}

// signIn issues a token for account.
func (s *iamService) signIn(account *models.Account) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(auth.TokenSubject{
		AccountID: account.ID,
		Email:     account.Email,
		Roles:     account.RoleList(),
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Account:            account,
		Token:              token,
		ExpiresAt:          claims.ExpiresAt.Time,
		MustChangePassword: account.MustChangePassword,
	}, nil
}
