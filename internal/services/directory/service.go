// Package directory serves the administrative account directory: paginated
// listing, employee statistics and account maintenance. SuperAdmin accounts
// never appear in listings or statistics.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
	"github.com/wilschoy78/school-mis-api/internal/logging"
	"github.com/wilschoy78/school-mis-api/internal/repository"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// PasswordUpdatedMessage confirms UpdatePassword.
	PasswordUpdatedMessage = "Password updated successfully"
)

var hiddenRoles = []auth.Role{auth.RoleSuperAdmin}

// ListQuery selects one page of the directory. Page and Limit must be
// positive; NewListQuery fills the defaults.
type ListQuery struct {
	Page   int
	Limit  int
	Roles  RoleFilter
	Search string
}

// NewListQuery returns a query for the first page of every role.
func NewListQuery() ListQuery {
	return ListQuery{Page: DefaultPage, Limit: DefaultLimit, Roles: AllRoles}
}

// Page is one page of accounts plus the unpaginated match count.
type Page struct {
	Items []models.Account `json:"users"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// GroupCount is one bucket of a Stats breakdown. Key is nil for accounts
// with no value in the grouped column.
type GroupCount struct {
	Key   *string `json:"key"`
	Count int     `json:"count"`
}

// Stats summarizes the employee population.
type Stats struct {
	TotalEmployees int          `json:"totalEmployees"`
	ByDepartment   []GroupCount `json:"byDepartment"`
	ByPosition     []GroupCount `json:"byPosition"`
	ByStatus       []GroupCount `json:"byStatus"`
}

// Confirmation is a human-readable acknowledgement.
type Confirmation struct {
	Message string `json:"message"`
}

// Profile holds the optional descriptive fields of an account.
type Profile struct {
	MiddleName     *string
	Phone          *string
	EmployeeID     *string
	StudentID      *string
	Address        *string
	DateOfBirth    *string
	ProfilePicture *string
	Department     *string
	Position       *string
}

// CreateInput describes an account created by an administrator.
type CreateInput struct {
	Email     string
	Password  string // empty assigns the configured default password
	FirstName string
	LastName  string
	Roles     []auth.Role
	Profile
}

// UpdateInput is a partial account update. Nil fields are left unchanged.
type UpdateInput struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Roles     []auth.Role // nil keeps the current roles
	Status    *models.AccountStatus
	Profile
}

// Service is the directory query engine.
type Service struct {
	accounts        repository.AccountRepository
	defaultPassword string
	logger          *slog.Logger
}

// Config holds directory settings.
type Config struct {
	// DefaultPassword is assigned when Create receives no password.
	DefaultPassword string
	Logger          *slog.Logger
}

// NewService creates a directory service.
func NewService(accounts repository.AccountRepository, cfg Config) *Service {
	return &Service{
		accounts:        accounts,
		defaultPassword: cfg.DefaultPassword,
		logger:          logging.OrDiscard(cfg.Logger).With("component", "directory"),
	}
}

// List returns one page of non-SuperAdmin accounts.
func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	if q.Page <= 0 {
		return nil, apperr.InvalidArgument("page must be a positive integer")
	}
	if q.Limit <= 0 {
		return nil, apperr.InvalidArgument("limit must be a positive integer")
	}
	if q.Limit > MaxLimit {
		return nil, apperr.InvalidArgument("limit must not exceed %d", MaxLimit)
	}

	items, total, err := s.accounts.List(ctx, repository.AccountFilter{
		AnyRoles:     q.Roles.Roles(),
		ExcludeRoles: hiddenRoles,
		Search:       q.Search,
		Offset:       (q.Page - 1) * q.Limit,
		Limit:        q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if items == nil {
		items = []models.Account{}
	}
	return &Page{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Stats aggregates accounts holding an employee role.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	filter := repository.AccountFilter{
		AnyRoles:     auth.EmployeeRoles,
		ExcludeRoles: hiddenRoles,
	}

	total, err := s.accounts.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count employees: %w", err)
	}

	stats := &Stats{TotalEmployees: total}
	groups := []struct {
		field    repository.GroupField
		dest     *[]GroupCount
		keepNull bool
	}{
		{repository.GroupByDepartment, &stats.ByDepartment, false},
		{repository.GroupByPosition, &stats.ByPosition, false},
		{repository.GroupByStatus, &stats.ByStatus, true},
	}
	for _, g := range groups {
		counts, err := s.accounts.CountBy(ctx, g.field, filter)
		if err != nil {
			return nil, fmt.Errorf("count employees by %s: %w", g.field, err)
		}
		*g.dest = toGroupCounts(counts, g.keepNull)
	}
	return stats, nil
}

func toGroupCounts(in []repository.GroupCount, keepNull bool) []GroupCount {
	out := make([]GroupCount, 0, len(in))
	for _, c := range in {
		if c.Key == nil && !keepNull {
			continue
		}
		out = append(out, GroupCount{Key: c.Key, Count: c.Count})
	}
	return out
}

// Get returns one account by ID.
func (s *Service) Get(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return account, nil
}

// Create provisions an account. Without a password the configured default is
// assigned and the account must change it on first login. Only a super admin
// may grant super_admin.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Account, error) {
	if err := guardGrant(ctx, in.Roles); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("Email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("create account: %w", err)
	}

	roles := in.Roles
	if len(roles) == 0 {
		roles = []auth.Role{auth.DefaultRole}
	}

	account := &models.Account{
		Email:     email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Status:    models.StatusActive,
		Roles:     auth.NewRoleSet(roles...),
	}
	in.Profile.applyTo(account)

	if in.Password != "" {
		account.SetPassword(in.Password)
	} else {
		account.SetPassword(s.defaultPassword)
		account.MustChangePassword = true
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.InfoContext(ctx, "account created", "account_id", account.ID, "roles", auth.RoleNames(account.RoleList()))
	return account, nil
}

// Update applies a partial update and returns the saved account. Only the
// fields present in in are written.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*models.Account, error) {
	if in.Roles != nil && len(in.Roles) == 0 {
		return nil, apperr.InvalidArgument("roles must not be empty")
	}
	if err := guardGrant(ctx, in.Roles); err != nil {
		return nil, err
	}

	var hash string
	if in.Password != nil {
		if *in.Password == "" {
			return nil, apperr.InvalidArgument("password must not be empty")
		}
		h, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("update account: %w", err)
		}
		hash = h
	}

	var email string
	if in.Email != nil {
		email = strings.TrimSpace(*in.Email)
		existing, err := s.accounts.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != id:
			return nil, apperr.Conflict("Email already in use by another user")
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("update account: %w", err)
		}
	}

	account, err := s.accounts.Modify(ctx, id, func(a *models.Account) error {
		if err := guardTarget(ctx, a); err != nil {
			return err
		}
		if in.Email != nil {
			a.Email = email
		}
		if in.FirstName != nil {
			a.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			a.LastName = *in.LastName
		}
		if in.Roles != nil {
			a.Roles = auth.NewRoleSet(in.Roles...)
		}
		if in.Status != nil {
			a.Status = *in.Status
		}
		if in.Password != nil {
			a.PasswordHash = hash
		}
		in.Profile.applyTo(a)
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return account, nil
}

// UpdateStatus moves an account to status. Any transition is allowed.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status models.AccountStatus) (*models.Account, error) {
	if !slices.Contains(models.AllStatuses, status) {
		return nil, apperr.InvalidArgument("unknown status %q", status)
	}
	account, err := s.accounts.Modify(ctx, id, func(a *models.Account) error {
		if err := guardTarget(ctx, a); err != nil {
			return err
		}
		a.Status = status
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	s.logger.InfoContext(ctx, "account status changed", "account_id", id, "status", status)
	return account, nil
}

// UpdatePassword sets a new password and clears the forced-change flag.
// Every other column is left as stored.
func (s *Service) UpdatePassword(ctx context.Context, id int64, plaintext string) (*Confirmation, error) {
	if plaintext == "" {
		return nil, apperr.InvalidArgument("password must not be empty")
	}
	hash, err := auth.HashPassword(plaintext)
	if err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}

	_, err = s.accounts.Modify(ctx, id, func(a *models.Account) error {
		if err := guardTarget(ctx, a); err != nil {
			return err
		}
		a.PasswordHash = hash
		a.MustChangePassword = false
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.logger.InfoContext(ctx, "account password updated", "account_id", id)
	return &Confirmation{Message: PasswordUpdatedMessage}, nil
}

// Delete removes an account permanently.
func (s *Service) Delete(ctx context.Context, id int64) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return translate(err)
	}
	if err := guardTarget(ctx, account); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return translate(err)
	}
	s.logger.InfoContext(ctx, "account deleted", "account_id", id)
	return nil
}

// errSuperAdminOnly rejects callers without super_admin that grant the role
// or manage an account holding it.
var errSuperAdminOnly = apperr.Forbidden("only a super admin may manage super admin accounts")

func requireSuperAdminCaller(ctx context.Context) error {
	if p, ok := auth.PrincipalFromContext(ctx); ok && p.HasAny(auth.RoleSuperAdmin) {
		return nil
	}
	return errSuperAdminOnly
}

// guardTarget protects accounts holding super_admin from other callers.
func guardTarget(ctx context.Context, a *models.Account) error {
	if a.ExcludesRole(auth.RoleSuperAdmin) {
		return nil
	}
	return requireSuperAdminCaller(ctx)
}

// guardGrant lets only a super admin hand out super_admin.
func guardGrant(ctx context.Context, roles []auth.Role) error {
	if slices.Contains(roles, auth.RoleSuperAdmin) {
		return requireSuperAdminCaller(ctx)
	}
	return nil
}

func (p Profile) applyTo(a *models.Account) {
	set := func(dst **string, src *string) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}
	set(&a.MiddleName, p.MiddleName)
	set(&a.Phone, p.Phone)
	set(&a.EmployeeID, p.EmployeeID)
	set(&a.StudentID, p.StudentID)
	set(&a.Address, p.Address)
	set(&a.DateOfBirth, p.DateOfBirth)
	set(&a.ProfilePicture, p.ProfilePicture)
	set(&a.Department, p.Department)
	set(&a.Position, p.Position)
}

// translate maps repository sentinels onto caller-facing kinds.
func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("User not found")
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("Email already in use by another user")
	default:
		return err
	}
}
