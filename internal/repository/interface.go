package repository

import (
	"context"
	"time"

	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
)

// AccountFilter narrows account queries. Zero value matches every account.
type AccountFilter struct {
	// AnyRoles keeps accounts holding at least one of these roles.
	AnyRoles []auth.Role
	// ExcludeRoles drops accounts holding any of these roles.
	ExcludeRoles []auth.Role
	// Search matches first name, last name or email, case-insensitively.
	Search string

	Offset int
	Limit  int // 0 means unlimited
}

// GroupField is a column accounts can be grouped by.
type GroupField string

const (
	GroupByDepartment GroupField = "department"
	GroupByPosition   GroupField = "position"
	GroupByStatus     GroupField = "status"
)

// Valid reports whether f is a groupable column.
func (f GroupField) Valid() bool {
	switch f {
	case GroupByDepartment, GroupByPosition, GroupByStatus:
		return true
	}
	return false
}

// GroupCount is one bucket of a grouped count. Key is nil for NULL values.
type GroupCount struct {
	Key   *string `bun:"group_key"`
	Count int     `bun:"group_count"`
}

// AccountRepository exposes persistence operations for accounts and their role sets.
type AccountRepository interface {
	// Create inserts the account and its roles, hashing a pending password.
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// Modify runs fn against the stored account inside one transaction and
	// writes back only the columns fn changed.
	Modify(ctx context.Context, id int64, fn func(*models.Account) error) (*models.Account, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error

	List(ctx context.Context, filter AccountFilter) ([]models.Account, int, error)
	Count(ctx context.Context, filter AccountFilter) (int, error)
	CountBy(ctx context.Context, field GroupField, filter AccountFilter) ([]GroupCount, error)
	ExistsWithRole(ctx context.Context, role auth.Role) (bool, error)
}

// ReferenceFilter narrows department and position listings.
type ReferenceFilter struct {
	Category string
	IsActive *bool
}

// ReferenceRepository exposes persistence for a reference table (departments or positions).
type ReferenceRepository[T any] interface {
	Kind() models.ReferenceKind
	Create(ctx context.Context, item *T) error
	GetByID(ctx context.Context, id int64) (*T, error)
	GetByName(ctx context.Context, name string) (*T, error)
	Update(ctx context.Context, item *T) error
	List(ctx context.Context, filter ReferenceFilter) ([]T, error)
}
