package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/wilschoy78/school-mis-api/internal/db/models"
)

// referenceModel is satisfied by *models.Department and *models.Position.
type referenceModel[T any] interface {
	*T
	Ref() *models.ReferenceData
}

// BunReferenceRepository implements ReferenceRepository for one reference table.
type BunReferenceRepository[T any, P referenceModel[T]] struct {
	db   *bun.DB
	kind models.ReferenceKind
	now  func() time.Time
}

// NewBunDepartmentRepository creates a repository over the departments table
func NewBunDepartmentRepository(db *bun.DB) *BunReferenceRepository[models.Department, *models.Department] {
	return &BunReferenceRepository[models.Department, *models.Department]{db: db, kind: models.DepartmentKind, now: time.Now}
}

// NewBunPositionRepository creates a repository over the positions table
func NewBunPositionRepository(db *bun.DB) *BunReferenceRepository[models.Position, *models.Position] {
	return &BunReferenceRepository[models.Position, *models.Position]{db: db, kind: models.PositionKind, now: time.Now}
}

func (r *BunReferenceRepository[T, P]) Kind() models.ReferenceKind {
	return r.kind
}

// Create inserts a new row and fills its ID
func (r *BunReferenceRepository[T, P]) Create(ctx context.Context, item *T) error {
	ref := P(item).Ref()
	now := r.now().UTC()
	ref.CreatedAt = now
	ref.UpdatedAt = now

	if _, err := r.db.NewInsert().Model(item).Returning("id").Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s name %q already exists", ErrConflict, r.kind.Name, ref.Name)
		}
		return fmt.Errorf("create %s: %w", r.kind.Name, err)
	}
	return nil
}

// GetByID retrieves one row by ID
func (r *BunReferenceRepository[T, P]) GetByID(ctx context.Context, id int64) (*T, error) {
	item := new(T)
	err := r.db.NewSelect().Model(item).Where("?TableAlias.id = ?", id).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s %d", ErrNotFound, r.kind.Name, id)
		}
		return nil, fmt.Errorf("get %s by ID: %w", r.kind.Name, err)
	}
	return item, nil
}

// GetByName retrieves one row by exact name
func (r *BunReferenceRepository[T, P]) GetByName(ctx context.Context, name string) (*T, error) {
	item := new(T)
	err := r.db.NewSelect().Model(item).Where("?TableAlias.name = ?", name).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s %q", ErrNotFound, r.kind.Name, name)
		}
		return nil, fmt.Errorf("get %s by name: %w", r.kind.Name, err)
	}
	return item, nil
}

// Update saves every mutable column
func (r *BunReferenceRepository[T, P]) Update(ctx context.Context, item *T) error {
	ref := P(item).Ref()
	ref.UpdatedAt = r.now().UTC()

	result, err := r.db.NewUpdate().
		Model(item).
		ExcludeColumn("id", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s name %q already exists", ErrConflict, r.kind.Name, ref.Name)
		}
		return fmt.Errorf("update %s: %w", r.kind.Name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, r.kind.Name, ref.ID)
	}
	return nil
}

// List returns rows matching filter ordered by name
func (r *BunReferenceRepository[T, P]) List(ctx context.Context, filter ReferenceFilter) ([]T, error) {
	var items []T
	q := r.db.NewSelect().Model(&items)
	if filter.Category != "" {
		q = q.Where("?TableAlias.category = ?", filter.Category)
	}
	if filter.IsActive != nil {
		q = q.Where("?TableAlias.is_active = ?", *filter.IsActive)
	}
	if err := q.Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.kind.Name, err)
	}
	return items, nil
}

var (
	_ ReferenceRepository[models.Department] = (*BunReferenceRepository[models.Department, *models.Department])(nil)
	_ ReferenceRepository[models.Position]   = (*BunReferenceRepository[models.Position, *models.Position])(nil)
	_ AccountRepository                      = (*BunAccountRepository)(nil)
)
