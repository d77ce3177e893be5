// Package reference manages the department and position taxonomies that
// accounts are tagged with.
package reference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
	"github.com/wilschoy78/school-mis-api/internal/logging"
	"github.com/wilschoy78/school-mis-api/internal/repository"
)

// Model is satisfied by *models.Department and *models.Position.
type Model[T any] interface {
	*T
	Ref() *models.ReferenceData
}

// Filter narrows List.
type Filter struct {
	Category string
	IsActive *bool
}

// CreateInput describes a new entry. Category defaults to the kind's
// default; IsActive defaults to true.
type CreateInput struct {
	Name        string
	Description *string
	Category    string
	IsActive    *bool
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Category    *string
	IsActive    *bool
}

// Service implements CRUD and activation toggling for one reference table.
type Service[T any, P Model[T]] struct {
	repo   repository.ReferenceRepository[T]
	kind   models.ReferenceKind
	logger *slog.Logger
}

// NewService creates a reference data service over repo.
func NewService[T any, P Model[T]](repo repository.ReferenceRepository[T], logger *slog.Logger) *Service[T, P] {
	kind := repo.Kind()
	return &Service[T, P]{
		repo:   repo,
		kind:   kind,
		logger: logging.OrDiscard(logger).With("component", strings.ToLower(kind.Name)+"s"),
	}
}

// DepartmentService manages departments.
type DepartmentService = Service[models.Department, *models.Department]

// PositionService manages positions.
type PositionService = Service[models.Position, *models.Position]

// NewDepartmentService creates the department service.
func NewDepartmentService(repo repository.ReferenceRepository[models.Department], logger *slog.Logger) *DepartmentService {
	return NewService[models.Department, *models.Department](repo, logger)
}

// NewPositionService creates the position service.
func NewPositionService(repo repository.ReferenceRepository[models.Position], logger *slog.Logger) *PositionService {
	return NewService[models.Position, *models.Position](repo, logger)
}

// Kind describes the table this service manages.
func (s *Service[T, P]) Kind() models.ReferenceKind { return s.kind }

// List returns entries ordered by name.
func (s *Service[T, P]) List(ctx context.Context, f Filter) ([]T, error) {
	if f.Category != "" && !s.kind.ValidCategory(f.Category) {
		return nil, s.invalidCategory(f.Category)
	}
	items, err := s.repo.List(ctx, repository.ReferenceFilter{Category: f.Category, IsActive: f.IsActive})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get returns one entry by ID.
func (s *Service[T, P]) Get(ctx context.Context, id int64) (*T, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}
	return item, nil
}

// Create adds an entry with a unique name.
func (s *Service[T, P]) Create(ctx context.Context, in CreateInput) (*T, error) {
	name, err := s.validName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, name); err != nil {
		return nil, err
	}

	category := in.Category
	if category == "" {
		category = s.kind.DefaultCategory
	}
	if !s.kind.ValidCategory(category) {
		return nil, s.invalidCategory(category)
	}

	item := new(T)
	ref := P(item).Ref()
	ref.Name = name
	ref.Description = in.Description
	ref.Category = category
	ref.IsActive = in.IsActive == nil || *in.IsActive

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, s.translate(err, 0)
	}
	s.logger.InfoContext(ctx, "reference entry created", "id", ref.ID, "name", ref.Name)
	return item, nil
}

// Update applies a partial update. Renaming onto an existing name conflicts.
func (s *Service[T, P]) Update(ctx context.Context, id int64, in UpdateInput) (*T, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := P(item).Ref()

	if in.Name != nil {
		name, err := s.validName(*in.Name)
		if err != nil {
			return nil, err
		}
		if name != ref.Name {
			if err := s.ensureNameFree(ctx, name); err != nil {
				return nil, err
			}
			ref.Name = name
		}
	}
	if in.Description != nil {
		ref.Description = in.Description
	}
	if in.Category != nil {
		if !s.kind.ValidCategory(*in.Category) {
			return nil, s.invalidCategory(*in.Category)
		}
		ref.Category = *in.Category
	}
	if in.IsActive != nil {
		ref.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, s.translate(err, id)
	}
	return item, nil
}

// ToggleActive flips IsActive and returns the saved entry.
func (s *Service[T, P]) ToggleActive(ctx context.Context, id int64) (*T, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := P(item).Ref()
	ref.IsActive = !ref.IsActive

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, s.translate(err, id)
	}
	s.logger.InfoContext(ctx, "reference entry toggled", "id", id, "active", ref.IsActive)
	return item, nil
}

func (s *Service[T, P]) validName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n == 0 || n > models.MaxReferenceNameLength {
		return "", apperr.InvalidArgument("name must be between 1 and %d characters", models.MaxReferenceNameLength)
	}
	return name, nil
}

func (s *Service[T, P]) ensureNameFree(ctx context.Context, name string) error {
	_, err := s.repo.GetByName(ctx, name)
	switch {
	case err == nil:
		return s.nameTaken()
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check %s name: %w", strings.ToLower(s.kind.Name), err)
	}
}

func (s *Service[T, P]) nameTaken() error {
	return apperr.Conflict("%s name already exists", s.kind.Name)
}

func (s *Service[T, P]) invalidCategory(c string) error {
	return apperr.InvalidArgument("category must be one of %s, got %q", strings.Join(s.kind.Categories, ", "), c)
}

func (s *Service[T, P]) translate(err error, id int64) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("%s with ID %d not found", s.kind.Name, id)
	case errors.Is(err, repository.ErrConflict):
		return s.nameTaken()
	default:
		return err
	}
}
