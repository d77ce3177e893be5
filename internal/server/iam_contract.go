package server

import (
	"context"

	"github.com/wilschoy78/school-mis-api/internal/db/models"
	"github.com/wilschoy78/school-mis-api/internal/services/directory"
	"github.com/wilschoy78/school-mis-api/internal/services/iam"
	"github.com/wilschoy78/school-mis-api/internal/services/reference"
)

// authService is the subset of iam.Service the auth handlers call.
type authService interface {
	Register(ctx context.Context, input iam.RegisterInput) (*iam.AuthResult, error)
	Login(ctx context.Context, email, password string) (*iam.AuthResult, error)
	ValidateSubject(ctx context.Context, id int64) (*models.Account, error)
}

// directoryService is what the /users handlers need.
type directoryService interface {
	List(ctx context.Context, q directory.ListQuery) (*directory.Page, error)
	Stats(ctx context.Context) (*directory.Stats, error)
	Get(ctx context.Context, id int64) (*models.Account, error)
	Create(ctx context.Context, in directory.CreateInput) (*models.Account, error)
	Update(ctx context.Context, id int64, in directory.UpdateInput) (*models.Account, error)
	UpdateStatus(ctx context.Context, id int64, status models.AccountStatus) (*models.Account, error)
	UpdatePassword(ctx context.Context, id int64, plaintext string) (*directory.Confirmation, error)
	Delete(ctx context.Context, id int64) error
}

// referenceService is what the /departments and /positions handlers need.
type referenceService[T any] interface {
	Kind() models.ReferenceKind
	List(ctx context.Context, f reference.Filter) ([]T, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, in reference.CreateInput) (*T, error)
	Update(ctx context.Context, id int64, in reference.UpdateInput) (*T, error)
	ToggleActive(ctx context.Context, id int64) (*T, error)
}

// Compile-time verification that the concrete services satisfy the handler contracts.
var (
	_ authService                         = (iam.Service)(nil)
	_ directoryService                    = (*directory.Service)(nil)
	_ referenceService[models.Department] = (*reference.DepartmentService)(nil)
	_ referenceService[models.Position]   = (*reference.PositionService)(nil)
)
