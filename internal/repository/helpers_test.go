package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/bunx"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
	"github.com/wilschoy78/school-mis-api/internal/migrations"
)

// fixtureHash is a bcrypt hash so fixtures skip the cost-12 hashing.
const fixtureHash = "$2a$04$0b6sJ1p3l6n9m0c5n0dYoeQeCq8b7l8S6yZ1p0JY9lC8r2Q1x0p0G"

// setupSQLite opens a private in-memory database with every migration applied.
func setupSQLite(t *testing.T) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	_, err = migrations.Apply(context.Background(), db)
	require.NoError(t, err)
	return db
}

func newAccount(email string, roles ...auth.Role) *models.Account {
	return &models.Account{
		Email:        email,
		PasswordHash: fixtureHash,
		FirstName:    "Test",
		LastName:     "Account",
		Status:       models.StatusActive,
		Roles:        auth.NewRoleSet(roles...),
	}
}

func strPtr(s string) *string { return &s }

func emails(accounts []models.Account) []string {
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.Email
	}
	return out
}

func newPositionFixture(name string) *models.Position {
	return &models.Position{ReferenceData: models.ReferenceData{
		Name:     name,
		Category: "teaching",
		IsActive: true,
	}}
}
