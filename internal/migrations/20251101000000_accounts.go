package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/wilschoy78/school-mis-api/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20251101000000, down_20251101000000)
}

// up_20251101000000 creates accounts and the normalized account_roles set table
func up_20251101000000(ctx context.Context, db *bun.DB) error {
	// 1. Create accounts table
	fmt.Print(" [up] creating accounts table...")
	_, err := db.NewCreateTable().
		Model((*models.Account)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}

	// email carries a unique constraint from the model; these back directory filters
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_accounts_status ON accounts(status)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_department ON accounts(department)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_position ON accounts("position")`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create accounts index: %w", err)
		}
	}
	fmt.Println(" OK")

	// 2. Create account_roles table (composite PK collapses duplicate roles)
	fmt.Print(" [up] creating account_roles table...")
	_, err = db.NewCreateTable().
		Model((*models.AccountRole)(nil)).
		IfNotExists().
		ForeignKey(`("account_id") REFERENCES "accounts" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create account_roles table: %w", err)
	}

	// Role lookups drive the EXISTS membership predicate
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_account_roles_role ON account_roles(role, account_id)`)
	if err != nil {
		return fmt.Errorf("failed to create account_roles role index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20251101000000 drops account tables in reverse order
func down_20251101000000(ctx context.Context, db *bun.DB) error {
	return dropTables(ctx, db, "account_roles", "accounts")
}
