package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/wilschoy78/school-mis-api/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20251101000001, down_20251101000001)
}

// up_20251101000001 creates the departments and positions reference tables
func up_20251101000001(ctx context.Context, db *bun.DB) error {
	tables := []struct {
		name  string
		model any
	}{
		{"departments", (*models.Department)(nil)},
		{"positions", (*models.Position)(nil)},
	}

	for _, tbl := range tables {
		fmt.Printf(" [up] creating %s table...", tbl.name)
		_, err := db.NewCreateTable().
			Model(tbl.model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create %s table: %w", tbl.name, err)
		}

		stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_category ON %[1]s(category, is_active)`, tbl.name)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create %s category index: %w", tbl.name, err)
		}
		fmt.Println(" OK")
	}

	return nil
}

// down_20251101000001 drops the reference tables
func down_20251101000001(ctx context.Context, db *bun.DB) error {
	return dropTables(ctx, db, "positions", "departments")
}
