package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registry every migration file adds itself to from init().
var Migrations = migrate.NewMigrations()

// Apply initializes the migration tables and runs all pending migrations.
// It returns the applied group (ID 0 when nothing was pending).
func Apply(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}

// dropTables drops tables in the given order. PostgreSQL drops dependent
// constraints with CASCADE; SQLite has no CASCADE clause.
func dropTables(ctx context.Context, db *bun.DB, tables ...string) error {
	for _, table := range tables {
		fmt.Printf(" [down] dropping %s table...", table)
		q := db.NewDropTable().Table(table).IfExists()
		if IsPostgreSQL(db) {
			q = q.Cascade()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", table, err)
		}
		fmt.Println(" OK")
	}
	return nil
}
