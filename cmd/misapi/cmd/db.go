package cmd

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/wilschoy78/school-mis-api/cmd/misapi/cmd/cmdutil"
	"github.com/wilschoy78/school-mis-api/internal/db/bunx"
	"github.com/wilschoy78/school-mis-api/internal/logging"
	"github.com/wilschoy78/school-mis-api/internal/migrations"
)

// withMigrator opens the database and hands fn a migrator over the
// registered account and reference-data migrations.
func withMigrator(fn func(*migrate.Migrator) error) error {
	db, err := cmdutil.OpenDB(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = bunx.Close(db) }()

	return fn(migrate.NewMigrator(db, migrations.Migrations))
}

// locked runs fn while holding the migration lock.
func locked(ctx context.Context, m *migrate.Migrator, fn func() error) error {
	if err := m.Lock(ctx); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if err := m.Unlock(ctx); err != nil {
			logger.Warn("failed to release migration lock", logging.Err(err))
		}
	}()
	return fn()
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing database migrations and schema.`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize migration tables",
	Long:  `Creates the migration tracking tables in the database. Run this once during initial setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withMigrator(func(m *migrate.Migrator) error {
			if err := m.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			pterm.Success.Println("Migration tables initialized")
			return nil
		})
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies all pending migrations to the database with locking to prevent concurrent migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withMigrator(func(m *migrate.Migrator) error {
			if err := m.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			return locked(ctx, m, func() error {
				group, err := m.Migrate(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				if group.ID == 0 {
					pterm.Info.Println("No new migrations to apply")
					return nil
				}
				pterm.Success.Printfln("Applied migration group %d", group.ID)
				return nil
			})
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long:  `Displays the current migration status and pending migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withMigrator(func(m *migrate.Migrator) error {
			ms, err := m.MigrationsWithStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			data := pterm.TableData{{"Migration", "Status"}}
			for _, mig := range ms {
				status := pterm.Yellow("pending")
				if mig.GroupID > 0 {
					status = pterm.Green(fmt.Sprintf("applied (group %d)", mig.GroupID))
				}
				data = append(data, []string{mig.Name, status})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback last migration group",
	Long:  `Rolls back the most recently applied migration group with locking to prevent concurrent operations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withMigrator(func(m *migrate.Migrator) error {
			return locked(ctx, m, func() error {
				group, err := m.Rollback(ctx)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				if group.ID == 0 {
					pterm.Info.Println("No migrations to rollback")
					return nil
				}
				pterm.Success.Printfln("Rolled back migration group %d", group.ID)
				return nil
			})
		})
	},
}

var dbUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Force release migration lock",
	Long:  `Force releases the migration lock. Use this if a migration crashed while holding the lock.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withMigrator(func(m *migrate.Migrator) error {
			if err := m.Unlock(ctx); err != nil {
				return fmt.Errorf("failed to release migration lock: %w", err)
			}
			pterm.Success.Println("Migration lock released")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
	dbCmd.AddCommand(dbUnlockCmd)
}
