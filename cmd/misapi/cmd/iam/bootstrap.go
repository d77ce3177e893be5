package iam

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/wilschoy78/school-mis-api/internal/migrations"
	"github.com/wilschoy78/school-mis-api/internal/services/iam"
)

var (
	emailFlag   string
	migrateFlag bool
)

// bootstrapCmd seeds the SuperAdmin account
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Seed the SuperAdmin account",
	Long: `Create the SuperAdmin account from the bootstrap configuration.

The account is created only when no SuperAdmin exists yet, so the command is
safe to run on every deploy. The SuperAdmin never appears
in directory listings or statistics.

Configuration keys (env prefix MIS_):
  bootstrap.email, bootstrap.password, bootstrap.first_name, bootstrap.last_name

Example:
  MIS_BOOTSTRAP_PASSWORD='s3cret-pass' misapi iam bootstrap --migrate
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, bundle, err := loadServices()
		if err != nil {
			return err
		}
		defer bundle.Close()

		if migrateFlag {
			if _, err := migrations.Apply(ctx, bundle.DB); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
		}

		email := cfg.Bootstrap.Email
		if emailFlag != "" {
			email = emailFlag
		}

		created, err := bundle.IAM.Bootstrap(ctx, iam.BootstrapInput{
			Email:     email,
			Password:  cfg.Bootstrap.Password,
			FirstName: cfg.Bootstrap.FirstName,
			LastName:  cfg.Bootstrap.LastName,
		})
		if err != nil {
			return fmt.Errorf("bootstrap super admin: %w", err)
		}

		if !created {
			logger.Info("super admin already present")
			pterm.Info.Println("A SuperAdmin already exists, nothing to do")
			return nil
		}

		logger.Info("super admin created", "email", email)
		pterm.Success.Printfln("SuperAdmin %s created", email)
		pterm.Warning.Println("Change the bootstrap password after the first login.")
		return nil
	},
}

func init() {
	bootstrapCmd.Flags().StringVar(&emailFlag, "email", "", "Override bootstrap.email")
	bootstrapCmd.Flags().BoolVar(&migrateFlag, "migrate", false, "Apply pending migrations first")
}
