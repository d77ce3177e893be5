package iam

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wilschoy78/school-mis-api/cmd/misapi/cmd/cmdutil"
	"github.com/wilschoy78/school-mis-api/internal/config"
)

// IamCmd is the parent command for identity administration
var IamCmd = &cobra.Command{
	Use:   "iam",
	Short: "Identity administration",
	Long:  `Commands for seeding and maintaining privileged accounts.`,
}

func init() {
	IamCmd.AddCommand(bootstrapCmd)
}

// loadServices reads configuration and opens the service bundle.
func loadServices() (*config.Config, *slog.Logger, *cmdutil.ServiceBundle, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := cmdutil.NewLogger(cfg)

	bundle, err := cmdutil.NewServiceBundle(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, bundle, nil
}
