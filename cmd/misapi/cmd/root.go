package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wilschoy78/school-mis-api/cmd/misapi/cmd/cmdutil"
	"github.com/wilschoy78/school-mis-api/cmd/misapi/cmd/iam"
	"github.com/wilschoy78/school-mis-api/cmd/misapi/cmd/users"
	"github.com/wilschoy78/school-mis-api/internal/config"
)

var (
	cfg        *config.Config
	logger     *slog.Logger
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "misapi",
	Short: "School MIS API server",
	Long: `misapi serves the identity and access-control API of the school management
information system: accounts, roles, login tokens and the staff directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(); err != nil {
			return err
		}
		if err := readConfigFile(); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = cmdutil.NewLogger(cfg)
		slog.SetDefault(logger)
		return nil
	},
}

// loadEnvFile loads .env from the working directory when present. Variables
// already set in the environment win.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func readConfigFile() error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("misapi")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/misapi")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func init() {
	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default: ./misapi.yaml or /etc/misapi/misapi.yaml)")
	flags.String("db-url", "", "Database connection URL (env: MIS_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: MIS_SERVER_ADDR)")
	flags.Bool("debug", false, "Enable debug logging (env: MIS_DEBUG)")

	_ = viper.BindPFlag("database_url", flags.Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", flags.Lookup("server-addr"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	// Add subcommands
	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(iam.IamCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
