package users

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wilschoy78/school-mis-api/cmd/misapi/cmd/cmdutil"
	"github.com/wilschoy78/school-mis-api/internal/config"
)

// UsersCmd is the parent command for user management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage accounts",
	Long:  `Commands for managing accounts directly against the database, bypassing the HTTP API.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the account")
	createCmd.Flags().StringVar(&firstNameFlag, "first-name", "", "First name")
	createCmd.Flags().StringVar(&lastNameFlag, "last-name", "", "Last name")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password (use --stdin to avoid shell history; empty assigns the default password)")
	createCmd.Flags().StringSliceVar(&rolesInput, "role", []string{}, "Role(s) to assign (default staff)")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read the password from the terminal or stdin")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("first-name")
	_ = createCmd.MarkFlagRequired("last-name")

	listCmd.Flags().IntVar(&pageFlag, "page", 1, "Page number")
	listCmd.Flags().IntVar(&limitFlag, "limit", 20, "Page size")
	listCmd.Flags().StringVar(&roleFilterFlag, "role", "", "Role filter: a role name or a JSON array of role names")
	listCmd.Flags().StringVar(&searchFlag, "search", "", "Case-insensitive match on name or email")

	resetPasswordCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read the new password from the terminal or stdin")

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(listCmd)
	UsersCmd.AddCommand(setStatusCmd)
	UsersCmd.AddCommand(resetPasswordCmd)
}

func loadServices() (*slog.Logger, *cmdutil.ServiceBundle, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := cmdutil.NewLogger(cfg)
	bundle, err := cmdutil.NewServiceBundle(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return logger, bundle, nil
}

// readPassword prompts without echo on a terminal and falls back to a plain
// line read when stdin is piped.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return "", nil
}
