package users

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/wilschoy78/school-mis-api/cmd/misapi/cmd/cmdutil"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", arg)
	}
	return id, nil
}

var setStatusCmd = &cobra.Command{
	Use:   "set-status <id> <active|inactive|suspended>",
	Short: "Change an account's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status, err := models.ParseStatus(args[1])
		if err != nil {
			return err
		}

		_, bundle, err := loadServices()
		if err != nil {
			return err
		}
		defer bundle.Close()

		account, err := bundle.Directory.UpdateStatus(cmdutil.OperatorContext(cmd.Context()), id, status)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("%s is now %s", account.Email, account.Status)
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <id>",
	Short: "Set a new password for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if !stdinFlag {
			return fmt.Errorf("--stdin is required so the password stays out of shell history")
		}
		password, err := readPassword("New password: ")
		if err != nil {
			return err
		}

		_, bundle, err := loadServices()
		if err != nil {
			return err
		}
		defer bundle.Close()

		res, err := bundle.Directory.UpdatePassword(cmdutil.OperatorContext(cmd.Context()), id, password)
		if err != nil {
			return err
		}
		pterm.Success.Println(res.Message)
		return nil
	},
}
