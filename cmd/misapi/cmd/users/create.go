package users

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/wilschoy78/school-mis-api/cmd/misapi/cmd/cmdutil"
	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/services/directory"
)

var (
	emailFlag     string
	firstNameFlag string
	lastNameFlag  string
	passwordFlag  string
	rolesInput    []string
	stdinFlag     bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
		}

		roles, invalid := auth.ParseRoles(rolesInput)
		if len(invalid) > 0 {
			return fmt.Errorf("invalid role(s): %s\nValid roles are: %s",
				strings.Join(invalid, ", "),
				strings.Join(auth.RoleNames(auth.AllRoles), ", "))
		}

		password := passwordFlag
		if stdinFlag {
			var err error
			if password, err = readPassword("Enter password: "); err != nil {
				return err
			}
		}

		_, bundle, err := loadServices()
		if err != nil {
			return err
		}
		defer bundle.Close()

		account, err := bundle.Directory.Create(cmdutil.OperatorContext(cmd.Context()), directory.CreateInput{
			Email:     emailFlag,
			Password:  password,
			FirstName: firstNameFlag,
			LastName:  lastNameFlag,
			Roles:     roles,
		})
		if err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		pterm.Success.Println("Account created")
		err = pterm.DefaultTable.WithData(pterm.TableData{
			{"ID", fmt.Sprint(account.ID)},
			{"Email", account.Email},
			{"Name", account.FullName()},
			{"Roles", strings.Join(auth.RoleNames(account.RoleList()), ", ")},
		}).Render()
		if err != nil {
			return err
		}
		if account.MustChangePassword {
			pterm.Warning.Println("Default password assigned; the account must change it on first login.")
		}
		return nil
	},
}
