package users

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/services/directory"
)

var (
	pageFlag       int
	limitFlag      int
	roleFilterFlag string
	searchFlag     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Long:  `Lists accounts one page at a time. SuperAdmin accounts are never listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, bundle, err := loadServices()
		if err != nil {
			return err
		}
		defer bundle.Close()

		page, err := bundle.Directory.List(cmd.Context(), directory.ListQuery{
			Page:   pageFlag,
			Limit:  limitFlag,
			Roles:  directory.ParseRoleFilter(roleFilterFlag),
			Search: searchFlag,
		})
		if err != nil {
			return err
		}

		data := pterm.TableData{{"ID", "Email", "Name", "Roles", "Status"}}
		for _, a := range page.Items {
			data = append(data, []string{
				fmt.Sprint(a.ID),
				a.Email,
				a.FullName(),
				strings.Join(auth.RoleNames(a.RoleList()), ", "),
				string(a.Status),
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
		pterm.Info.Printfln("Page %d, %d of %d account(s)", page.Page, len(page.Items), page.Total)
		return nil
	},
}
