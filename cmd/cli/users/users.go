package users

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crucial707/auditlog-admin/cmd/cli/client"
	"github.com/crucial707/auditlog-admin/cmd/cli/output"
	"github.com/crucial707/auditlog-admin/internal/models"
)

const basePath = "/admin/auth/user/"

// ==========================
// CLI Command Init
// ==========================
func InitUsers(rootCmd *cobra.Command) {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage admin accounts",
		Long: `List and create accounts of the audit log admin.
Every change made here is itself recorded as a log entry.`,
	}
	usersCmd.AddCommand(listCmd(), createCmd())
	rootCmd.AddCommand(usersCmd)
}

// ==========================
// List Users
// ==========================
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Items []models.User `json:"items"`
				Total int           `json:"total"`
			}
			if err := client.Get(basePath, url.Values{"limit": {"500"}}, &res); err != nil {
				return err
			}
			rows := make([][]interface{}, 0, len(res.Items))
			for _, u := range res.Items {
				rows = append(rows, []interface{}{u.ID, u.Username, u.String(), u.Email, u.Role, u.IsActive, strings.Join(u.Permissions, " ")})
			}
			output.RenderTable([]string{"ID", "Username", "Name", "Email", "Role", "Active", "Permissions"}, rows)
			return nil
		},
	}
}

// ==========================
// Create User
// ==========================
func createCmd() *cobra.Command {
	var (
		username, password, email, role string
		perms                           []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"username":    username,
				"password":    password,
				"email":       email,
				"role":        role,
				"permissions": perms,
			}
			var u models.User
			if err := client.Post(basePath, payload, &u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d).\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (required for admins)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&role, "role", "viewer", "viewer or admin")
	cmd.Flags().StringSliceVar(&perms, "perm", nil, "Permission codename, e.g. auditlog.view_logentry (repeatable)")
	return cmd
}
