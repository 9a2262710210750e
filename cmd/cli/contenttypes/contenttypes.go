package contenttypes

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/crucial707/auditlog-admin/cmd/cli/client"
	"github.com/crucial707/auditlog-admin/cmd/cli/output"
	"github.com/crucial707/auditlog-admin/internal/models"
)

const basePath = "/admin/contenttypes/contenttype/"

func InitContentTypes(rootCmd *cobra.Command) {
	ctCmd := &cobra.Command{
		Use:     "content-types",
		Aliases: []string{"ct"},
		Short:   "Manage tracked content types",
	}
	ctCmd.AddCommand(listCmd(), deleteCmd())
	rootCmd.AddCommand(ctCmd)
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List content types",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Items []models.ContentType `json:"items"`
			}
			if err := client.Get(basePath, nil, &res); err != nil {
				return err
			}
			rows := make([][]interface{}, 0, len(res.Items))
			for _, ct := range res.Items {
				rows = append(rows, []interface{}{ct.ID, ct.AppLabel, ct.Model})
			}
			output.RenderTable([]string{"ID", "App Label", "Model"}, rows)
			return nil
		},
	}
}

// deleteCmd removes a content type together with its log entries.
func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a content type and cascade to its log entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := client.Post(fmt.Sprintf("%s%s/delete/", basePath, args[0]), nil, nil)
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden {
				return fmt.Errorf("refused: %s", string(apiErr.Body))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Content type %s deleted.\n", args[0])
			return nil
		},
	}
}
