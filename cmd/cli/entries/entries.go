package entries

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crucial707/auditlog-admin/cmd/cli/client"
	"github.com/crucial707/auditlog-admin/cmd/cli/output"
	"github.com/crucial707/auditlog-admin/internal/admin"
)

const basePath = "/admin/auditlog/logentry/"

// ==========================
// Init Entries
// ==========================
func InitEntries(rootCmd *cobra.Command) {
	entriesCmd := &cobra.Command{
		Use:   "entries",
		Short: "Browse audit log entries",
	}

	entriesCmd.AddCommand(
		listEntriesCmd(),
		showEntryCmd(),
		historyCmd(),
		filtersCmd(),
	)

	rootCmd.AddCommand(entriesCmd)
}

// ==========================
// LIST
// ==========================
func listEntriesCmd() *cobra.Command {
	var (
		search, action, resourceType, cid, ordering string
		limit, offset                                int
		asJSON                                       bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List log entries (the changelist)",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			set := func(k, v string) {
				if v != "" {
					q.Set(k, v)
				}
			}
			set("q", search)
			set("action", action)
			set("resource_type", resourceType)
			set("cid", cid)
			set("o", ordering)
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}

			if asJSON {
				var raw json.RawMessage
				if err := client.Get(basePath, q, &raw); err != nil {
					return err
				}
				return output.RenderJSON(raw)
			}

			var res admin.ChangelistResult
			if err := client.Get(basePath, q, &res); err != nil {
				return err
			}
			headers := []string{"ID"}
			for _, c := range res.Columns {
				h := c.Header
				switch c.Sorted {
				case "asc":
					h += " ▲"
				case "desc":
					h += " ▼"
				}
				headers = append(headers, h)
			}
			rows := make([][]interface{}, 0, len(res.Rows))
			for _, r := range res.Rows {
				row := []interface{}{r.ID}
				for _, c := range r.Cells {
					row = append(row, c.Text)
				}
				rows = append(rows, row)
			}
			title := fmt.Sprintf("%d-%d of %d", res.Offset+min(1, len(res.Rows)), res.Offset+len(res.Rows), res.Total)
			output.RenderTitledTable(title, headers, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "q", "", "Search terms (quote phrases)")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action: create, update, delete, access")
	cmd.Flags().StringVar(&resourceType, "resource-type", "", "Filter by content type id")
	cmd.Flags().StringVar(&cid, "cid", "", "Filter by correlation id")
	cmd.Flags().StringVarP(&ordering, "ordering", "o", "", "Order by created, action or model_name; prefix - for descending")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (server default 100, max 500)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")

	return cmd
}

// ==========================
// SHOW
// ==========================
func showEntryCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one log entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[0])
			}
			path := fmt.Sprintf("%s%d/change/", basePath, id)

			if asJSON {
				var raw json.RawMessage
				if err := client.Get(path, nil, &raw); err != nil {
					return err
				}
				return output.RenderJSON(raw)
			}

			var res admin.DetailResult
			if err := client.Get(path, nil, &res); err != nil {
				return err
			}
			renderDetail(&res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")
	return cmd
}

func renderDetail(res *admin.DetailResult) {
	for _, fs := range res.Fieldsets {
		title := fs.Name
		if title == "" {
			title = fmt.Sprintf("%s #%d", res.Title, res.ID)
		}
		var rows [][]interface{}
		for _, f := range fs.Fields {
			if f.Message != nil {
				continue
			}
			text := ""
			if f.Value != nil {
				text = f.Value.Text
			}
			rows = append(rows, []interface{}{f.Label, text})
		}
		if len(rows) > 0 {
			output.RenderTitledTable(title, []string{"Field", "Value"}, rows)
		}
		for _, f := range fs.Fields {
			if f.Message != nil {
				renderMessage(f.Message)
			}
		}
	}
}

func renderMessage(m *admin.Message) {
	if m.Empty() {
		fmt.Println("No changes recorded.")
		return
	}
	if len(m.Fields) > 0 {
		rows := make([][]interface{}, 0, len(m.Fields))
		for _, c := range m.Fields {
			rows = append(rows, []interface{}{c.Index, c.Field, deref(c.From), deref(c.To)})
		}
		output.RenderTitledTable("Changes", []string{"#", "Field", "From", "To"}, rows)
	}
	if len(m.Relationships) > 0 {
		rows := make([][]interface{}, 0, len(m.Relationships))
		for _, r := range m.Relationships {
			rows = append(rows, []interface{}{r.Index, r.Relationship, r.Action, fmt.Sprint(r.Objects)})
		}
		output.RenderTitledTable("Relationships", []string{"#", "Relationship", "Action", "Objects"}, rows)
	}
}

func deref(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}

// ==========================
// HISTORY
// ==========================
func historyCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "List entries recorded for the same object as entry ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[0])
			}
			q := url.Values{}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}
			var res struct {
				Items  []admin.ChangelistRow `json:"items"`
				Total  int                   `json:"total"`
				Offset int                   `json:"offset"`
			}
			if err := client.Get(fmt.Sprintf("%s%d/history/", basePath, id), q, &res); err != nil {
				return err
			}
			rows := make([][]interface{}, 0, len(res.Items))
			for _, r := range res.Items {
				row := []interface{}{r.ID}
				for _, c := range r.Cells {
					row = append(row, c.Text)
				}
				rows = append(rows, row)
			}
			title := fmt.Sprintf("%d-%d of %d", res.Offset+min(1, len(res.Items)), res.Offset+len(res.Items), res.Total)
			output.RenderTitledTable(title, []string{"ID", "Created", "Resource", "Action", "Changes", "User", "Model"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (server default 100, max 500)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")
	return cmd
}

// ==========================
// FILTERS
// ==========================
func filtersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "Show the available filter values",
		RunE: func(cmd *cobra.Command, args []string) error {
			var specs []admin.FilterSpec
			if err := client.Get(basePath+"filters/", nil, &specs); err != nil {
				return err
			}
			for _, s := range specs {
				rows := make([][]interface{}, 0, len(s.Choices))
				for _, c := range s.Choices {
					rows = append(rows, []interface{}{c.Value, c.Label})
				}
				output.RenderTitledTable(fmt.Sprintf("%s (%s)", s.Title, s.Parameter), []string{"Value", "Label"}, rows)
			}
			return nil
		},
	}
}
