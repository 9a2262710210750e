package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderTable prints a pretty table to stdout
func RenderTable(headers []string, rows [][]interface{}) {
	RenderTitledTable("", headers, rows)
}

// RenderTitledTable prints a table with an optional title and a row count footer.
func RenderTitledTable(title string, headers []string, rows [][]interface{}) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}

	headerRow := table.Row{}
	for _, h := range headers {
		headerRow = append(headerRow, h)
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}
	if len(headers) > 0 {
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	}

	t.Render()
}

// RenderJSON prints v as indented JSON.
func RenderJSON(v interface{}) error {
	if raw, ok := v.(json.RawMessage); ok {
		var out interface{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
		v = out
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
