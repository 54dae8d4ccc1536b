package executor

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/leiyuou/lance-graph/graph"
)

// Result holds the rows a query produced, in final output order.
type Result struct {
	columns []string
	rows    [][]graph.Value
}

// Columns returns the output column names in RETURN order.
func (r *Result) Columns() []string { return r.columns }

// NumRows returns the number of result rows.
func (r *Result) NumRows() int { return len(r.rows) }

// Row returns result row i.
func (r *Result) Row(i int) []graph.Value { return r.rows[i] }

// Rows returns all rows. The slice is shared, not copied.
func (r *Result) Rows() [][]graph.Value { return r.rows }

// Column returns the values of the named output column.
func (r *Result) Column(name string) ([]graph.Value, bool) {
	idx := -1
	for i, col := range r.columns {
		if col == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	values := make([]graph.Value, len(r.rows))
	for i, row := range r.rows {
		values[i] = row[idx]
	}
	return values, true
}

// String returns a short colored summary for logs and the REPL prompt.
func (r *Result) String() string {
	var countStr string
	count := len(r.rows)
	switch {
	case count == 0:
		countStr = color.RedString("%d", count)
	case count < 1000:
		countStr = color.GreenString("%d", count)
	default:
		countStr = color.YellowString("%d", count)
	}
	return fmt.Sprintf("%s%s%s%s%s rows%s",
		color.BlueString("Result(["),
		color.CyanString(strings.Join(r.columns, " ")),
		color.BlueString("]"),
		color.BlueString(", "),
		countStr,
		color.BlueString(")"))
}

// Markdown renders the result as a markdown table with a row count
// footer. Long cells are truncated to maxWidth runes.
func (r *Result) Markdown() string {
	return formatTable(r.columns, r.rows, 50)
}

func formatTable(columns []string, rows [][]graph.Value, maxWidth int) string {
	if len(rows) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_", columns)
	}

	tableString := &strings.Builder{}

	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(columns)

	for _, row := range rows {
		cells := make([]string, len(row))
		for j, val := range row {
			cells[j] = truncateCell(graph.FormatValue(val), maxWidth)
		}
		table.Append(cells)
	}
	table.Render()

	tableString.WriteString(fmt.Sprintf("\n_%d rows_\n", len(rows)))
	return tableString.String()
}

func truncateCell(s string, maxWidth int) string {
	if maxWidth <= 3 || len(s) <= maxWidth {
		return s
	}
	return s[:maxWidth-3] + "..."
}
