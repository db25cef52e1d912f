package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// table renders static rows as padded columns
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// view renders the table with r. A table without rows renders nothing and a
// table without headers has no header line.
func (t *table) view(r *lipgloss.Renderer) string {
	if len(t.rows) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	grow := func(cells []string) {
		for i, cell := range cells {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			// lipgloss Width includes the one-cell padding either side
			widths[i] = max(widths[i], lipgloss.Width(cell)+2)
		}
	}
	grow(t.headers)
	for _, row := range t.rows {
		grow(row)
	}

	cellStyle := r.NewStyle().Padding(0, 1)
	headerStyle := cellStyle.Bold(true)
	sepStyle := r.NewStyle().Faint(true)

	var sb strings.Builder
	line := func(style lipgloss.Style, cells []string) {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString(sepStyle.Render("|"))
			}
			sb.WriteString(style.Width(widths[i]).Render(cell))
		}
		sb.WriteString("\n")
	}

	if len(t.headers) > 0 {
		line(headerStyle, t.headers)
		total := len(widths) - 1
		for _, w := range widths {
			total += w
		}
		sb.WriteString(sepStyle.Render(strings.Repeat("-", total)) + "\n")
	}
	for _, row := range t.rows {
		line(cellStyle, row)
	}
	sb.WriteString("\n")

	return sb.String()
}
