package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/weave-dev/weave/internal/types"
)

// NewTable creates a table with the shared wv border/width styling.
func NewTable(width int) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width)
}

// RenderNodeList renders nodes (list/ready output) as a bordered table:
// id, status, priority, text.
func RenderNodeList(nodes []*types.Node, width int) string {
	if len(nodes) == 0 {
		return TableHintStyle.Render("No nodes.")
	}

	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		priority := "-"
		if n.Metadata.Priority != nil {
			priority = fmt.Sprintf("%d", *n.Metadata.Priority)
		}
		rows = append(rows, []string{n.ID, string(n.Status), priority, n.Text})
	}

	return NewTable(width).
		Headers("ID", "Status", "Pri", "Text").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			style := lipgloss.NewStyle().Padding(0, 1)
			if col == 1 {
				return StatusStyle(rows[row][1]).Padding(0, 1)
			}
			return style
		}).
		String()
}
