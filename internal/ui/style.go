package ui

import "github.com/charmbracelet/lipgloss"

// Status/role colors, reused across every render helper below.
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "25", Dark: "39"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "124", Dark: "203"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "246", Dark: "240"}
)

var (
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Align(lipgloss.Center)
	TableWarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	TablePassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	TableFailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	TableHintStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	TableBorderStyle = lipgloss.NewStyle().Foreground(ColorMuted)
)

// StatusStyle colors a node status column consistently across list,
// ready, and tree output.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "done":
		return TablePassStyle
	case "blocked", "blocked-external":
		return TableFailStyle
	case "active":
		return TableWarnStyle
	default:
		return lipgloss.NewStyle()
	}
}
