// Package ui provides terminal styling and output helpers for the wv
// CLI: node-table rendering (lipgloss) and markdown rendering (glamour),
// the latter degrading to the raw text off-terminal.
package ui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// IsTerminal returns true if stdout is connected to a TTY.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetWidth returns the terminal width, or 80 when it can't be read.
func GetWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// RenderMarkdown renders md through glamour for a TTY, falling back to
// the raw text untouched off-terminal (guide/doctor/digest's plain-hint
// degradation per spec).
func RenderMarkdown(md string) string {
	if !IsTerminal() {
		return md
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(GetWidth()))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
