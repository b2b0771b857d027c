// Package output provides styled terminal rendering helpers for intensityctl.
package output

import (
	"github.com/charmbracelet/lipgloss"

	"example.com/intensity/internal/record"
)

// Color constants for consistent styling across the CLI.
var (
	ColorPrimary = lipgloss.Color("#64b5f6")
	ColorMuted   = lipgloss.Color("#888888")

	// Band colours follow the mobile client's scale.
	ColorLow      = lipgloss.Color("#66bb6a")
	ColorModerate = lipgloss.Color("#fff59d")
	ColorHigh     = lipgloss.Color("#ffa726")
	ColorMax      = lipgloss.Color("#ef5350")
)

// Styles provides reusable lipgloss styles.
var (
	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleBold = lipgloss.NewStyle().
			Bold(true)

	StyleLabel = lipgloss.NewStyle().
			Width(20)

	bandStyles = map[record.Band]lipgloss.Style{
		record.BandLow:      lipgloss.NewStyle().Foreground(ColorLow),
		record.BandModerate: lipgloss.NewStyle().Foreground(ColorModerate),
		record.BandHigh:     lipgloss.NewStyle().Foreground(ColorHigh),
		record.BandMax:      lipgloss.NewStyle().Foreground(ColorMax).Bold(true),
	}
)

var noColor bool

// SetNoColor disables or enables color output globally.
func SetNoColor(disabled bool) {
	noColor = disabled
}

// IsNoColor returns whether color output is currently disabled.
func IsNoColor() bool {
	return noColor
}

func render(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

// Header renders a section header.
func Header(s string) string { return render(StyleHeader, s) }

// Muted renders de-emphasized text.
func Muted(s string) string { return render(StyleMuted, s) }

// Bold renders emphasized text.
func Bold(s string) string { return render(StyleBold, s) }

// Label renders a fixed-width metric label.
func Label(s string) string {
	if noColor {
		return pad(s, 20)
	}
	return StyleLabel.Render(s)
}

// Band renders text in the colour of an intensity band.
func Band(band record.Band, s string) string {
	style, ok := bandStyles[band]
	if !ok {
		return s
	}
	return render(style, s)
}
