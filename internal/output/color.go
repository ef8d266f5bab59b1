// Package output provides styled terminal rendering helpers for bip.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color constants for consistent styling across the CLI.
var (
	// ColorPrimary is used for headers and emphasis.
	ColorPrimary = lipgloss.Color("#64b5f6")

	// ColorSuccess is used for positive indicators and high confidence.
	ColorSuccess = lipgloss.Color("#66bb6a")

	// ColorError is used for failures.
	ColorError = lipgloss.Color("#ef5350")

	// ColorWarning is used for caution indicators.
	ColorWarning = lipgloss.Color("#fff59d")

	// ColorMuted is used for secondary text and borders.
	ColorMuted = lipgloss.Color("#888888")
)

// Styles provides reusable lipgloss styles.
var (
	// StyleHeader is used for section headers.
	StyleHeader lipgloss.Style

	// StyleSuccess is used for positive values.
	StyleSuccess lipgloss.Style

	// StyleError is used for negative values.
	StyleError lipgloss.Style

	// StyleWarning is used for cautionary values.
	StyleWarning lipgloss.Style

	// StyleMuted is used for de-emphasized text.
	StyleMuted lipgloss.Style

	// StyleBold is used for emphasized text.
	StyleBold lipgloss.Style

	// StyleLabel is used for field labels in key/value output.
	StyleLabel lipgloss.Style
)

func init() {
	setStyles(false)
}

func setStyles(plain bool) {
	if plain {
		p := lipgloss.NewStyle()
		StyleHeader = p
		StyleSuccess = p
		StyleError = p
		StyleWarning = p
		StyleMuted = p
		StyleBold = p
		StyleLabel = p.Width(22)
		return
	}
	StyleHeader = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	StyleSuccess = lipgloss.NewStyle().
		Foreground(ColorSuccess)
	StyleError = lipgloss.NewStyle().
		Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().
		Foreground(ColorWarning)
	StyleMuted = lipgloss.NewStyle().
		Foreground(ColorMuted)
	StyleBold = lipgloss.NewStyle().
		Bold(true)
	StyleLabel = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Width(22)
}

// noColor tracks whether color output is disabled.
var noColor bool

// SetNoColor disables or enables color output globally.
// Package-level styles are rebuilt either way.
func SetNoColor(disabled bool) {
	noColor = disabled
	setStyles(disabled)
}

// IsNoColor returns whether color output is currently disabled.
func IsNoColor() bool {
	return noColor
}

// ColorDisabledFor reports whether output to f should be plain: NO_COLOR is
// set, or f is not a terminal.
func ColorDisabledFor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	if f == nil {
		return true
	}
	fd := f.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

// KeyValue renders a label/value line for status style output.
func KeyValue(label, value string) string {
	return StyleLabel.Render(label) + value
}
