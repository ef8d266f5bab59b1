package output

import (
	"fmt"
	"strings"
)

// ConfidenceBar renders a bar for a score in [0, 1].
// Example: "████████░░ 85%"
func ConfidenceBar(score float64, width int) string {
	if width <= 0 {
		width = 10
	}
	filled := int(score * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	style := StyleError
	switch {
	case score >= 0.75:
		style = StyleSuccess
	case score >= 0.5:
		style = StyleWarning
	}

	return fmt.Sprintf("%s %s", style.Render(bar), StyleMuted.Render(fmt.Sprintf("%.0f%%", score*100)))
}

// Check renders a boolean as a styled mark.
func Check(ok bool) string {
	if ok {
		return StyleSuccess.Render("✓")
	}
	return StyleError.Render("✗")
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
