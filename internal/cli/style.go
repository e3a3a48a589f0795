package cli

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	liveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// styleHeaders applies the header style to each column label.
func styleHeaders(headers []string) []string {
	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = headerStyle.Render(h)
	}
	return styled
}

// styleSource colors the provenance column: live-only threads stand out,
// store-only ones recede.
func styleSource(source string, styled bool) string {
	if !styled {
		return source
	}
	switch source {
	case "current":
		return liveStyle.Render(source)
	case "stored":
		return dimStyle.Render(source)
	default:
		return source
	}
}
