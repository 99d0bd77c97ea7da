package report

import "github.com/charmbracelet/lipgloss"

// Adaptive color definitions for light/dark terminal support
var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#006400", Dark: "#00ff00"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff0000"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#b8860b", Dark: "#ffff00"}
	colorGray   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorGreen)

	styleError = lipgloss.NewStyle().
			Foreground(colorRed)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorYellow)

	styleSubtle = lipgloss.NewStyle().
			Foreground(colorGray)

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan).
			PaddingRight(2)

	styleCell = lipgloss.NewStyle().
			PaddingRight(2)
)

// statusStyle picks the color of a run status
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed":
		return styleSuccess
	case "failed":
		return styleError
	case "cancelled", "running":
		return styleWarning
	default:
		return styleSubtle
	}
}
