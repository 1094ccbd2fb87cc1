package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Status colors
	pendingColor    = lipgloss.Color("#6b7280") // Gray
	inProgressColor = lipgloss.Color("#F59E0B") // Amber
	completedColor  = lipgloss.Color("#10B981") // Green
	failedColor     = lipgloss.Color("#EF4444") // Red
	blockedColor    = lipgloss.Color("#8B5CF6") // Violet

	googleColor    = lipgloss.Color("#4285F4")
	microsoftColor = lipgloss.Color("#00A4EF")

	headerColor = lipgloss.Color("#c9d1d9")
	mutedColor  = lipgloss.Color("#6b7280")
	accentColor = lipgloss.Color("#f43f5e")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(headerColor).
			Bold(true)

	domainStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(failedColor)

	noticeStyle = lipgloss.NewStyle().
			Foreground(inProgressColor)

	detailBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(mutedColor).
				Padding(0, 1)
)

func statusColor(status string) lipgloss.Color {
	switch status {
	case "completed":
		return completedColor
	case "in_progress":
		return inProgressColor
	case "failed":
		return failedColor
	case "blocked":
		return blockedColor
	default:
		return pendingColor
	}
}

func statusGlyph(status string) string {
	switch status {
	case "completed":
		return "✓"
	case "in_progress":
		return "…"
	case "failed":
		return "✗"
	case "blocked":
		return "⊘"
	default:
		return "○"
	}
}

func providerColor(provider string) lipgloss.Color {
	switch provider {
	case "google":
		return googleColor
	case "microsoft":
		return microsoftColor
	default:
		return headerColor
	}
}
