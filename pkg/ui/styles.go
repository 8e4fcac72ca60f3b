package ui

import "github.com/charmbracelet/lipgloss"

// Adaptive colors tuned for both light and dark terminals.
var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}

	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorBgSubtle    = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
)

var (
	rowStyle       = lipgloss.NewStyle().Foreground(ColorText)
	cursorRowStyle = lipgloss.NewStyle().Foreground(ColorText).Background(ColorBgHighlight).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(ColorMuted)
	errorStyle     = lipgloss.NewStyle().Foreground(ColorDanger)
	loadingStyle   = lipgloss.NewStyle().Foreground(ColorWarning)
	matchStyle     = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Underline(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Background(ColorBgSubtle).
			Padding(0, 1)

	filterPromptStyle = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight).
			Padding(0, 1)

	confirmStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDanger).
			Padding(1, 2)
)
