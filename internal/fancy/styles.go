package fancy

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	RootStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	BranchStyle = lipgloss.NewStyle().
			Foreground(ColorDarkGray)

	ServerStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	ToolStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	OKStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	WarnStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)
)

// ServerText styles a server name
func ServerText(text string) string {
	return ServerStyle.Render(text)
}

// ToolText styles a tool name
func ToolText(text string) string {
	return ToolStyle.Render(text)
}

// InfoText styles secondary descriptive text
func InfoText(text string) string {
	return InfoStyle.Render(text)
}

// ErrorText styles error text (red)
func ErrorText(text string) string {
	return ErrorStyle.Render(text)
}

// StatusText colours a server status label: connected is green, disabled is
// yellow, anything else red.
func StatusText(status string) string {
	switch status {
	case "connected":
		return OKStyle.Render(status)
	case "disabled":
		return WarnStyle.Render(status)
	default:
		return ErrorStyle.Render(status)
	}
}
