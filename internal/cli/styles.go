// Package cli provides styled terminal output for the tender commands.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/model"
)

// Palette.
var (
	PrimaryColor = lipgloss.Color("#3B82F6")
	SuccessColor = lipgloss.Color("#10B981")
	WarningColor = lipgloss.Color("#F59E0B")
	ErrorColor   = lipgloss.Color("#EF4444")
	InfoColor    = lipgloss.Color("#93C5FD")
	SubtleColor  = lipgloss.Color("#6B7280")
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1)
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(InfoColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)
	BoldStyle    = lipgloss.NewStyle().Bold(true)

	// LabelStyle pads the left column of key/value listings.
	LabelStyle = lipgloss.NewStyle().Foreground(SubtleColor).Width(18)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
)

// Icons.
const (
	SuccessIcon  = "✓"
	WarningIcon  = "⚠️"
	InfoIcon     = "ℹ️"
	DocumentIcon = "📄"
	ScaleIcon    = "⚖️"
	FolderIcon   = "🗄️"
)

// SeverityStyle colors a validation issue or template change by severity.
func SeverityStyle(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeverityHigh:
		return ErrorStyle
	case model.SeverityMedium:
		return WarningStyle
	default:
		return InfoStyle
	}
}

// StateStyle colors a drafting state. Only the terminal states stand out.
func StateStyle(s drafting.State) lipgloss.Style {
	switch s {
	case drafting.StateComplete:
		return SuccessStyle
	case drafting.StateNeedsHuman:
		return ErrorStyle
	default:
		return lipgloss.NewStyle()
	}
}

// FormatSuccess prefixes message with a check mark.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatWarning prefixes message with a warning sign.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo prefixes message with an info sign.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatPrompt renders a question awaiting input.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// RenderBox draws content in a rounded box under title.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.UnsetMargins().Render(title), content))
}
