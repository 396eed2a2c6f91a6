// Package themes holds the lipgloss styles of the review screen.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	BorderedBox   lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSuccess lipgloss.Style
	Help          lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
	Error         lipgloss.Color
	Warning       lipgloss.Color
	Success       lipgloss.Color
	Info          lipgloss.Color
}

// Default is the default theme.
var Default = build(palette{
	primary: "#7c3aed",
	muted:   "#737373",
	border:  "#404040",
	text:    "#fafafa",
	subtle:  "#a3a3a3",
	err:     "#ef4444",
	warning: "#f59e0b",
	success: "#10b981",
	info:    "#3b82f6",
})

// Light suits terminals with a light background.
var Light = build(palette{
	primary: "#6d28d9",
	muted:   "#6b7280",
	border:  "#d1d5db",
	text:    "#111827",
	subtle:  "#4b5563",
	err:     "#b91c1c",
	warning: "#b45309",
	success: "#047857",
	info:    "#1d4ed8",
})

type palette struct {
	primary, muted, border, text, subtle string
	err, warning, success, info          string
}

func build(p palette) Theme {
	return Theme{
		Primary: lipgloss.Color(p.primary),
		Muted:   lipgloss.Color(p.muted),
		Border:  lipgloss.Color(p.border),
		Error:   lipgloss.Color(p.err),
		Warning: lipgloss.Color(p.warning),
		Success: lipgloss.Color(p.success),
		Info:    lipgloss.Color(p.info),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.primary)),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.subtle)),
		Normal: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.text)),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.text)),
		BorderedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.border)).
			Padding(0, 1),
		StatusInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.info)),
		StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.err)).Bold(true),
		StatusWarning: lipgloss.NewStyle().Foreground(lipgloss.Color(p.warning)),
		StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color(p.success)).Bold(true),
		Help:          lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)),
	}
}

// ByName returns the named theme, falling back to Default.
func ByName(name string) Theme {
	if name == "light" {
		return Light
	}
	return Default
}
