package tui

import (
	"os"

	"github.com/Veraticus/tender/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme themes.Theme
	// Editor is the command used for the edit action. Empty means $EDITOR,
	// then vi.
	Editor       string
	Width        int
	Height       int
	ShowIssues   bool
	MouseSupport bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:        themes.Default,
		Width:        80,
		Height:       24,
		ShowIssues:   true,
		MouseSupport: true,
	}
}

// WithTheme sets the color theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithEditor sets the editor command.
func WithEditor(editor string) Option {
	return func(c *Config) {
		c.Editor = editor
	}
}

// WithSize sets the initial size before the terminal reports its own.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithoutMouse disables mouse wheel scrolling.
func WithoutMouse() Option {
	return func(c *Config) {
		c.MouseSupport = false
	}
}

func (c Config) editor() string {
	if c.Editor != "" {
		return c.Editor
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vi"
}
