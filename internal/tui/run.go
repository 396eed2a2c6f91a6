// Package tui provides the interactive review screen for drafted announcements.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/tender/internal/drafting"
)

// ErrNoDecision is returned when the reviewer quits without deciding.
var ErrNoDecision = errors.New("review ended without a decision")

// RunReview shows session and records the reviewer's decision through
// submit. It returns the updated session.
func RunReview(ctx context.Context, session *drafting.Session, submit SubmitFunc, opts ...Option) (*drafting.Session, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if submit == nil {
		return nil, fmt.Errorf("submit function is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.MouseSupport {
		programOpts = append(programOpts, tea.WithMouseCellMotion())
	}

	final, err := tea.NewProgram(newModel(ctx, session, submit, cfg), programOpts...).Run()
	if err != nil {
		return nil, fmt.Errorf("review screen failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	if m.Result() == nil {
		return nil, ErrNoDecision
	}
	return m.Result(), nil
}
