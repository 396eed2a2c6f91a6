package tui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/tender/internal/drafting"
)

// SubmitFunc records feedback for the reviewed session.
type SubmitFunc func(ctx context.Context, fb drafting.Feedback) (*drafting.Session, error)

func submitFeedback(ctx context.Context, submit SubmitFunc, fb drafting.Feedback) tea.Cmd {
	return func() tea.Msg {
		session, err := submit(ctx, fb)
		return feedbackDoneMsg{session: session, err: err}
	}
}

// editDocument writes doc to a temporary file, suspends the program while the
// editor runs, and reports the edited text.
func editDocument(editor, doc string) tea.Cmd {
	f, err := os.CreateTemp("", "tender-review-*.md")
	if err != nil {
		return func() tea.Msg { return editorDoneMsg{err: fmt.Errorf("failed to create temp file: %w", err)} }
	}
	path := f.Name()
	_, writeErr := f.WriteString(doc)
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return func() tea.Msg { return editorDoneMsg{err: fmt.Errorf("failed to write temp file: %w", firstErr(writeErr, closeErr))} }
	}

	fields := strings.Fields(editor)
	if len(fields) == 0 {
		fields = []string{"vi"}
	}
	cmd := exec.Command(fields[0], append(fields[1:], path)...) //nolint:gosec // editor comes from the user's own config
	return tea.ExecProcess(cmd, func(runErr error) tea.Msg {
		defer func() { _ = os.Remove(path) }()
		if runErr != nil {
			return editorDoneMsg{err: fmt.Errorf("editor exited: %w", runErr)}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return editorDoneMsg{err: fmt.Errorf("failed to read edited document: %w", err)}
		}
		return editorDoneMsg{document: string(data)}
	})
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
