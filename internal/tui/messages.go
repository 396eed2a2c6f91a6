package tui

import "github.com/Veraticus/tender/internal/drafting"

// feedbackDoneMsg carries the result of submitting feedback.
type feedbackDoneMsg struct {
	session *drafting.Session
	err     error
}

// editorDoneMsg carries the document after the external editor exits.
type editorDoneMsg struct {
	err      error
	document string
}
