package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/tui/themes"
)

// mode is what the screen is waiting for.
type mode int

const (
	modeBrowse mode = iota
	modeReason
	modeSubmitting
	modeDone
)

const maxIssueLines = 8

// Model is the review screen for one drafting session.
type Model struct {
	ctx        context.Context
	session    *drafting.Session
	result     *drafting.Session
	lastError  error
	submit     SubmitFunc
	theme      themes.Theme
	keymap     KeyMap
	help       help.Model
	viewport   viewport.Model
	reason     textinput.Model
	config     Config
	status     string
	width      int
	height     int
	mode       mode
	showIssues bool
}

func newModel(ctx context.Context, session *drafting.Session, submit SubmitFunc, cfg Config) Model {
	reason := textinput.New()
	reason.Placeholder = "반려 사유"
	reason.CharLimit = 500
	reason.Prompt = "사유: "

	m := Model{
		ctx:        ctx,
		session:    session,
		submit:     submit,
		theme:      cfg.Theme,
		keymap:     DefaultKeyMap(),
		help:       help.New(),
		reason:     reason,
		config:     cfg,
		width:      cfg.Width,
		height:     cfg.Height,
		showIssues: cfg.ShowIssues && len(session.Issues) > 0,
		viewport:   viewport.New(cfg.Width, 1),
	}
	m.resize()
	m.viewport.SetContent(m.document())
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.viewport.SetContent(m.document())
		return m, nil

	case feedbackDoneMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.status = "feedback failed: " + msg.err.Error()
			m.mode = modeBrowse
			return m, nil
		}
		m.result = msg.session
		m.mode = modeDone
		return m, tea.Quit

	case editorDoneMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.status = msg.err.Error()
			return m, nil
		}
		m.lastError = nil
		if strings.TrimSpace(msg.document) == strings.TrimSpace(m.session.Document) {
			m.status = "document unchanged"
			return m, nil
		}
		m.mode = modeSubmitting
		m.status = "saving edited document"
		return m, submitFeedback(m.ctx, m.submit, drafting.Feedback{
			Action:   drafting.FeedbackModify,
			Document: msg.document,
		})

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSubmitting, modeDone:
		return m, nil

	case modeReason:
		switch {
		case key.Matches(msg, m.keymap.Confirm):
			reason := strings.TrimSpace(m.reason.Value())
			if reason == "" {
				m.status = "a reason is required"
				return m, nil
			}
			m.reason.Blur()
			m.mode = modeSubmitting
			m.lastError = nil
			m.status = "rejecting"
			return m, submitFeedback(m.ctx, m.submit, drafting.Feedback{
				Action:  drafting.FeedbackReject,
				Comment: reason,
			})
		case key.Matches(msg, m.keymap.Cancel):
			m.reason.Blur()
			m.reason.SetValue("")
			m.mode = modeBrowse
			m.status = ""
			m.resize()
			return m, nil
		}
		var cmd tea.Cmd
		m.reason, cmd = m.reason.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Approve):
		m.mode = modeSubmitting
		m.lastError = nil
		m.status = "approving"
		return m, submitFeedback(m.ctx, m.submit, drafting.Feedback{Action: drafting.FeedbackApprove})
	case key.Matches(msg, m.keymap.Reject):
		m.mode = modeReason
		m.status = ""
		m.resize()
		focus := m.reason.Focus()
		return m, focus
	case key.Matches(msg, m.keymap.Edit):
		return m, editDocument(m.config.editor(), m.session.Document)
	case key.Matches(msg, m.keymap.ToggleIssues):
		m.showIssues = !m.showIssues
		m.resize()
		return m, nil
	case key.Matches(msg, m.keymap.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	case key.Matches(msg, m.keymap.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keymap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// resize fits the document viewport between the header and the footer.
func (m *Model) resize() {
	m.help.Width = m.width
	m.reason.Width = max(m.width-10, 10)

	used := lipgloss.Height(m.headerView()) + lipgloss.Height(m.footerView())
	if m.showIssues {
		used += lipgloss.Height(m.issuesView())
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-used, 3)
}

func (m Model) document() string {
	doc := m.session.Document
	if doc == "" {
		doc = m.session.Baseline
	}
	if doc == "" {
		return m.theme.Subtitle.Render("(no document)")
	}
	return m.theme.Normal.Width(max(m.width-1, 20)).Render(doc)
}

// Result is the session after feedback, or nil when the reviewer quit
// without deciding.
func (m Model) Result() *drafting.Session {
	return m.result
}
