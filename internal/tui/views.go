package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/model"
)

// View renders the screen.
func (m Model) View() string {
	sections := []string{m.headerView(), m.viewport.View()}
	if m.showIssues {
		sections = append(sections, m.issuesView())
	}
	sections = append(sections, m.footerView())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView() string {
	s := m.session
	title := m.theme.Title.Render("공고문 검토 " + s.ID)

	parts := []string{
		m.stateBadge(s.State),
		fmt.Sprintf("template %s %s", s.TemplateType, s.TemplateVersion),
		fmt.Sprintf("retries %d/%d", s.RetryCount, s.MaxRetry),
	}
	if s.Classification != nil {
		parts = append(parts, s.Classification.RecommendedMethod.Label())
	}
	if s.NeedsReview {
		parts = append(parts, m.theme.StatusWarning.Render("needs review"))
	}
	if len(s.Unresolved) > 0 {
		parts = append(parts, m.theme.StatusWarning.Render("unresolved: "+strings.Join(s.Unresolved, ", ")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, m.theme.Subtitle.Render(strings.Join(parts, " · ")))
}

func (m Model) stateBadge(state drafting.State) string {
	switch state {
	case drafting.StateComplete:
		return m.theme.StatusSuccess.Render(string(state))
	case drafting.StateNeedsHuman:
		return m.theme.StatusError.Render(string(state))
	default:
		return m.theme.StatusInfo.Render(string(state))
	}
}

func (m Model) issuesView() string {
	issues := m.session.Issues
	if len(issues) == 0 {
		return m.theme.BorderedBox.Width(max(m.width-2, 10)).Render(m.theme.Subtitle.Render("no validation issues"))
	}

	lines := make([]string, 0, maxIssueLines)
	for i, issue := range issues {
		if i == maxIssueLines-1 && len(issues) > maxIssueLines {
			lines = append(lines, m.theme.Subtitle.Render(fmt.Sprintf("… %d more", len(issues)-i)))
			break
		}
		lines = append(lines, m.issueLine(issue))
	}
	return m.theme.BorderedBox.Width(max(m.width-2, 10)).Render(strings.Join(lines, "\n"))
}

func (m Model) issueLine(issue model.ValidationIssue) string {
	style := m.theme.StatusInfo
	switch issue.Severity {
	case model.SeverityHigh:
		style = m.theme.StatusError
	case model.SeverityMedium:
		style = m.theme.StatusWarning
	}
	line := fmt.Sprintf("%s [%s] %s", style.Render(strings.ToUpper(string(issue.Severity))), issue.Section, issue.Message)
	if issue.Suggestion != "" {
		line += m.theme.Subtitle.Render(" → " + issue.Suggestion)
	}
	return line
}

func (m Model) footerView() string {
	var lines []string
	if m.mode == modeReason {
		lines = append(lines, m.reason.View())
	}
	if m.status != "" {
		style := m.theme.StatusInfo
		if m.lastError != nil {
			style = m.theme.StatusError
		}
		lines = append(lines, style.Render(m.status))
	}
	lines = append(lines, m.help.View(m.keymap))
	return strings.Join(lines, "\n")
}
