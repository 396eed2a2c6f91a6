package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/tui/themes"
)

type recordingSubmit struct {
	err  error
	got  []drafting.Feedback
	next drafting.State
}

func (r *recordingSubmit) submit(_ context.Context, fb drafting.Feedback) (*drafting.Session, error) {
	r.got = append(r.got, fb)
	if r.err != nil {
		return nil, r.err
	}
	return &drafting.Session{ID: "s-1", State: r.next}, nil
}

func testSession() *drafting.Session {
	return &drafting.Session{
		ID:              "s-1",
		State:           drafting.StateNeedsHuman,
		TemplateType:    "적격심사",
		TemplateVersion: "1.0.1",
		Document:        "## 1. 입찰에 부치는 사항\n- 사업명: 측정장비 구매\n\n위와 같이 공고합니다.",
		RetryCount:      2,
		MaxRetry:        2,
		NeedsReview:     true,
		Issues: []model.ValidationIssue{
			{Section: "3. 입찰참가자격", Message: "업종코드 요건 누락", Severity: model.SeverityHigh, Suggestion: "업종코드 4608 명시"},
			{Section: "5. 입찰 일정", Message: "개찰 시각 불명확", Severity: model.SeverityLow},
		},
	}
}

func newTestModel(r *recordingSubmit) Model {
	cfg := defaultConfig()
	cfg.Width, cfg.Height = 100, 30
	return newModel(context.Background(), testSession(), r.submit, cfg)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg and runs any resulting command once, feeding its message back.
func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestModel_Approve(t *testing.T) {
	r := &recordingSubmit{next: drafting.StateComplete}
	m := newTestModel(r)

	m, cmd := press(t, m, runes("a"))
	require.NotNil(t, cmd)
	assert.Equal(t, modeSubmitting, m.mode)

	m, cmd = press(t, m, cmd())
	require.NotNil(t, cmd)
	assert.Equal(t, modeDone, m.mode)
	require.Len(t, r.got, 1)
	assert.Equal(t, drafting.FeedbackApprove, r.got[0].Action)
	require.NotNil(t, m.Result())
	assert.Equal(t, drafting.StateComplete, m.Result().State)
}

func TestModel_RejectNeedsReason(t *testing.T) {
	r := &recordingSubmit{next: drafting.StateNeedsHuman}
	m := newTestModel(r)

	m, _ = press(t, m, runes("r"))
	assert.Equal(t, modeReason, m.mode)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "a reason is required", m.status)

	m, _ = press(t, m, runes("q 자격 재확인"))
	assert.Equal(t, modeReason, m.mode, "q is text while typing a reason")

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, _ = press(t, m, cmd())

	require.Len(t, r.got, 1)
	assert.Equal(t, drafting.FeedbackReject, r.got[0].Action)
	assert.Equal(t, "q 자격 재확인", r.got[0].Comment)
}

func TestModel_RejectCancel(t *testing.T) {
	r := &recordingSubmit{}
	m := newTestModel(r)

	m, _ = press(t, m, runes("r"))
	m, _ = press(t, m, runes("x"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, modeBrowse, m.mode)
	assert.Empty(t, m.reason.Value())
	assert.Empty(t, r.got)
}

func TestModel_EditedDocumentIsSubmitted(t *testing.T) {
	r := &recordingSubmit{next: drafting.StateComplete}
	m := newTestModel(r)

	m, cmd := press(t, m, editorDoneMsg{document: testSession().Document + "\n"})
	assert.Nil(t, cmd)
	assert.Equal(t, "document unchanged", m.status)

	edited := strings.Replace(testSession().Document, "측정장비", "분석장비", 1)
	m, cmd = press(t, m, editorDoneMsg{document: edited})
	require.NotNil(t, cmd)
	m, _ = press(t, m, cmd())

	require.Len(t, r.got, 1)
	assert.Equal(t, drafting.FeedbackModify, r.got[0].Action)
	assert.Equal(t, edited, r.got[0].Document)
	assert.Equal(t, modeDone, m.mode)
}

func TestModel_SubmitFailureReturnsToBrowse(t *testing.T) {
	r := &recordingSubmit{err: errors.New("database is locked")}
	m := newTestModel(r)

	m, cmd := press(t, m, runes("a"))
	m, cmd = press(t, m, cmd())
	assert.Nil(t, cmd)
	assert.Equal(t, modeBrowse, m.mode)
	assert.Nil(t, m.Result())
	assert.Contains(t, m.View(), "database is locked")
}

func TestModel_IgnoresKeysWhileSubmitting(t *testing.T) {
	r := &recordingSubmit{next: drafting.StateComplete}
	m := newTestModel(r)

	m, _ = press(t, m, runes("a"))
	_, cmd := press(t, m, runes("r"))
	assert.Nil(t, cmd)
	assert.Empty(t, r.got)
}

func TestModel_View(t *testing.T) {
	m := newTestModel(&recordingSubmit{})
	view := m.View()

	assert.Contains(t, view, "s-1")
	assert.Contains(t, view, "needs_human")
	assert.Contains(t, view, "retries 2/2")
	assert.Contains(t, view, "업종코드 요건 누락")
	assert.Contains(t, view, "HIGH")
	assert.Contains(t, view, "사업명: 측정장비 구매")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.NotContains(t, m.View(), "업종코드 요건 누락")
}

func TestModel_Resize(t *testing.T) {
	m := newTestModel(&recordingSubmit{})
	m, _ = press(t, m, tea.WindowSizeMsg{Width: 60, Height: 20})

	assert.Equal(t, 60, m.viewport.Width)
	assert.Less(t, m.viewport.Height, 20)
	assert.GreaterOrEqual(t, m.viewport.Height, 3)
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(&recordingSubmit{})
	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestThemes(t *testing.T) {
	assert.Equal(t, themes.Light.Primary, themes.ByName("light").Primary)
	assert.Equal(t, themes.Default.Primary, themes.ByName("anything").Primary)
}

func TestRunReview_Validation(t *testing.T) {
	_, err := RunReview(context.Background(), nil, (&recordingSubmit{}).submit)
	assert.Error(t, err)
	_, err = RunReview(context.Background(), testSession(), nil)
	assert.Error(t, err)
}
