package drafting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Veraticus/tender/internal/assembler"
	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/guard"
	"github.com/Veraticus/tender/internal/llm"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/prompts"
)

// ProgressCallback reports the step being run and a rough completion percentage.
type ProgressCallback func(stage string, percent int)

// Engine drives drafting sessions. Steps on the same session never overlap.
type Engine struct {
	deps   Deps
	locks  map[string]*sessionLock
	config Config
	mu     sync.Mutex
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

type issueList struct {
	Issues []model.ValidationIssue `json:"issues"`
}

var stages = map[State]struct {
	label   string
	percent int
}{
	StateUploaded:   {"Extracting purchase plan", 10},
	StateExtracted:  {"Classifying", 25},
	StateClassified: {"Assembling baseline", 40},
	StateGenerating: {"Drafting announcement", 55},
	StateValidating: {"Validating sections", 70},
	StateRevising:   {"Revising", 80},
}

// Start creates a session for an uploaded purchase plan and runs it to a
// terminal state. An extraction failure leaves the session in uploaded.
func (e *Engine) Start(ctx context.Context, path string, progress ProgressCallback) (*Session, error) {
	if e.deps.Extractor == nil {
		return nil, fmt.Errorf("%w: no extraction service configured", common.ErrMissingConfig)
	}
	s := e.newSession()
	s.SourcePath = path
	return e.create(ctx, s, progress)
}

// StartWithRecord creates a session for an already extracted record.
func (e *Engine) StartWithRecord(ctx context.Context, record *model.ExtractedRecord, progress ProgressCallback) (*Session, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: record is nil", common.ErrInvalidInput)
	}
	s := e.newSession()
	s.Record = record
	return e.create(ctx, s, progress)
}

// Resume continues a session from its last persisted state. Finished
// sessions are returned unchanged.
func (e *Engine) Resume(ctx context.Context, sessionID string, progress ProgressCallback) (*Session, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	s, err := e.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.State.Terminal() {
		return s, nil
	}
	slog.Info("Resuming drafting session", "session_id", s.ID, "state", s.State)
	return e.run(ctx, s, progress)
}

// Session returns a stored session.
func (e *Engine) Session(ctx context.Context, sessionID string) (*Session, error) {
	return e.deps.Sessions.Get(ctx, sessionID)
}

// Sessions lists stored sessions, most recently updated first.
func (e *Engine) Sessions(ctx context.Context, limit int) ([]*Session, error) {
	return e.deps.Sessions.List(ctx, limit)
}

// Feedback records a reviewer's decision on a finished session. Approve marks
// it complete, reject sends it to needs_human, and modify replaces the
// document with the reviewer's text.
func (e *Engine) Feedback(ctx context.Context, sessionID string, fb Feedback) (*Session, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	s, err := e.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := e.config.Now()
	fb.At = now

	switch fb.Action {
	case FeedbackApprove:
		if err := reviewTransition(s, StateComplete, now); err != nil {
			return nil, err
		}
		s.NeedsReview = false
	case FeedbackReject:
		if err := reviewTransition(s, StateNeedsHuman, now); err != nil {
			return nil, err
		}
		s.NeedsReview = true
		reason := strings.TrimSpace(fb.Comment)
		if reason == "" {
			reason = "no reason given"
		}
		s.logError(now, "rejected by reviewer: %s", reason)
	case FeedbackModify:
		if strings.TrimSpace(fb.Document) == "" {
			return nil, fmt.Errorf("%w: modify feedback needs the replacement document", common.ErrInvalidInput)
		}
		if err := reviewTransition(s, StateComplete, now); err != nil {
			return nil, err
		}
		s.Document = fb.Document
		s.NeedsReview = false
	default:
		return nil, fmt.Errorf("%w: unknown feedback action %q", common.ErrInvalidInput, fb.Action)
	}

	s.Feedback = &fb
	if err := e.deps.Sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	slog.Info("Recorded feedback", "session_id", s.ID, "action", fb.Action, "state", s.State)
	return s, nil
}

func (e *Engine) newSession() *Session {
	now := e.config.Now()
	return &Session{
		ID:        uuid.NewString(),
		State:     StateUploaded,
		MaxRetry:  e.config.MaxRetry,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *Engine) create(ctx context.Context, s *Session, progress ProgressCallback) (*Session, error) {
	unlock := e.lock(s.ID)
	defer unlock()

	if err := e.deps.Sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("Created drafting session", "session_id", s.ID)
	return e.run(ctx, s, progress)
}

// run steps the session until it is terminal, persisting after every step.
// A step that fails is persisted with its error logged, except on context
// cancellation, where the session rests in its last persisted state.
func (e *Engine) run(ctx context.Context, s *Session, progress ProgressCallback) (*Session, error) {
	if progress == nil {
		progress = func(string, int) {}
	}

	for !s.State.Terminal() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stage := stages[s.State]
		progress(stage.label, stage.percent)

		from := s.State
		if err := e.step(ctx, s); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				slog.Info("Drafting step interrupted", "session_id", s.ID, "state", from)
				return nil, ctxErr
			}
			if saveErr := e.deps.Sessions.Update(ctx, s); saveErr != nil {
				slog.Warn("Failed to save session after step error", "session_id", s.ID, "error", saveErr)
			}
			return s, err
		}

		if err := e.deps.Sessions.Update(ctx, s); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
		slog.Debug("Drafting step finished", "session_id", s.ID, "from", from, "to", s.State)
	}

	progress("Drafting finished", 100)
	slog.Info("Drafting session finished",
		"session_id", s.ID,
		"state", s.State,
		"retry_count", s.RetryCount,
		"needs_review", s.NeedsReview)
	return s, nil
}

func (e *Engine) step(ctx context.Context, s *Session) error {
	switch s.State {
	case StateUploaded:
		return e.extract(ctx, s)
	case StateExtracted:
		return e.classify(ctx, s)
	case StateClassified:
		return e.assemble(ctx, s)
	case StateGenerating:
		return e.generate(ctx, s)
	case StateValidating:
		return e.validate(ctx, s)
	case StateRevising:
		return e.revise(ctx, s)
	default:
		return fmt.Errorf("%w: no step for state %q", common.ErrInvalidTransition, s.State)
	}
}

func (e *Engine) extract(ctx context.Context, s *Session) error {
	if s.Record == nil {
		if e.deps.Extractor == nil {
			err := fmt.Errorf("%w: no extraction service configured", common.ErrMissingConfig)
			s.logError(e.config.Now(), "%v", err)
			return err
		}
		record, err := e.deps.Extractor.Extract(ctx, s.SourcePath)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.logError(e.config.Now(), "extraction failed: %v", err)
			return fmt.Errorf("extraction failed: %w", err)
		}
		s.Record = record
	}
	return transition(s, StateExtracted, e.config.Now())
}

func (e *Engine) classify(ctx context.Context, s *Session) error {
	result, err := e.deps.Classifier.Classify(ctx, s.Record)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.logError(e.config.Now(), "classification failed: %v", err)
		return fmt.Errorf("classification failed: %w", err)
	}
	s.Classification = result
	return transition(s, StateClassified, e.config.Now())
}

func (e *Engine) assemble(ctx context.Context, s *Session) error {
	templateType := assembler.TemplateType(s.Classification.RecommendedMethod)
	tmpl, stored, err := assembler.CurrentTemplate(ctx, e.deps.Templates, templateType)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.logError(e.config.Now(), "template lookup failed: %v", err)
		return err
	}

	now := e.config.Now()
	doc := assembler.Assemble(s.Classification, s.Record, tmpl.Content, now)
	s.TemplateType = templateType
	s.TemplateVersion = tmpl.Version
	s.Baseline = doc.Content
	s.Document = doc.Content
	s.Unresolved = doc.Unresolved

	if len(doc.Unresolved) > 0 {
		slog.Warn("Baseline has unresolved placeholders", "session_id", s.ID, "fields", doc.Unresolved)
	}
	slog.Debug("Assembled baseline",
		"session_id", s.ID,
		"template_type", templateType,
		"template_version", tmpl.Version,
		"stored_template", stored)

	return transition(s, StateGenerating, now)
}

func (e *Engine) generate(ctx context.Context, s *Session) error {
	if e.deps.Reasoner == nil || e.config.SkipGeneration {
		slog.Info("Reasoning service not used, baseline is final", "session_id", s.ID)
		return transition(s, StateComplete, e.config.Now())
	}

	prompt, err := e.deps.Prompts.BuildGenerate(prompts.GenerateData{
		Classification: s.Classification,
		Baseline:       s.Document,
		ClosingMarker:  guard.DefaultClosingMarker,
	})
	if err != nil {
		return err
	}
	if err := e.propose(ctx, s, prompt, "generation"); err != nil {
		return err
	}
	return transition(s, StateValidating, e.config.Now())
}

func (e *Engine) validate(ctx context.Context, s *Session) error {
	issues := ConsistencyIssues(s.Document, s.Classification)

	sections := assembler.RenderSections(assembler.ExtractSections(s.Document, assembler.VariableSections))
	if e.deps.Reasoner != nil && sections != "" {
		prompt, err := e.deps.Prompts.BuildValidate(prompts.ValidateData{
			Classification: s.Classification,
			Sections:       sections,
		})
		if err != nil {
			return err
		}

		s.ServiceCalls++
		raw, err := e.deps.Reasoner.Complete(ctx, prompt.Instruction, prompt.Context)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return err
			}
			e.reject(s, "validation", guard.Reject(guard.ReasonServiceFailure, err.Error()))
		default:
			decoded := llm.Decode(raw, issueList{}, llm.DefaultStrategies()...)
			if decoded.Outcome == llm.OutcomeFailed {
				e.reject(s, "validation", guard.Reject(guard.ReasonUnparseableText, decoded.Err.Error()))
				break
			}
			if decoded.Outcome == llm.OutcomeRecovered {
				slog.Debug("Recovered validation reply", "session_id", s.ID, "strategy", decoded.Strategy)
			}
			issues = append(issues, normalizeIssues(decoded.Value.Issues)...)
		}
	}

	s.Issues = issues
	return e.decide(s)
}

func (e *Engine) decide(s *Session) error {
	now := e.config.Now()

	if s.ServiceCalls > 0 && s.ServiceFailures == s.ServiceCalls {
		s.Document = s.Baseline
		s.NeedsReview = true
		s.logError(now, "all %d reasoning service calls failed; baseline returned for review", s.ServiceCalls)
		return transition(s, StateNeedsHuman, now)
	}

	if !model.HasHighSeverity(s.Issues) {
		return transition(s, StateComplete, now)
	}
	if s.RetryCount < s.MaxRetry {
		return transition(s, StateRevising, now)
	}

	s.NeedsReview = true
	s.logError(now, "retry budget of %d exhausted with %d high severity issues", s.MaxRetry, len(highIssues(s.Issues)))
	return transition(s, StateNeedsHuman, now)
}

func (e *Engine) revise(ctx context.Context, s *Session) error {
	if s.RetryCount >= s.MaxRetry {
		return fmt.Errorf("%w: retry budget of %d already spent", common.ErrInvalidTransition, s.MaxRetry)
	}

	prompt, err := e.deps.Prompts.BuildRevise(prompts.ReviseData{
		Classification: s.Classification,
		Document:       s.Document,
		ClosingMarker:  guard.DefaultClosingMarker,
		Issues:         highIssues(s.Issues),
	})
	if err != nil {
		return err
	}

	s.RetryCount++
	if err := e.propose(ctx, s, prompt, fmt.Sprintf("revision %d/%d", s.RetryCount, s.MaxRetry)); err != nil {
		return err
	}
	return transition(s, StateValidating, e.config.Now())
}

// propose asks the reasoning service for a full document and keeps it only
// if the guard accepts it against the current candidate. Service errors are
// rejections; only context cancellation is returned.
func (e *Engine) propose(ctx context.Context, s *Session, prompt prompts.Prompt, purpose string) error {
	s.ServiceCalls++
	raw, err := e.deps.Reasoner.Complete(ctx, prompt.Instruction, prompt.Context)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		e.reject(s, purpose, guard.Reject(guard.ReasonServiceFailure, err.Error()))
		return nil
	}

	candidate := llm.CleanText(raw)
	decision := e.deps.Guard.Check(candidate, s.Document, s.Baseline, s.Classification)
	if !decision.Accepted {
		e.reject(s, purpose, decision)
		return nil
	}

	s.Document = candidate
	slog.Info("Accepted candidate", "session_id", s.ID, "purpose", purpose)
	return nil
}

func (e *Engine) reject(s *Session, purpose string, decision guard.Decision) {
	s.ServiceFailures++
	s.logError(e.config.Now(), "%s rejected: %s", purpose, decision.Summary())
	slog.Warn("Reasoning service output rejected",
		"session_id", s.ID,
		"purpose", purpose,
		"reason", decision.Summary())
}

func (e *Engine) lock(sessionID string) func() {
	e.mu.Lock()
	l, ok := e.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		e.locks[sessionID] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, sessionID)
		}
		e.mu.Unlock()
	}
}

// IsInputError reports whether a drafting error came from the purchase plan
// rather than from infrastructure.
func IsInputError(err error) bool {
	return errors.Is(err, common.ErrInvalidInput)
}
