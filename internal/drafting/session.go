package drafting

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/tender/internal/model"
)

// DefaultMaxRetry bounds revision cycles per session.
const DefaultMaxRetry = 2

// ErrorEntry is one logged failure on a session.
type ErrorEntry struct {
	At      time.Time `json:"at"`
	State   State     `json:"state"`
	Message string    `json:"message"`
}

// FeedbackAction is a reviewer's verdict on a finished session.
type FeedbackAction string

// Feedback actions.
const (
	FeedbackApprove FeedbackAction = "approve"
	FeedbackReject  FeedbackAction = "reject"
	FeedbackModify  FeedbackAction = "modify"
)

// ParseFeedbackAction validates a feedback action name.
func ParseFeedbackAction(raw string) (FeedbackAction, error) {
	switch a := FeedbackAction(raw); a {
	case FeedbackApprove, FeedbackReject, FeedbackModify:
		return a, nil
	default:
		return "", fmt.Errorf("unknown feedback action %q (want approve, reject, or modify)", raw)
	}
}

// Feedback is the reviewer's most recent decision.
type Feedback struct {
	At       time.Time      `json:"at"`
	Action   FeedbackAction `json:"action"`
	Comment  string         `json:"comment,omitempty"`
	Document string         `json:"document,omitempty"`
}

// Session carries one purchase plan through extraction, classification,
// drafting, and review.
type Session struct {
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
	CompletedAt     *time.Time                  `json:"completed_at,omitempty"`
	Record          *model.ExtractedRecord      `json:"extracted_record,omitempty"`
	Classification  *model.ClassificationResult `json:"classification_result,omitempty"`
	Feedback        *Feedback                   `json:"user_feedback,omitempty"`
	ID              string                      `json:"session_id"`
	State           State                       `json:"current_step"`
	SourcePath      string                      `json:"source_path,omitempty"`
	TemplateType    string                      `json:"template_type,omitempty"`
	TemplateVersion string                      `json:"template_version,omitempty"`
	Baseline        string                      `json:"baseline_document,omitempty"`
	Document        string                      `json:"generated_document,omitempty"`
	Unresolved      []string                    `json:"unresolved_fields,omitempty"`
	Issues          []model.ValidationIssue     `json:"validation_issues,omitempty"`
	ErrorLog        []ErrorEntry                `json:"error_log,omitempty"`
	RetryCount      int                         `json:"retry_count"`
	MaxRetry        int                         `json:"max_retry"`
	ServiceCalls    int                         `json:"service_calls"`
	ServiceFailures int                         `json:"service_failures"`
	NeedsReview     bool                        `json:"needs_review"`
}

func (s *Session) logError(now time.Time, format string, args ...any) {
	s.ErrorLog = append(s.ErrorLog, ErrorEntry{At: now, State: s.State, Message: fmt.Sprintf(format, args...)})
	s.UpdatedAt = now
}

// Clone returns a deep copy so stores never share memory with callers.
func (s *Session) Clone() *Session {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal session for deep copy: %v", err))
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("failed to unmarshal session for deep copy: %v", err))
	}
	return &out
}
