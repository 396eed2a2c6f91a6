package model

import (
	"fmt"
	"time"
)

// DefaultTemplateVersion is assigned to the first stored template of a type.
const DefaultTemplateVersion = "1.0.0"

// MaxSummaryLength bounds TemplateRecord.Summary.
const MaxSummaryLength = 255

// TemplateRecord is one immutable version of an announcement template.
type TemplateRecord struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	TemplateType string    `json:"template_type"`
	Version      string    `json:"version"`
	Content      string    `json:"content"`
	Summary      string    `json:"summary"`
}

// Validate checks the record before it is appended to a store.
func (t *TemplateRecord) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template ID is required")
	}
	if t.TemplateType == "" {
		return fmt.Errorf("template type is required")
	}
	if t.Version == "" {
		return fmt.Errorf("template version is required")
	}
	if t.Content == "" {
		return fmt.Errorf("template content is required")
	}
	if len([]rune(t.Summary)) > MaxSummaryLength {
		return fmt.Errorf("summary exceeds %d characters", MaxSummaryLength)
	}
	return nil
}

// TruncateSummary shortens s to MaxSummaryLength runes.
func TruncateSummary(s string) string {
	r := []rune(s)
	if len(r) <= MaxSummaryLength {
		return s
	}
	return string(r[:MaxSummaryLength])
}

// ChangeType describes what a proposed template change does.
type ChangeType string

// Change type constants.
const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Severity grades issues and proposed changes.
type Severity string

// Severity constants.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Change is a single difference the comparator found between references and the template.
type Change struct {
	Section   string     `json:"section"`
	Type      ChangeType `json:"type"`
	Severity  Severity   `json:"severity"`
	OldText   string     `json:"old_text"`
	NewText   string     `json:"new_text"`
	Frequency string     `json:"frequency"`
}

// ComparisonResult is the comparator's answer for one pass.
type ComparisonResult struct {
	Summary         string   `json:"summary"`
	UpdatedTemplate string   `json:"updated_template"`
	Changes         []Change `json:"changes"`
	HasChanges      bool     `json:"has_changes"`
}

// Decision is the validator's verdict on a comparison.
type Decision string

// Decision constants.
const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// RecheckGuideline narrows what the comparator looks at on a rerun.
type RecheckGuideline struct {
	Ignore []string `json:"ignore"`
	Focus  []string `json:"focus"`
}

// IsEmpty reports whether the guideline carries no guidance.
func (g RecheckGuideline) IsEmpty() bool {
	return len(g.Ignore) == 0 && len(g.Focus) == 0
}

// ValidationDecision is the validator's answer for one comparison.
type ValidationDecision struct {
	Decision         Decision         `json:"decision"`
	Summary          string           `json:"summary"`
	ApprovedChanges  []Change         `json:"approved_changes"`
	RecheckGuideline RecheckGuideline `json:"recheck_guideline"`
	RequiresRecheck  bool             `json:"requires_recheck"`
}

// ValidationIssue is a problem found in a generated announcement section.
type ValidationIssue struct {
	Section    string   `json:"section"`
	Type       string   `json:"type"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Severity   Severity `json:"severity"`
}

// HasHighSeverity reports whether any issue is high severity.
func HasHighSeverity(issues []ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityHigh {
			return true
		}
	}
	return false
}
