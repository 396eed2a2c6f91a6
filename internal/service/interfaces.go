// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tender/internal/model"
)

// ReasoningService is the external text-generation capability.
// It accepts an instruction plus context and returns free text with no
// guarantee about structure, length, or correctness.
type ReasoningService interface {
	Complete(ctx context.Context, instruction, context string) (string, error)
}

// ExtractionService turns a raw purchase-plan document into structured fields.
type ExtractionService interface {
	Extract(ctx context.Context, path string) (*model.ExtractedRecord, error)
}

// Reference is one parsed real-world announcement used during reconciliation.
type Reference struct {
	ObservedAt time.Time
	Source     string
	Content    string
}

// ReferenceCollector returns reference announcements for a template type
// observed at or after since. Zero references is a valid answer.
type ReferenceCollector interface {
	Collect(ctx context.Context, templateType string, since time.Time) ([]Reference, error)
}

// ThresholdSource describes where a published threshold value came from.
type ThresholdSource string

// Threshold source constants.
const (
	ThresholdFromOverride     ThresholdSource = "override"
	ThresholdFromCache        ThresholdSource = "cache"
	ThresholdFromFetch        ThresholdSource = "fetch"
	ThresholdFromExpiredCache ThresholdSource = "expired_cache"
	ThresholdFromDefault      ThresholdSource = "default"
)

// Threshold is the published amount separating the SME band from the rest.
type Threshold struct {
	FetchedAt time.Time
	Source    ThresholdSource
	Amount    float64
}

// ThresholdProvider supplies the published threshold. It never fails; a
// last-known-good or default value is returned when the source is unavailable.
type ThresholdProvider interface {
	Threshold(ctx context.Context) Threshold
}

// TemplateStore persists template versions append-only.
type TemplateStore interface {
	// Append inserts a new version. Existing versions are never modified.
	Append(ctx context.Context, record *model.TemplateRecord) error
	// Latest returns the newest version for a template type or an error wrapping common.ErrNotFound.
	Latest(ctx context.Context, templateType string) (*model.TemplateRecord, error)
	// List returns every version for a template type, newest first.
	List(ctx context.Context, templateType string) ([]model.TemplateRecord, error)
}

// ThresholdCache persists the last successfully fetched threshold.
type ThresholdCache interface {
	LoadThreshold(ctx context.Context) (*Threshold, error)
	SaveThreshold(ctx context.Context, threshold Threshold) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
