// Package reconcile keeps a stored announcement template aligned with recently
// published announcements through a bounded comparator and validator review.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/tender/internal/assembler"
	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/guard"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/prompts"
	"github.com/Veraticus/tender/internal/service"
)

// Defaults for Config.
const (
	DefaultMaxIterations = 2
	DefaultWindow        = 30 * 24 * time.Hour
)

// Status is the outcome of one reconciliation.
type Status string

// Reconciliation outcomes.
const (
	StatusUnchanged Status = "unchanged"
	StatusChanged   Status = "changed"
)

// ProgressCallback reports the step being run and a rough completion percentage.
type ProgressCallback func(stage string, percent int)

// Result describes one reconciliation. Reason says why nothing was saved.
type Result struct {
	Current      *model.TemplateRecord `json:"current"`
	Saved        *model.TemplateRecord `json:"saved,omitempty"`
	TemplateType string                `json:"template_type"`
	Status       Status                `json:"status"`
	Reason       string                `json:"reason,omitempty"`
	Summary      string                `json:"summary,omitempty"`
	Changes      []model.Change        `json:"changes,omitempty"`
	References   int                   `json:"references"`
	Iterations   int                   `json:"iterations"`
}

// Deps contains the collaborators of the reconciler.
type Deps struct {
	Reasoner   service.ReasoningService
	References service.ReferenceCollector
	Templates  service.TemplateStore
	Guard      *guard.Guard
	Prompts    *prompts.Builder
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.References == nil {
		return fmt.Errorf("reference collector dependency is required")
	}
	if d.Templates == nil {
		return fmt.Errorf("template store dependency is required")
	}
	return nil
}

// Config tunes the reconciler.
type Config struct {
	Now           func() time.Time
	MaxIterations int
	// Window is how far back references are collected.
	Window time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{MaxIterations: DefaultMaxIterations, Window: DefaultWindow, Now: time.Now}
}

// Reconciler runs reconciliations for any template type.
type Reconciler struct {
	deps   Deps
	config Config
}

// New creates a reconciler.
func New(deps Deps, cfg Config) (*Reconciler, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if deps.Guard == nil {
		deps.Guard = guard.Default()
	}
	if deps.Prompts == nil {
		builder, err := prompts.NewBuilder()
		if err != nil {
			return nil, err
		}
		deps.Prompts = builder
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reconciler{deps: deps, config: cfg}, nil
}

// Reconcile compares the current template of templateType with recent
// references and appends a new version only when the validator approves
// changes that are all present in the regenerated body. Every ambiguous or
// failed review ends unchanged. Errors are returned only for the collector,
// the template store, and cancellation.
func (r *Reconciler) Reconcile(ctx context.Context, templateType string, progress ProgressCallback) (*Result, error) {
	if progress == nil {
		progress = func(string, int) {}
	}

	progress("Loading template", 5)
	current, stored, err := assembler.CurrentTemplate(ctx, r.deps.Templates, templateType)
	if err != nil {
		return nil, err
	}
	result := &Result{TemplateType: templateType, Current: current, Status: StatusUnchanged}

	progress("Collecting references", 15)
	since := r.config.Now().Add(-r.config.Window)
	refs, err := r.deps.References.Collect(ctx, templateType, since)
	if err != nil {
		return nil, fmt.Errorf("failed to collect references: %w", err)
	}
	result.References = len(refs)
	if len(refs) == 0 {
		result.Reason = "no references in window"
		slog.Info("Reconciliation skipped", "template_type", templateType, "reason", result.Reason)
		progress("No references", 100)
		return result, nil
	}
	if r.deps.Reasoner == nil {
		return nil, fmt.Errorf("%w: reconciliation needs a reasoning service", common.ErrMissingConfig)
	}

	approved, err := r.review(ctx, current, refs, result, progress)
	if err != nil {
		return nil, err
	}
	if approved == nil {
		progress("Reconciliation finished", 100)
		return result, nil
	}

	progress("Verifying approved changes", 85)
	body, reason := Apply(current.Content, approved.comparison, approved.decision.ApprovedChanges)
	if reason == "" {
		if decision := r.deps.Guard.CheckStructure(body, current.Content, current.Content); !decision.Accepted {
			reason = "approved body rejected: " + decision.Summary()
		}
	}
	if reason != "" {
		result.Reason = reason
		slog.Warn("Approved changes not saved", "template_type", templateType, "reason", reason)
		progress("Reconciliation finished", 100)
		return result, nil
	}

	progress("Saving template", 95)
	record := r.nextRecord(current, stored, body, approved.summary())
	if err := r.deps.Templates.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	result.Status = StatusChanged
	result.Saved = record
	result.Summary = record.Summary
	result.Changes = approved.decision.ApprovedChanges
	slog.Info("Saved reconciled template",
		"template_type", templateType,
		"version", record.Version,
		"changes", len(result.Changes))
	progress("Reconciliation finished", 100)
	return result, nil
}

// nextRecord builds the version that follows current. The first stored
// version of a type is model.DefaultTemplateVersion.
func (r *Reconciler) nextRecord(current *model.TemplateRecord, stored bool, body, summary string) *model.TemplateRecord {
	version := model.DefaultTemplateVersion
	createdAt := r.config.Now()
	if stored {
		version = NextVersion(current.Version)
		if !createdAt.After(current.CreatedAt) {
			createdAt = current.CreatedAt.Add(time.Microsecond)
		}
	}
	if strings.TrimSpace(summary) == "" {
		summary = "reconciled with recent announcements"
	}
	return &model.TemplateRecord{
		TemplateType: current.TemplateType,
		Version:      version,
		Content:      body,
		Summary:      model.TruncateSummary(summary),
		CreatedAt:    createdAt,
	}
}

// NextVersion bumps the patch component of an X.Y.Z version. Other version
// strings are returned unchanged.
func NextVersion(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) != 3 || parts[2] == "" {
		return version
	}
	patch := 0
	for _, r := range parts[2] {
		if r < '0' || r > '9' {
			return version
		}
		patch = patch*10 + int(r-'0')
	}
	parts[2] = fmt.Sprint(patch + 1)
	return strings.Join(parts, ".")
}
