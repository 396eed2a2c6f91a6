// Package drafting runs a purchase plan through extraction, classification,
// assembly, and the generate, validate, and revise loop around the reasoning
// service.
package drafting

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/tender/internal/guard"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/prompts"
	"github.com/Veraticus/tender/internal/service"
)

// Classifier produces a classification for an extracted record.
type Classifier interface {
	Classify(ctx context.Context, record *model.ExtractedRecord) (*model.ClassificationResult, error)
}

// Deps contains the collaborators of the drafting engine.
type Deps struct {
	// Classifier is required.
	Classifier Classifier
	// Sessions is required.
	Sessions SessionStore
	// Extractor turns uploaded files into records. Only Start needs it.
	Extractor service.ExtractionService
	// Reasoner drafts, validates, and revises. Without it the baseline is final.
	Reasoner service.ReasoningService
	// Templates supplies the latest template; the built-in seed is used when nil.
	Templates service.TemplateStore
	Guard     *guard.Guard
	Prompts   *prompts.Builder
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Classifier == nil {
		return fmt.Errorf("classifier dependency is required")
	}
	if d.Sessions == nil {
		return fmt.Errorf("session store dependency is required")
	}
	return nil
}

// Config tunes the engine.
type Config struct {
	Now func() time.Time
	// MaxRetry bounds revision cycles per session.
	MaxRetry int
	// SkipGeneration finishes sessions with the baseline even when a reasoner is set.
	SkipGeneration bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{MaxRetry: DefaultMaxRetry, Now: time.Now}
}

// NewEngine creates a drafting engine.
func NewEngine(deps Deps, cfg Config) (*Engine, error) {
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
	if cfg.MaxRetry < 0 {
		return nil, fmt.Errorf("max retry must not be negative, got %d", cfg.MaxRetry)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		deps:   deps,
		config: cfg,
		locks:  make(map[string]*sessionLock),
	}, nil
}
