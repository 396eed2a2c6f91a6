package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/tender/internal/classification"
	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/config"
	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/extract"
	"github.com/Veraticus/tender/internal/llm"
	"github.com/Veraticus/tender/internal/prompts"
	"github.com/Veraticus/tender/internal/reconcile"
	"github.com/Veraticus/tender/internal/reference"
	"github.com/Veraticus/tender/internal/service"
	"github.com/Veraticus/tender/internal/storage"
	"github.com/Veraticus/tender/internal/threshold"
)

// reasoningMode says how a command treats a missing reasoning-service setup.
type reasoningMode int

const (
	reasoningOff reasoningMode = iota
	// reasoningOptional disables the service with a warning when no API key is set.
	reasoningOptional
	reasoningRequired
)

// app holds the collaborators shared by the commands.
type app struct {
	settings   *config.Settings
	store      *storage.SQLiteStorage
	reasoner   service.ReasoningService
	thresholds *threshold.Provider
	classifier *classification.Engine
	prompts    *prompts.Builder
}

func loadSettings(mode reasoningMode) (*config.Settings, error) {
	v := viper.GetViper()
	if mode == reasoningOff {
		v.Set("llm.provider", config.ProviderNone)
	}

	settings, err := config.Load(v)
	if err != nil && mode == reasoningOptional && errors.Is(err, common.ErrMissingConfig) {
		slog.Warn("Reasoning service disabled", "error", err)
		v.Set("llm.provider", config.ProviderNone)
		return config.Load(v)
	}
	return settings, err
}

// openApp loads settings, opens and migrates the database, and builds the
// shared collaborators.
func openApp(ctx context.Context, mode reasoningMode) (*app, error) {
	settings, err := loadSettings(mode)
	if err != nil {
		return nil, err
	}
	if mode == reasoningRequired && !settings.ReasoningEnabled() {
		return nil, fmt.Errorf("%w: this command needs a reasoning service; set llm.provider", common.ErrMissingConfig)
	}

	store, err := storage.Open(ctx, settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	builder, err := prompts.NewBuilder()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{settings: settings, store: store, prompts: builder}

	if settings.ReasoningEnabled() {
		reasoner, err := llm.New(settings.LLM, slog.Default())
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create reasoning service: %w", err)
		}
		a.reasoner = reasoner
	}

	a.thresholds = threshold.NewProvider(threshold.Config{
		Override: settings.Threshold.Override,
		CacheTTL: settings.Threshold.CacheTTL,
	}, threshold.NewHTTPFetcher(settings.Threshold.URL, 0), store)
	a.classifier = classification.NewEngine(a.thresholds)

	slog.Debug("Application ready",
		"database", settings.DatabasePath,
		"provider", settings.LLM.Provider,
		"reasoning", a.reasoner != nil)
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

func (a *app) extractor() *extract.Extractor {
	return extract.New(a.reasoner, a.prompts)
}

func (a *app) draftingEngine() (*drafting.Engine, error) {
	return drafting.NewEngine(drafting.Deps{
		Classifier: a.classifier,
		Sessions:   drafting.NewSQLiteSessionStore(a.store.DB()),
		Extractor:  a.extractor(),
		Reasoner:   a.reasoner,
		Templates:  a.store,
		Prompts:    a.prompts,
	}, drafting.Config{
		MaxRetry: a.settings.MaxRetry,
		Now:      time.Now,
	})
}

func (a *app) reconciler() (*reconcile.Reconciler, error) {
	rs := a.settings.Reconcile
	return reconcile.New(reconcile.Deps{
		Reasoner:   a.reasoner,
		References: reference.NewFileCollector(rs.ReferenceDir, rs.Include, rs.Exclude),
		Templates:  a.store,
		Prompts:    a.prompts,
	}, reconcile.Config{
		MaxIterations: rs.MaxIterations,
		Window:        rs.Window,
		Now:           time.Now,
	})
}
