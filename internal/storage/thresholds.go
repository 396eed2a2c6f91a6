package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/service"
)

var _ service.ThresholdCache = (*SQLiteStorage)(nil)

// LoadThreshold returns the last saved published threshold.
func (s *SQLiteStorage) LoadThreshold(ctx context.Context) (*service.Threshold, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		amount    float64
		source    string
		fetchedAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT amount, source, fetched_at FROM threshold_cache WHERE id = 1`).
		Scan(&amount, &source, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("threshold cache: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load threshold: %w", err)
	}

	t, err := time.Parse(timeLayout, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad fetched_at %q", common.ErrDatabaseCorrupted, fetchedAt)
	}
	return &service.Threshold{Amount: amount, Source: service.ThresholdSource(source), FetchedAt: t}, nil
}

// SaveThreshold replaces the cached published threshold.
func (s *SQLiteStorage) SaveThreshold(ctx context.Context, threshold service.Threshold) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if threshold.Amount <= 0 {
		return fmt.Errorf("%w: threshold amount must be positive", common.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threshold_cache (id, amount, source, fetched_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET amount = excluded.amount, source = excluded.source, fetched_at = excluded.fetched_at`,
		threshold.Amount, string(threshold.Source), threshold.FetchedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save threshold: %w", err)
	}
	return nil
}
