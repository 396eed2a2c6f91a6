package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/service"
)

var _ service.TemplateStore = (*SQLiteStorage)(nil)

// Append inserts a new template version. A missing ID or timestamp is filled in.
// Rows are never updated or deleted.
func (s *SQLiteStorage) Append(ctx context.Context, record *model.TemplateRecord) error {
	if err := prepareRecord(ctx, record, time.Now); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notice_templates (id, template_type, version, content, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.TemplateType,
		record.Version,
		record.Content,
		record.Summary,
		record.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("template %s: %w", record.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert template: %w", err)
	}
	return nil
}

// Latest returns the newest version of a template type. Rows sharing a
// created_at are ordered by id, descending.
func (s *SQLiteStorage) Latest(ctx context.Context, templateType string) (*model.TemplateRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(templateType, "templateType"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, template_type, version, content, summary, created_at
		FROM notice_templates
		WHERE template_type = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, templateType)

	record, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template type %q: %w", templateType, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns every version of a template type, newest first.
func (s *SQLiteStorage) List(ctx context.Context, templateType string) ([]model.TemplateRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(templateType, "templateType"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_type, version, content, summary, created_at
		FROM notice_templates
		WHERE template_type = ?
		ORDER BY created_at DESC, id DESC`, templateType)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.TemplateRecord
	for rows.Next() {
		record, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return records, nil
}

// TemplateTypes lists the distinct template types that have stored versions.
func (s *SQLiteStorage) TemplateTypes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT template_type FROM notice_templates ORDER BY template_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query template types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan template type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*model.TemplateRecord, error) {
	var (
		record    model.TemplateRecord
		createdAt string
	)
	if err := row.Scan(&record.ID, &record.TemplateType, &record.Version, &record.Content, &record.Summary, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	t, err := time.Parse(timeLayout, strings.TrimSpace(createdAt))
	if err != nil {
		return nil, fmt.Errorf("%w: template %s has bad created_at %q", common.ErrDatabaseCorrupted, record.ID, createdAt)
	}
	record.CreatedAt = t
	return &record, nil
}
