package drafting

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tender/internal/common"
)

var _ SessionStore = (*SQLiteSessionStore)(nil)

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteSessionStore persists sessions in the drafting_sessions table. The
// indexed columns mirror the JSON document in data.
type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSQLiteSessionStore creates a store on an already migrated database.
func NewSQLiteSessionStore(db *sql.DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

// Create inserts a new session.
func (s *SQLiteSessionStore) Create(ctx context.Context, session *Session) error {
	if err := validateSession(ctx, session); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drafting_sessions WHERE id = ?`, session.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: session %s", common.ErrDuplicateEntry, session.ID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafting_sessions (
			id, state, retry_count, needs_review, data, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		string(session.State),
		session.RetryCount,
		session.NeedsReview,
		string(data),
		session.CreatedAt.UTC().Format(sqliteTimeLayout),
		session.UpdatedAt.UTC().Format(sqliteTimeLayout),
		nullTime(session.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	slog.Debug("Created drafting session in database", "session_id", session.ID, "state", session.State)
	return nil
}

// Get loads one session.
func (s *SQLiteSessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session ID is required", common.ErrInvalidInput)
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM drafting_sessions WHERE id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return decodeSession(data)
}

// Update rewrites an existing session.
func (s *SQLiteSessionStore) Update(ctx context.Context, session *Session) error {
	if err := validateSession(ctx, session); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE drafting_sessions
		SET state = ?, retry_count = ?, needs_review = ?, data = ?, updated_at = ?, completed_at = ?
		WHERE id = ?`,
		string(session.State),
		session.RetryCount,
		session.NeedsReview,
		string(data),
		session.UpdatedAt.UTC().Format(sqliteTimeLayout),
		nullTime(session.CompletedAt),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, session.ID)
	}

	slog.Debug("Updated drafting session in database",
		"session_id", session.ID,
		"state", session.State,
		"retry_count", session.RetryCount)
	return nil
}

// List returns sessions most recently updated first.
func (s *SQLiteSessionStore) List(ctx context.Context, limit int) ([]*Session, error) {
	query := `SELECT data FROM drafting_sessions ORDER BY updated_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func decodeSession(data string) (*Session, error) {
	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("%w: session data: %v", common.ErrDatabaseCorrupted, err)
	}
	return &session, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(sqliteTimeLayout), Valid: true}
}
