package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Checkpoint errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
	ErrCheckpointTooNew    = errors.New("checkpoint was written by a newer schema")
	errInvalidCheckpointID = errors.New("invalid checkpoint ID: cannot contain path separators")
)

// maxAutoCheckpoints bounds how many automatic snapshots are kept.
const maxAutoCheckpoints = 5

const (
	snapshotExt = ".db"
	metadataExt = ".meta.json"
)

// CheckpointInfo describes one snapshot. Templates maps each stored template
// type to the version that was current when the snapshot was taken.
type CheckpointInfo struct {
	CreatedAt     time.Time         `json:"created_at"`
	Templates     map[string]string `json:"templates"`
	ID            string            `json:"id"`
	Description   string            `json:"description"`
	FileSize      int64             `json:"file_size"`
	Sessions      int               `json:"sessions"`
	SchemaVersion int               `json:"schema_version"`
	IsAuto        bool              `json:"is_auto"`
}

// CheckpointManager snapshots the database so template history can be rolled
// back, typically after a reconciliation run stored versions nobody wanted.
type CheckpointManager struct {
	db     *sql.DB
	now    func() time.Time
	dbPath string
	dir    string
}

// NewCheckpointManager creates a manager storing snapshots in a checkpoints
// directory next to dbPath.
func NewCheckpointManager(db *sql.DB, dbPath string) (*CheckpointManager, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	dir := filepath.Join(filepath.Dir(absPath), "checkpoints")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	return &CheckpointManager{db: db, now: time.Now, dbPath: absPath, dir: dir}, nil
}

// files returns the snapshot and metadata paths for id.
func (cm *CheckpointManager) files(id string) (snapshot, metadata string, err error) {
	if id == "" || strings.ContainsAny(id, `/\'";`) || strings.Contains(id, "..") {
		return "", "", errInvalidCheckpointID
	}
	return filepath.Join(cm.dir, id+snapshotExt), filepath.Join(cm.dir, id+metadataExt), nil
}

// Create snapshots the database under tag. An empty tag is generated from the time.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointInfo, error) {
	if tag == "" {
		tag = "checkpoint-" + cm.now().Format("20060102-150405")
	}
	return cm.create(ctx, tag, description, false)
}

// AutoCheckpoint snapshots the database before the named operation and prunes
// automatic snapshots beyond the newest few.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, operation string) (*CheckpointInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s", operation, cm.now().Format("20060102-150405"))
	info, err := cm.create(ctx, tag, "Automatic checkpoint before "+operation, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}
	if err := cm.pruneAuto(ctx); err != nil {
		slog.Warn("failed to clean up old auto-checkpoints", "error", err)
	}
	return info, nil
}

func (cm *CheckpointManager) create(ctx context.Context, tag, description string, auto bool) (*CheckpointInfo, error) {
	snapshot, metadata, err := cm.files(tag)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(snapshot); err == nil {
		return nil, ErrCheckpointExists
	}

	info := CheckpointInfo{ID: tag, Description: description, IsAuto: auto, CreatedAt: cm.now()}
	if err := cm.describe(ctx, &info); err != nil {
		return nil, err
	}

	if _, err := cm.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	// #nosec G201 - snapshot is built from a validated tag
	if _, err := cm.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", snapshot)); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}
	stat, err := os.Stat(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}
	info.FileSize = stat.Size()

	if err := writeJSONFile(metadata, info); err != nil {
		if rmErr := os.Remove(snapshot); rmErr != nil {
			slog.Error("failed to remove checkpoint file after metadata save failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	if _, err := cm.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO checkpoint_metadata (id, description, file_size, schema_version, is_auto, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		info.ID, info.Description, info.FileSize, info.SchemaVersion, info.IsAuto, info.CreatedAt.UTC().Format(timeLayout)); err != nil {
		slog.Warn("failed to store checkpoint metadata in database", "error", err)
	}

	return &info, nil
}

// describe records the schema version, the current template versions, and
// the session count.
func (cm *CheckpointManager) describe(ctx context.Context, info *CheckpointInfo) error {
	if err := cm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&info.SchemaVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if err := cm.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM drafting_sessions").Scan(&info.Sessions); err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}

	rows, err := cm.db.QueryContext(ctx, `SELECT template_type, version FROM notice_templates ORDER BY created_at, id`)
	if err != nil {
		return fmt.Errorf("failed to query templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	info.Templates = make(map[string]string)
	for rows.Next() {
		var templateType, version string
		if err := rows.Scan(&templateType, &version); err != nil {
			return fmt.Errorf("failed to scan template: %w", err)
		}
		// Ascending order: the last row seen per type is the current one.
		info.Templates[templateType] = version
	}
	return rows.Err()
}

// List returns all checkpoints, newest first.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	checkpoints := make([]CheckpointInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metadataExt) {
			continue
		}
		var info CheckpointInfo
		if err := readJSONFile(filepath.Join(cm.dir, entry.Name()), &info); err != nil {
			slog.Debug("skipping unreadable checkpoint metadata", "file", entry.Name(), "error", err)
			continue
		}
		checkpoints = append(checkpoints, info)
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].CreatedAt.After(checkpoints[j].CreatedAt)
	})
	return checkpoints, nil
}

// Restore replaces the database file with a checkpoint. The manager's
// connection is closed; callers must reopen storage afterwards. Snapshots
// from a newer schema are refused.
func (cm *CheckpointManager) Restore(_ context.Context, id string) error {
	snapshot, metadata, err := cm.files(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(snapshot); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}

	var info CheckpointInfo
	if err := readJSONFile(metadata, &info); err == nil && info.SchemaVersion > ExpectedSchemaVersion {
		return fmt.Errorf("%w: %d > %d", ErrCheckpointTooNew, info.SchemaVersion, ExpectedSchemaVersion)
	}
	if err := verifyIntegrity(snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointCorrupted, err)
	}

	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(cm.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s file: %w", suffix, err)
		}
	}
	return copyFile(snapshot, cm.dbPath)
}

// Delete removes a checkpoint and its metadata.
func (cm *CheckpointManager) Delete(ctx context.Context, id string) error {
	snapshot, metadata, err := cm.files(id)
	if err != nil {
		return err
	}
	if err := os.Remove(snapshot); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}
	if err := os.Remove(metadata); err != nil {
		slog.Debug("failed to remove metadata file", "error", err, "id", id)
	}
	if _, err := cm.db.ExecContext(ctx, "DELETE FROM checkpoint_metadata WHERE id = ?", id); err != nil {
		slog.Debug("failed to remove checkpoint metadata from database", "error", err, "id", id)
	}
	return nil
}

func (cm *CheckpointManager) pruneAuto(ctx context.Context) error {
	checkpoints, err := cm.List(ctx)
	if err != nil {
		return err
	}

	kept := 0
	for _, cp := range checkpoints {
		if !cp.IsAuto {
			continue
		}
		if kept++; kept <= maxAutoCheckpoints {
			continue
		}
		if err := cm.Delete(ctx, cp.ID); err != nil {
			slog.Debug("failed to delete old auto-checkpoint", "error", err, "checkpoint", cp.ID)
		}
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSONFile(path string, v any) error {
	// #nosec G304 - path is inside the checkpoints directory
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func copyFile(src, dst string) error {
	// #nosec G304 - src is a validated checkpoint path
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	tmp := dst + ".tmp"
	destination, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := destination.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
