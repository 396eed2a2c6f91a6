package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/service"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func template(templateType, version string, at time.Time) *model.TemplateRecord {
	return &model.TemplateRecord{
		TemplateType: templateType,
		Version:      version,
		Content:      "## 1. 입찰에 부치는 사항\n" + version,
		Summary:      "v" + version,
		CreatedAt:    at,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))
	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestPendingMigrations(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pending, err := store.PendingMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, ExpectedSchemaVersion)
	assert.Equal(t, 1, pending[0].Version)

	require.NoError(t, store.Migrate(ctx))
	pending, err = store.PendingMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTemplates_AppendAndLatest(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	_, err := store.Latest(ctx, "적격심사")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.Append(ctx, template("적격심사", "1.0.0", base)))
	require.NoError(t, store.Append(ctx, template("적격심사", "1.0.1", base.Add(time.Hour))))
	require.NoError(t, store.Append(ctx, template("소액수의", "1.0.0", base.Add(2*time.Hour))))

	latest, err := store.Latest(ctx, "적격심사")
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", latest.Version)
	assert.True(t, latest.CreatedAt.Equal(base.Add(time.Hour)))
	assert.NotEmpty(t, latest.ID)

	history, err := store.List(ctx, "적격심사")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "1.0.1", history[0].Version)
	assert.Equal(t, "1.0.0", history[1].Version)

	types, err := store.TemplateTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"소액수의", "적격심사"}, types)
}

func TestTemplates_SameTimestampOrdersByIDDescending(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	first := template("적격심사", "1.0.1", at)
	first.ID = "b"
	second := template("적격심사", "1.0.0", at)
	second.ID = "a"
	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	latest, err := store.Latest(ctx, "적격심사")
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", latest.Version)
}

func TestTemplates_RejectsInvalidAndDuplicate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	err := store.Append(ctx, &model.TemplateRecord{TemplateType: "적격심사", Version: "1.0.0"})
	require.ErrorIs(t, err, common.ErrInvalidInput)

	record := template("적격심사", "1.0.0", time.Now())
	record.ID = "fixed-id"
	require.NoError(t, store.Append(ctx, record))

	dup := template("적격심사", "1.0.1", time.Now())
	dup.ID = "fixed-id"
	require.ErrorIs(t, store.Append(ctx, dup), common.ErrDuplicateEntry)

	history, err := store.List(ctx, "적격심사")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestThresholdCache(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.LoadThreshold(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)

	fetched := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveThreshold(ctx, service.Threshold{Amount: 230_000_000, Source: service.ThresholdFromFetch, FetchedAt: fetched}))
	require.NoError(t, store.SaveThreshold(ctx, service.Threshold{Amount: 250_000_000, Source: service.ThresholdFromFetch, FetchedAt: fetched.Add(time.Hour)}))

	got, err := store.LoadThreshold(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 250_000_000, got.Amount, 0.001)
	assert.Equal(t, service.ThresholdFromFetch, got.Source)
	assert.True(t, got.FetchedAt.Equal(fetched.Add(time.Hour)))

	require.ErrorIs(t, store.SaveThreshold(ctx, service.Threshold{}), common.ErrInvalidInput)
}

func TestCheckpoint_CreateListRestore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tender.db")
	ctx := context.Background()

	store, err := Open(ctx, dbPath)
	require.NoError(t, err)
	base := time.Now()
	require.NoError(t, store.Append(ctx, template("적격심사", "1.0.0", base)))
	require.NoError(t, store.Append(ctx, template("적격심사", "1.0.1", base.Add(time.Second))))
	require.NoError(t, store.Append(ctx, template("소액수의", "1.0.0", base)))

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	info, err := cm.Create(ctx, "before-reconcile", "manual")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"적격심사": "1.0.1", "소액수의": "1.0.0"}, info.Templates)
	assert.Equal(t, 0, info.Sessions)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)

	_, err = cm.Create(ctx, "before-reconcile", "again")
	require.ErrorIs(t, err, ErrCheckpointExists)
	_, err = cm.Create(ctx, "../escape", "")
	require.Error(t, err)

	require.NoError(t, store.Append(ctx, template("적격심사", "1.0.2", base.Add(time.Minute))))

	list, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "before-reconcile", list[0].ID)

	require.NoError(t, cm.Restore(ctx, "before-reconcile"))

	reopened, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	history, err := reopened.List(ctx, "적격심사")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "1.0.1", history[0].Version)

	require.ErrorIs(t, cm.Restore(ctx, "missing"), ErrCheckpointNotFound)
}

func TestCheckpoint_AutoPrunes(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	cm.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	_, err = cm.Create(ctx, "manual-keep", "")
	require.NoError(t, err)
	for i := 0; i < maxAutoCheckpoints+2; i++ {
		_, err := cm.AutoCheckpoint(ctx, "reconcile")
		require.NoError(t, err)
	}

	list, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, maxAutoCheckpoints+1)
	assert.True(t, strings.HasPrefix(list[0].ID, "auto-reconcile-"))
	assert.Equal(t, "Automatic checkpoint before reconcile", list[0].Description)
	assert.Equal(t, "manual-keep", list[len(list)-1].ID)
}

func TestCheckpoint_RestoreRefusesNewerSchema(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)
	info, err := cm.Create(ctx, "future", "")
	require.NoError(t, err)

	info.SchemaVersion = ExpectedSchemaVersion + 1
	_, metadata, err := cm.files("future")
	require.NoError(t, err)
	require.NoError(t, writeJSONFile(metadata, info))

	require.ErrorIs(t, cm.Restore(ctx, "future"), ErrCheckpointTooNew)
	require.ErrorIs(t, cm.Delete(ctx, "nope"), ErrCheckpointNotFound)
}
