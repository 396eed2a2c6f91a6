package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/model"
)

func TestMemoryTemplateStore(t *testing.T) {
	store := NewMemoryTemplateStore()
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Latest(ctx, "소액수의")
	require.ErrorIs(t, err, common.ErrNotFound)

	older := template("소액수의", "1.0.0", at)
	older.ID = "id-1"
	newer := template("소액수의", "1.0.1", at)
	newer.ID = "id-2"
	require.NoError(t, store.Append(ctx, newer))
	require.NoError(t, store.Append(ctx, older))
	require.NoError(t, store.Append(ctx, template("소액수의", "0.9.0", at.Add(-time.Hour))))

	latest, err := store.Latest(ctx, "소액수의")
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", latest.Version)

	history, err := store.List(ctx, "소액수의")
	require.NoError(t, err)
	versions := make([]string, 0, len(history))
	for _, h := range history {
		versions = append(versions, h.Version)
	}
	assert.Equal(t, []string{"1.0.1", "1.0.0", "0.9.0"}, versions)

	err = store.Append(ctx, &model.TemplateRecord{TemplateType: "소액수의"})
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Equal(t, 3, store.Len())
}
