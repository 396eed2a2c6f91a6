package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/service"
)

var _ service.TemplateStore = (*MemoryTemplateStore)(nil)

// MemoryTemplateStore is an in-process TemplateStore.
type MemoryTemplateStore struct {
	now     func() time.Time
	records []model.TemplateRecord
	mu      sync.RWMutex
}

// NewMemoryTemplateStore creates an empty store.
func NewMemoryTemplateStore() *MemoryTemplateStore {
	return &MemoryTemplateStore{now: time.Now}
}

// Append stores a copy of record.
func (m *MemoryTemplateStore) Append(ctx context.Context, record *model.TemplateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := prepareRecord(ctx, record, m.now); err != nil {
		return err
	}
	for _, r := range m.records {
		if r.ID == record.ID {
			return fmt.Errorf("template %s: %w", record.ID, common.ErrDuplicateEntry)
		}
	}

	m.records = append(m.records, *record)
	return nil
}

// Latest returns the newest version of templateType.
func (m *MemoryTemplateStore) Latest(ctx context.Context, templateType string) (*model.TemplateRecord, error) {
	records, err := m.List(ctx, templateType)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("template type %q: %w", templateType, common.ErrNotFound)
	}
	return &records[0], nil
}

// List returns all versions of templateType, newest first. Equal timestamps
// are ordered by id, descending.
func (m *MemoryTemplateStore) List(ctx context.Context, templateType string) ([]model.TemplateRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.TemplateRecord
	for _, r := range m.records {
		if r.TemplateType == templateType {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Len reports how many versions are stored across all types.
func (m *MemoryTemplateStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
