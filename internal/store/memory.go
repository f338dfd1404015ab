package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopkit/pagebuilder"
)

// Memory is an in-process Store used by tests and the scaffolding commands.
// Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	layouts map[pagebuilder.Slot]string
	theme   *pagebuilder.Theme
	catalog pagebuilder.Catalog
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{layouts: make(map[pagebuilder.Slot]string)}
}

func (m *Memory) LoadLayout(_ context.Context, slot pagebuilder.Slot) (pagebuilder.Document, error) {
	if _, err := layoutKey(slot); err != nil {
		return pagebuilder.Document{}, err
	}
	m.mu.RLock()
	raw := m.layouts[slot]
	m.mu.RUnlock()
	return pagebuilder.Deserialize(raw), nil
}

func (m *Memory) SaveLayout(_ context.Context, slot pagebuilder.Slot, doc pagebuilder.Document) error {
	if _, err := layoutKey(slot); err != nil {
		return err
	}
	raw, err := doc.Serialize()
	if err != nil {
		return fmt.Errorf("serialize layout: %w", err)
	}
	m.mu.Lock()
	m.layouts[slot] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Publish(_ context.Context) error {
	m.mu.Lock()
	m.layouts[pagebuilder.SlotLive] = m.layouts[pagebuilder.SlotDraft]
	m.mu.Unlock()
	return nil
}

func (m *Memory) LoadTheme(_ context.Context) (pagebuilder.Theme, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.theme == nil {
		return pagebuilder.Theme{}, false, nil
	}
	return *m.theme, true, nil
}

func (m *Memory) SaveTheme(_ context.Context, theme pagebuilder.Theme) error {
	m.mu.Lock()
	m.theme = &theme
	m.mu.Unlock()
	return nil
}

func (m *Memory) LoadCatalog(_ context.Context) (pagebuilder.Catalog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog, nil
}

func (m *Memory) SaveCatalog(_ context.Context, catalog pagebuilder.Catalog) error {
	m.mu.Lock()
	m.catalog = catalog
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}
