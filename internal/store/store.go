// Package store persists the page builder's state: the two layout document
// slots (draft and live), the store theme, and the seed catalog records.
// Implementations share one contract: loading something that was never saved
// returns the zero value, not an error, so a fresh site needs no migration
// step before it serves.
package store

import (
	"context"
	"fmt"

	"github.com/shopkit/pagebuilder"
)

// Store is the persistence boundary for layouts, theme, and catalog.
type Store interface {
	// LoadLayout returns the document in the given slot. A slot that was
	// never saved yields an empty document.
	LoadLayout(ctx context.Context, slot pagebuilder.Slot) (pagebuilder.Document, error)

	// SaveLayout replaces the document in the given slot.
	SaveLayout(ctx context.Context, slot pagebuilder.Slot, doc pagebuilder.Document) error

	// Publish copies the draft slot into the live slot. The copy is atomic:
	// readers of the live slot see either the old or the new document, never
	// a partial one.
	Publish(ctx context.Context) error

	// LoadTheme returns the saved theme. ok is false when none was saved yet.
	LoadTheme(ctx context.Context) (theme pagebuilder.Theme, ok bool, err error)

	// SaveTheme replaces the saved theme.
	SaveTheme(ctx context.Context, theme pagebuilder.Theme) error

	// LoadCatalog returns the seed catalog records. A fresh store yields an
	// empty catalog.
	LoadCatalog(ctx context.Context) (pagebuilder.Catalog, error)

	// SaveCatalog replaces the seed catalog records.
	SaveCatalog(ctx context.Context, catalog pagebuilder.Catalog) error

	Close() error
}

// Keys for the backing key/value record. Both SQL stores share the layout:
// one row per key, the value a JSON (or layout) string.
const (
	keyLayoutDraft = "layout:draft"
	keyLayoutLive  = "layout:live"
	keyTheme       = "theme"
	keyCatalog     = "catalog"
)

func layoutKey(slot pagebuilder.Slot) (string, error) {
	switch slot {
	case pagebuilder.SlotDraft:
		return keyLayoutDraft, nil
	case pagebuilder.SlotLive:
		return keyLayoutLive, nil
	}
	return "", fmt.Errorf("unknown layout slot %q", slot)
}

// isValidIdentifier reports whether name is safe to splice into SQL as a
// table name (prevents injection through configuration).
func isValidIdentifier(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for i, c := range name {
		if i == 0 {
			if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_') {
				return false
			}
		} else {
			if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
				return false
			}
		}
	}
	return true
}
