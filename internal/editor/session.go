// Package editor holds the editing session for one page: the in-memory draft
// document, the current selection, and the Idle/Dirty/Saving state machine
// that gates persistence.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/shopkit/pagebuilder"
	"github.com/shopkit/pagebuilder/internal/store"
)

// State is the session's persistence state.
type State int

const (
	// StateIdle: the draft matches what the store has.
	StateIdle State = iota
	// StateDirty: the draft has unsaved edits.
	StateDirty
	// StateSaving: a store call is in flight.
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrSaveInFlight is returned by Save and Publish while another persist is
// still running. Callers retry once the running one settles.
var ErrSaveInFlight = errors.New("a save is already in flight")

// Patch is a shallow update to one block. Content keys and set style fields
// merge over the existing records; Label replaces only when set.
type Patch struct {
	Content map[string]any
	Styles  *pagebuilder.StyleOverrides
	Label   *string
}

// Session is the editing session for a page. Commands are synchronous and
// safe for concurrent use; the store calls in Save and Publish run without
// the lock so editing stays responsive during a slow persist.
type Session struct {
	store store.Store

	mu       sync.Mutex
	draft    pagebuilder.Document
	selected string
	state    State
	revision uint64
}

// NewSession loads the draft slot and starts an Idle session over it.
func NewSession(ctx context.Context, st store.Store) (*Session, error) {
	draft, err := st.LoadLayout(ctx, pagebuilder.SlotDraft)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return &Session{store: st, draft: draft, state: StateIdle}, nil
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns the current draft document.
func (s *Session) Draft() pagebuilder.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Selected returns the selected block id, or "" when nothing is selected.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SelectBlock selects a block for editing; an empty or unknown id clears the
// selection. Selection is UI state and never dirties the session.
func (s *Session) SelectBlock(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.selected = ""
		return
	}
	if _, ok := s.draft.ByID(id); ok {
		s.selected = id
	} else {
		s.selected = ""
	}
}

// AddBlock appends a new block of the given type with default content,
// selects it, and dirties the session. Unknown types are rejected.
func (s *Session) AddBlock(blockType string) (pagebuilder.Block, error) {
	if !pagebuilder.KnownType(blockType) {
		return pagebuilder.Block{}, fmt.Errorf("unknown block type %q", blockType)
	}
	b := pagebuilder.NewBlock(blockType)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = s.draft.Append(b)
	s.selected = b.ID
	s.markDirty()
	return b, nil
}

// UpdateBlock applies a shallow patch to one block. Unknown ids are a no-op.
func (s *Session) UpdateBlock(id string, patch Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.draft.ByID(id)
	if !ok {
		return
	}

	if b.Content == nil {
		b.Content = make(map[string]any)
	}
	for k, v := range patch.Content {
		b.Content[k] = v
	}
	if patch.Styles != nil {
		b.Styles = overlayStyles(b.Styles, *patch.Styles)
	}
	if patch.Label != nil {
		b.Label = *patch.Label
	}

	s.draft = s.draft.UpdateByID(id, b)
	s.markDirty()
}

// overlayStyles copies every set field of patch over base, so a patch that
// touches one style never wipes the block's other overrides.
func overlayStyles(base, patch pagebuilder.StyleOverrides) pagebuilder.StyleOverrides {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&base.Background, patch.Background)
	set(&base.TextColor, patch.TextColor)
	set(&base.AccentColor, patch.AccentColor)
	set(&base.PaddingTop, patch.PaddingTop)
	set(&base.PaddingRight, patch.PaddingRight)
	set(&base.PaddingBottom, patch.PaddingBottom)
	set(&base.PaddingLeft, patch.PaddingLeft)
	set(&base.MinHeight, patch.MinHeight)
	set(&base.TextAlign, patch.TextAlign)
	if patch.FullBleed != nil {
		base.FullBleed = patch.FullBleed
	}
	return base
}

// DeleteBlock removes a block, clearing the selection if it pointed at the
// removed block. Unknown ids are a no-op.
func (s *Session) DeleteBlock(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.draft.RemoveByID(id)
	if next.Equal(s.draft) {
		return
	}
	s.draft = next
	if s.selected == id {
		s.selected = ""
	}
	s.markDirty()
}

// Reorder applies a full permutation of block ids. Invalid permutations are
// rejected by the document and leave the session untouched.
func (s *Session) Reorder(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyIfChanged(s.draft.Reorder(ids))
}

// MoveUp moves a block one position toward the front.
func (s *Session) MoveUp(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyIfChanged(s.draft.MoveUp(id))
}

// MoveDown moves a block one position toward the back.
func (s *Session) MoveDown(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyIfChanged(s.draft.MoveDown(id))
}

func (s *Session) applyIfChanged(next pagebuilder.Document) {
	if next.Equal(s.draft) {
		return
	}
	s.draft = next
	s.markDirty()
}

// markDirty must be called with the lock held.
func (s *Session) markDirty() {
	s.revision++
	if s.state != StateSaving {
		s.state = StateDirty
	}
}

// Save persists the draft slot. Legal from any state except Saving. On
// failure the in-memory draft is untouched and the session reverts to Dirty.
// A success only reaches Idle if no edit landed while the store call ran;
// otherwise the session stays Dirty so the newer edits get saved too.
func (s *Session) Save(ctx context.Context) error {
	doc, rev, err := s.beginPersist()
	if err != nil {
		return err
	}

	saveErr := s.store.SaveLayout(ctx, pagebuilder.SlotDraft, doc)
	s.endPersist(rev, saveErr)
	if saveErr != nil {
		return fmt.Errorf("save draft: %w", saveErr)
	}
	return nil
}

// Publish persists the draft and copies it into the live slot. Legal from
// Idle or Dirty; a concurrent call while Saving returns ErrSaveInFlight.
func (s *Session) Publish(ctx context.Context) error {
	doc, rev, err := s.beginPersist()
	if err != nil {
		return err
	}

	pubErr := s.store.SaveLayout(ctx, pagebuilder.SlotDraft, doc)
	if pubErr == nil {
		pubErr = s.store.Publish(ctx)
	}
	s.endPersist(rev, pubErr)
	if pubErr != nil {
		return fmt.Errorf("publish: %w", pubErr)
	}
	return nil
}

// beginPersist snapshots the draft and revision and enters Saving.
func (s *Session) beginPersist() (pagebuilder.Document, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSaving {
		return pagebuilder.Document{}, 0, ErrSaveInFlight
	}
	s.state = StateSaving
	return s.draft, s.revision, nil
}

// endPersist leaves Saving. The revision snapshot guards against a stale
// success: edits that landed mid-save keep the session Dirty.
func (s *Session) endPersist(rev uint64, persistErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case persistErr != nil:
		s.state = StateDirty
	case s.revision != rev:
		log.Printf("[Editor] Draft changed during save, staying dirty")
		s.state = StateDirty
	default:
		s.state = StateIdle
	}
}
