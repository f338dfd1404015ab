// Package pagebuilder provides the layout model for the storefront page
// builder: typed content blocks, the ordered document composing a page, the
// style cascade that resolves per-block overrides against the store theme,
// and the catalog records the renderer consumes.
package pagebuilder

import (
	"encoding/json"
	"log"
)

// Slot names the two persisted copies of a layout document.
type Slot string

const (
	SlotDraft Slot = "draft"
	SlotLive  Slot = "live"
)

// Document is the ordered sequence of blocks composing one page. Order is
// rendering order, top to bottom. All operations are pure: they return a new
// document and never mutate the receiver, so callers can hold references to
// earlier revisions (the editor's publish baseline depends on this).
type Document struct {
	blocks []Block
}

// NewDocument creates a document from the given blocks. Blocks are cloned on
// the way in; duplicated ids keep the first occurrence and drop the rest with
// a warning.
func NewDocument(blocks ...Block) Document {
	seen := make(map[string]bool, len(blocks))
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if seen[b.ID] {
			log.Printf("[Layout] Dropping block with duplicate id %q", b.ID)
			continue
		}
		seen[b.ID] = true
		out = append(out, b.Clone())
	}
	return Document{blocks: out}
}

// Len returns the number of blocks in the document.
func (d Document) Len() int {
	return len(d.blocks)
}

// Blocks returns a deep copy of the document's blocks in order.
func (d Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	for i, b := range d.blocks {
		out[i] = b.Clone()
	}
	return out
}

// IDs returns the block ids in document order.
func (d Document) IDs() []string {
	ids := make([]string, len(d.blocks))
	for i, b := range d.blocks {
		ids[i] = b.ID
	}
	return ids
}

// ByID looks up a block by id, returning a copy.
func (d Document) ByID(id string) (Block, bool) {
	for _, b := range d.blocks {
		if b.ID == id {
			return b.Clone(), true
		}
	}
	return Block{}, false
}

// indexOf returns the position of a block id, or -1.
func (d Document) indexOf(id string) int {
	for i, b := range d.blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Insert returns a document with the block inserted at the given index. The
// index is clamped into [0, Len]. A block whose id already exists in the
// document is rejected by returning the document unchanged.
func (d Document) Insert(b Block, at int) Document {
	if d.indexOf(b.ID) >= 0 {
		log.Printf("[Layout] Insert ignored: duplicate block id %q", b.ID)
		return d
	}
	if at < 0 {
		at = 0
	}
	if at > len(d.blocks) {
		at = len(d.blocks)
	}
	out := make([]Block, 0, len(d.blocks)+1)
	out = append(out, d.blocks[:at]...)
	out = append(out, b.Clone())
	out = append(out, d.blocks[at:]...)
	return Document{blocks: out}
}

// Append returns a document with the block appended.
func (d Document) Append(b Block) Document {
	return d.Insert(b, len(d.blocks))
}

// RemoveByID returns a document without the named block. Removal is
// idempotent: a missing id returns the document unchanged.
func (d Document) RemoveByID(id string) Document {
	i := d.indexOf(id)
	if i < 0 {
		return d
	}
	out := make([]Block, 0, len(d.blocks)-1)
	out = append(out, d.blocks[:i]...)
	out = append(out, d.blocks[i+1:]...)
	return Document{blocks: out}
}

// MoveUp swaps the named block with its predecessor. The first block (and any
// unknown id) is a no-op.
func (d Document) MoveUp(id string) Document {
	i := d.indexOf(id)
	if i <= 0 {
		return d
	}
	return d.swap(i-1, i)
}

// MoveDown swaps the named block with its successor. The last block (and any
// unknown id) is a no-op.
func (d Document) MoveDown(id string) Document {
	i := d.indexOf(id)
	if i < 0 || i >= len(d.blocks)-1 {
		return d
	}
	return d.swap(i, i+1)
}

func (d Document) swap(i, j int) Document {
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	out[i], out[j] = out[j], out[i]
	return Document{blocks: out}
}

// Reorder returns a document with blocks in the order given by ids. The list
// must be an exact permutation of the document's ids; anything else (missing
// id, unknown id, duplicate) returns the document unchanged. Losing a block
// to a bad reorder is a correctness violation, so the whole permutation is
// rejected rather than applied partially.
func (d Document) Reorder(ids []string) Document {
	if len(ids) != len(d.blocks) {
		log.Printf("[Layout] Reorder ignored: got %d ids for %d blocks", len(ids), len(d.blocks))
		return d
	}
	out := make([]Block, 0, len(d.blocks))
	used := make(map[string]bool, len(ids))
	for _, id := range ids {
		i := d.indexOf(id)
		if i < 0 || used[id] {
			log.Printf("[Layout] Reorder ignored: id %q is not a valid permutation entry", id)
			return d
		}
		used[id] = true
		out = append(out, d.blocks[i])
	}
	return Document{blocks: out}
}

// UpdateByID returns a document with the named block replaced wholesale by
// newBlock (the replacement keeps the original id regardless of newBlock.ID,
// so an update can never collide with or orphan another block). Unknown ids
// are a no-op.
func (d Document) UpdateByID(id string, newBlock Block) Document {
	i := d.indexOf(id)
	if i < 0 {
		return d
	}
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	replacement := newBlock.Clone()
	replacement.ID = id
	out[i] = replacement
	return Document{blocks: out}
}

// Equal reports whether two documents contain the same blocks in the same
// order, compared by serialized form.
func (d Document) Equal(other Document) bool {
	a, errA := d.Serialize()
	b, errB := other.Serialize()
	return errA == nil && errB == nil && a == b
}

// Serialize encodes the document as the persisted JSON array of blocks.
func (d Document) Serialize() (string, error) {
	blocks := d.blocks
	if blocks == nil {
		blocks = []Block{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Deserialize decodes a persisted layout string into a document. It never
// fails: empty or malformed input yields an empty document, and individual
// blocks that do not validate are skipped with a warning so the rest of the
// page still renders.
func Deserialize(raw string) Document {
	if raw == "" {
		return Document{}
	}

	var blocks []Block
	if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
		log.Printf("[Layout] Discarding malformed layout document: %v", err)
		return Document{}
	}

	seen := make(map[string]bool, len(blocks))
	valid := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if err := b.Validate(); err != nil {
			log.Printf("[Layout] Skipping invalid block: %v", err)
			continue
		}
		if seen[b.ID] {
			log.Printf("[Layout] Skipping block with duplicate id %q", b.ID)
			continue
		}
		seen[b.ID] = true
		valid = append(valid, b)
	}
	return Document{blocks: valid}
}
