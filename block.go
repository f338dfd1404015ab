package pagebuilder

import (
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

// Block type tags. The set is closed for rendering purposes: documents may
// carry unknown tags (written by a newer version), and every consumer must
// treat those as a no-op rather than an error.
const (
	TypeHero        = "hero"
	TypeText        = "text"
	TypeHTML        = "html"
	TypeProductGrid = "product-grid"
	TypeColumns     = "columns"
	TypePromoBanner = "promo-banner"
)

// Collection selectors for product-grid blocks.
const (
	CollectionFeatured = "featured"
	CollectionNew      = "new"
	CollectionAll      = "all"
	CollectionManual   = "manual"
)

// Block is one content unit within a page layout: a hero banner, a product
// grid, a text section. Content is a type-dependent record; Styles is a
// partial set of presentation overrides resolved against the theme at
// render time.
type Block struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Label   string         `json:"label,omitempty"`
	Content map[string]any `json:"content"`
	Styles  StyleOverrides `json:"styles"`
}

// KnownType reports whether t is a block type this version can render.
func KnownType(t string) bool {
	switch t {
	case TypeHero, TypeText, TypeHTML, TypeProductGrid, TypeColumns, TypePromoBanner:
		return true
	}
	return false
}

// KnownTypes returns all renderable block types in display order.
func KnownTypes() []string {
	return []string{TypeHero, TypeText, TypeHTML, TypeProductGrid, TypeColumns, TypePromoBanner}
}

// NewBlock creates a block of the given type with a fresh id and the type's
// default placeholder content.
func NewBlock(blockType string) Block {
	return Block{
		ID:      NewBlockID(blockType),
		Type:    blockType,
		Content: DefaultContent(blockType),
	}
}

// NewBlockID generates a stable unique id for a new block. The type prefix is
// cosmetic (it makes persisted documents greppable); uniqueness comes from
// the UUID.
func NewBlockID(blockType string) string {
	return fmt.Sprintf("%s-%s", blockType, uuid.NewString()[:8])
}

// Validate checks the structural minimum for a block: a non-empty id, a known
// type tag, and the required content keys for that tag. Blocks that fail
// validation are quarantined at load time, never trusted at render time.
func (b Block) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("block has empty id")
	}
	if !KnownType(b.Type) {
		return fmt.Errorf("block %q: unknown type %q", b.ID, b.Type)
	}

	switch b.Type {
	case TypeProductGrid:
		collection, _ := b.ContentString("collectionType")
		if collection == "" {
			return fmt.Errorf("block %q: product-grid requires collectionType", b.ID)
		}
		switch collection {
		case CollectionFeatured, CollectionNew, CollectionAll, CollectionManual:
		default:
			return fmt.Errorf("block %q: unknown collectionType %q", b.ID, collection)
		}
		if b.ContentInt("limit") < 1 {
			return fmt.Errorf("block %q: product-grid requires limit >= 1", b.ID)
		}
	case TypeColumns:
		if _, ok := b.Content["columns"]; !ok {
			return fmt.Errorf("block %q: columns block requires a columns list", b.ID)
		}
	}

	return nil
}

// DisplayLabel returns the name shown in the editor's layer list: the explicit
// label if set, otherwise a default derived from the block's content.
func (b Block) DisplayLabel() string {
	if b.Label != "" {
		return b.Label
	}

	switch b.Type {
	case TypeHero:
		if title, _ := b.ContentString("title"); title != "" {
			return title
		}
		return "Hero"
	case TypeProductGrid:
		if title, _ := b.ContentString("title"); title != "" {
			return title
		}
		return "Product Grid"
	case TypeText:
		return "Text"
	case TypeHTML:
		return "Custom HTML"
	case TypeColumns:
		return "Columns"
	case TypePromoBanner:
		if text, _ := b.ContentString("text"); text != "" {
			return text
		}
		return "Promo Banner"
	}
	return b.Type
}

// ContentString reads a string field from the content record.
func (b Block) ContentString(key string) (string, bool) {
	v, ok := b.Content[key].(string)
	return v, ok
}

// ContentInt reads a numeric content field. JSON round-trips store numbers as
// float64, so both representations are accepted. Returns 0 when absent.
func (b Block) ContentInt(key string) int {
	switch v := b.Content[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// ContentStrings reads a list-of-strings content field (e.g. manual product
// ids). Non-string entries are skipped.
func (b Block) ContentStrings(key string) []string {
	if ss, ok := b.Content[key].([]string); ok {
		return ss
	}
	raw, ok := b.Content[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy of the block. Documents hand out copies so that
// callers can read-modify-write without aliasing the stored block.
func (b Block) Clone() Block {
	c := b
	c.Content = cloneContent(b.Content)
	return c
}

func cloneContent(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneContent(t)
		case []any:
			list := make([]any, len(t))
			for i, item := range t {
				if nested, ok := item.(map[string]any); ok {
					list[i] = cloneContent(nested)
				} else {
					list[i] = item
				}
			}
			out[k] = list
		default:
			out[k] = v
		}
	}
	return out
}

// DefaultContent returns placeholder content for a new block of the given
// type. Every known type has a default; unknown types get an empty record so
// the editor can still insert (and immediately flag) them.
func DefaultContent(blockType string) map[string]any {
	switch blockType {
	case TypeHero:
		return map[string]any{
			"title":      "Welcome to our store",
			"subtitle":   "Discover products picked for you",
			"buttonText": "Shop now",
			"buttonLink": "/products",
		}
	case TypeText:
		return map[string]any{
			"markdown": "## About us\n\nTell your customers what makes your store special.",
		}
	case TypeHTML:
		return map[string]any{
			"html": "<div class=\"custom-section\"></div>",
		}
	case TypeProductGrid:
		return map[string]any{
			"title":          "Featured products",
			"collectionType": CollectionFeatured,
			"limit":          4,
		}
	case TypeColumns:
		return map[string]any{
			"count": 3,
			"columns": []any{
				map[string]any{"title": "Free shipping", "text": "On all orders over $50."},
				map[string]any{"title": "Easy returns", "text": "30 days, no questions asked."},
				map[string]any{"title": "Secure checkout", "text": "Your data stays yours."},
			},
		}
	case TypePromoBanner:
		return map[string]any{
			"text":        "Free shipping on orders over $50",
			"link":        "",
			"dismissible": true,
		}
	default:
		log.Printf("[Block] No default content for unknown type %q", blockType)
		return map[string]any{}
	}
}
