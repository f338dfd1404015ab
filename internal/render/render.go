// Package render turns a layout document into block-level HTML. Rendering is
// pure with respect to its inputs: the document and context are never
// mutated, and one broken block degrades to a skipped section instead of a
// failed page.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/shopkit/pagebuilder"
	"github.com/shopkit/pagebuilder/internal/security"
)

// Mode selects the rendering target.
type Mode int

const (
	// ModeStorefront renders the page for shoppers.
	ModeStorefront Mode = iota
	// ModeEditor renders the same markup plus a data-block-id tag on each
	// block root, so the editor frame can map clicks back to blocks.
	ModeEditor
)

// Context carries everything a render needs besides the document itself.
// The renderer only reads it.
type Context struct {
	Catalog pagebuilder.Catalog
	Theme   pagebuilder.Theme
	Mode    Mode
}

// RenderedBlock is the output for one block: its identity plus the finished
// markup, in document order.
type RenderedBlock struct {
	ID    string
	Type  string
	HTML  template.HTML
	Style pagebuilder.StyleRecord
}

// Renderer renders layout documents. Safe for concurrent use.
type Renderer struct {
	templates *template.Template
	markdown  goldmark.Markdown

	mu     sync.Mutex
	warned map[string]bool
}

// New creates a Renderer with the built-in block templates.
func New() *Renderer {
	return &Renderer{
		templates: template.Must(template.New("blocks").Parse(blockTemplates)),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
		warned: make(map[string]bool),
	}
}

// Render produces the rendered blocks for a document, in order. Blocks of
// unknown type are skipped with a single warning per type; a block whose
// template fails is skipped with a warning. The error return is reserved for
// systemic failures and is nil for per-block problems.
func (r *Renderer) Render(doc pagebuilder.Document, ctx Context) ([]RenderedBlock, error) {
	blocks := doc.Blocks()
	out := make([]RenderedBlock, 0, len(blocks))

	for _, b := range blocks {
		if !pagebuilder.KnownType(b.Type) {
			r.warnOnce(b.Type)
			continue
		}

		style := pagebuilder.ResolveStyle(b.Styles, ctx.Theme, b.Type)
		html, err := r.renderBlock(b, style, ctx)
		if err != nil {
			log.Printf("[Render] Skipping block %s: %v", b.ID, err)
			continue
		}

		out = append(out, RenderedBlock{
			ID:    b.ID,
			Type:  b.Type,
			HTML:  html,
			Style: style,
		})
	}

	return out, nil
}

func (r *Renderer) warnOnce(blockType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.warned[blockType] {
		r.warned[blockType] = true
		log.Printf("[Render] Skipping blocks of unknown type %q", blockType)
	}
}

// frame is the wrapper data shared by every block template.
type frame struct {
	ID        string
	Editor    bool
	FullBleed bool
	StyleAttr template.CSS
}

func newFrame(b pagebuilder.Block, style pagebuilder.StyleRecord, ctx Context) frame {
	css := fmt.Sprintf(
		"background:%s;color:%s;padding:%s %s %s %s;min-height:%s;text-align:%s",
		style.Background, style.TextColor,
		style.PaddingTop, style.PaddingRight, style.PaddingBottom, style.PaddingLeft,
		style.MinHeight, style.TextAlign,
	)
	return frame{
		ID:        b.ID,
		Editor:    ctx.Mode == ModeEditor,
		FullBleed: style.FullBleed,
		StyleAttr: template.CSS(css),
	}
}

func (r *Renderer) renderBlock(b pagebuilder.Block, style pagebuilder.StyleRecord, ctx Context) (template.HTML, error) {
	f := newFrame(b, style, ctx)

	var name string
	var data any

	switch b.Type {
	case pagebuilder.TypeHero:
		title, _ := b.ContentString("title")
		if title == "" {
			title = ctx.Theme.StoreName
		}
		subtitle, _ := b.ContentString("subtitle")
		if subtitle == "" {
			subtitle = ctx.Theme.StoreDescription
		}
		buttonText, _ := b.ContentString("buttonText")
		buttonLink, _ := b.ContentString("buttonLink")
		buttonLink = security.SafeLinkURL(buttonLink)
		name = "hero"
		data = struct {
			frame
			Title, Subtitle, ButtonText, ButtonLink string
		}{f, title, subtitle, buttonText, buttonLink}

	case pagebuilder.TypeText:
		markdown, _ := b.ContentString("markdown")
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(markdown), &buf); err != nil {
			return "", fmt.Errorf("markdown: %w", err)
		}
		name = "text"
		data = struct {
			frame
			Body template.HTML
		}{f, template.HTML(buf.String())}

	case pagebuilder.TypeHTML:
		// Raw markup is trusted admin input, injected unescaped.
		raw, _ := b.ContentString("html")
		name = "html"
		data = struct {
			frame
			Body template.HTML
		}{f, template.HTML(raw)}

	case pagebuilder.TypeProductGrid:
		collection, _ := b.ContentString("collectionType")
		title, _ := b.ContentString("title")
		products := pagebuilder.SelectProducts(
			ctx.Catalog.Products,
			collection,
			b.ContentInt("limit"),
			b.ContentStrings("productIds"),
		)
		name = "product-grid"
		data = struct {
			frame
			Title      string
			Products   []pagebuilder.Product
			PriceColor string
		}{f, title, products, ctx.Theme.PriceColor}

	case pagebuilder.TypeColumns:
		name = "columns"
		data = struct {
			frame
			Columns []column
		}{f, columnsOf(b)}

	case pagebuilder.TypePromoBanner:
		text, _ := b.ContentString("text")
		link, _ := b.ContentString("link")
		link = security.SafeLinkURL(link)
		dismissible, _ := b.Content["dismissible"].(bool)
		name = "promo-banner"
		data = struct {
			frame
			Text, Link  string
			Dismissible bool
		}{f, text, link, dismissible}

	default:
		return "", fmt.Errorf("no template for type %q", b.Type)
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("template %q: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

type column struct {
	Title string
	Text  string
}

func columnsOf(b pagebuilder.Block) []column {
	raw, _ := b.Content["columns"].([]any)
	out := make([]column, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c := column{}
		c.Title, _ = m["title"].(string)
		c.Text, _ = m["text"].(string)
		out = append(out, c)
	}
	return out
}
