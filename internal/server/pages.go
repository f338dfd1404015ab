package server

import (
	"bytes"
	"context"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopkit/pagebuilder"
	"github.com/shopkit/pagebuilder/internal/assets"
	"github.com/shopkit/pagebuilder/internal/render"
)

var storefrontTmpl = template.Must(template.New("storefront").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<link rel="stylesheet" href="/assets/storefront.css">
<style>
body { font-family: {{.BodyFont}}, sans-serif; color: {{.BodyColor}}; }
h1, h2, h3 { font-family: {{.HeadingFont}}, sans-serif; color: {{.HeadingColor}}; }
.pb-site-header { background: {{.HeaderBackground}}; color: {{.HeaderText}}; }
.pb-site-footer { background: {{.FooterBackground}}; color: {{.FooterText}}; }
</style>
</head>
<body>
<header class="pb-site-header">
  <strong>{{.Title}}</strong>
  {{if .HeaderMenu}}<nav>{{range .HeaderMenu.Items}}<a href="{{.URL}}">{{.Label}}</a>{{end}}</nav>{{end}}
</header>
<main id="pb-page">
{{.Page}}
</main>
<footer class="pb-site-footer">
  {{if .FooterMenu}}<nav>{{range .FooterMenu.Items}}<a href="{{.URL}}">{{.Label}}</a>{{end}}</nav>{{end}}
  <small>{{.Description}}</small>
</footer>
{{if .PreviewScript}}<script src="/assets/preview.js"></script>{{end}}
</body>
</html>`))

var editorTmpl = template.Must(template.New("editor").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Edit — {{.Title}}</title>
<link rel="stylesheet" href="/assets/editor.css">
</head>
<body class="pb-editor">
<aside class="pb-sidebar">
  <h1>{{.Title}}</h1>
  <div class="pb-toolbar">
    <select id="pb-add-type">
      {{range .BlockTypes}}<option value="{{.}}">{{.}}</option>{{end}}
    </select>
    <button id="pb-add">Add</button>
  </div>
  <ul id="pb-layers"></ul>
  <div class="pb-toolbar">
    <button id="pb-save">Save</button>
    <button id="pb-publish">Publish</button>
  </div>
  <div id="pb-status" class="pb-status">idle</div>
</aside>
<iframe class="pb-preview-pane" src="/preview" title="Page preview"></iframe>
<script src="/assets/editor.js"></script>
</body>
</html>`))

type pageData struct {
	Title         string
	Description   string
	Page          template.HTML
	HeaderMenu    *pagebuilder.Menu
	FooterMenu    *pagebuilder.Menu
	PreviewScript bool

	BodyFont, BodyColor       string
	HeadingFont, HeadingColor string
	HeaderBackground          string
	HeaderText                string
	FooterBackground          string
	FooterText                string
}

func (s *Server) newPageData(theme pagebuilder.Theme) pageData {
	data := pageData{
		Title:            theme.StoreName,
		Description:      theme.StoreDescription,
		BodyFont:         theme.BodyFont,
		BodyColor:        theme.BodyColor,
		HeadingFont:      theme.HeadingFont,
		HeadingColor:     theme.HeadingColor,
		HeaderBackground: theme.HeaderBackground,
		HeaderText:       theme.HeaderText,
		FooterBackground: theme.FooterBackground,
		FooterText:       theme.FooterText,
	}
	catalog := s.Catalog()
	if m, ok := catalog.MenuByHandle("header"); ok {
		data.HeaderMenu = &m
	}
	if m, ok := catalog.MenuByHandle("footer"); ok {
		data.FooterMenu = &m
	}
	return data
}

const (
	// storefrontTTL bounds how long a cached storefront page serves without
	// a background re-render.
	storefrontTTL = 30 * time.Second
	// storefrontStaleTTL bounds how long a stale page may still serve while
	// the re-render runs; past it the page renders on the request path again.
	storefrontStaleTTL = 5 * time.Minute
)

// serveStorefront renders the published (live) layout for shoppers. Pages are
// cached until the next publish or site data reload; stale hits serve the
// cached copy and refresh it off the request path.
func (s *Server) serveStorefront(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	cacheKey := "storefront:" + r.URL.Path
	if body, found, stale := s.pages.Get(cacheKey); found {
		if stale {
			go s.revalidateStorefront(cacheKey)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
		return
	}

	body, err := s.renderStorefrontPage(r.Context())
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.pages.SetWithStale(cacheKey, body, storefrontTTL, storefrontStaleTTL)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

// renderStorefrontPage renders the full storefront document for the live
// layout.
func (s *Server) renderStorefrontPage(ctx context.Context) ([]byte, error) {
	doc, err := s.store.LoadLayout(ctx, pagebuilder.SlotLive)
	if err != nil {
		log.Printf("[Server] Failed to load live layout: %v", err)
		return nil, err
	}

	theme := s.Theme()
	blocks, err := s.renderer.Render(doc, render.Context{
		Catalog: s.Catalog(),
		Theme:   theme,
		Mode:    render.ModeStorefront,
	})
	if err != nil {
		log.Printf("[Server] Render failed: %v", err)
		return nil, err
	}

	data := s.newPageData(theme)
	data.Page = joinBlocks(blocks)

	var buf bytes.Buffer
	if err := storefrontTmpl.Execute(&buf, data); err != nil {
		log.Printf("[Server] Failed to render storefront page: %v", err)
		return nil, err
	}
	return buf.Bytes(), nil
}

// revalidateStorefront re-renders one stale page in the background. A single
// refresh runs at a time; concurrent stale hits keep serving the stale copy.
func (s *Server) revalidateStorefront(key string) {
	if !s.revalidating.CompareAndSwap(false, true) {
		return
	}
	defer s.revalidating.Store(false)

	body, err := s.renderStorefrontPage(context.Background())
	if err != nil {
		return
	}
	s.pages.SetWithStale(key, body, storefrontTTL, storefrontStaleTTL)
}

// servePreview renders the guest shell: an empty page plus the preview
// script. All content arrives over the preview socket once the frame is
// ready.
func (s *Server) servePreview(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(s.Theme())
	data.Page = ""
	data.PreviewScript = true

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := storefrontTmpl.Execute(w, data); err != nil {
		log.Printf("[Server] Failed to write preview page: %v", err)
	}
}

// serveEditor renders the editor shell.
func (s *Server) serveEditor(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Title      string
		BlockTypes []string
	}{
		Title:      s.Theme().StoreName,
		BlockTypes: pagebuilder.KnownTypes(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := editorTmpl.Execute(w, data); err != nil {
		log.Printf("[Server] Failed to write editor page: %v", err)
	}
}

func (s *Server) assetHandler() http.Handler {
	return http.FileServer(http.FS(assets.ClientFS()))
}

func joinBlocks(blocks []render.RenderedBlock) template.HTML {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(string(b.HTML))
		sb.WriteString("\n")
	}
	return template.HTML(sb.String())
}
