// Package server serves the storefront, the editor, the preview frame, and
// the JSON editor API over one HTTP listener.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/shopkit/pagebuilder"
	"github.com/shopkit/pagebuilder/internal/cache"
	"github.com/shopkit/pagebuilder/internal/config"
	"github.com/shopkit/pagebuilder/internal/editor"
	"github.com/shopkit/pagebuilder/internal/preview"
	"github.com/shopkit/pagebuilder/internal/render"
	"github.com/shopkit/pagebuilder/internal/store"
)

// Server wires the store, the editor session, the renderer, and the preview
// hosts behind the HTTP routes.
type Server struct {
	siteDir  string
	config   *config.Config
	store    store.Store
	renderer *render.Renderer
	session  *editor.Session

	pages *cache.PageCache
	// revalidating gates the single background refresh of a stale page.
	revalidating atomic.Bool

	mu      sync.RWMutex
	theme   pagebuilder.Theme
	catalog pagebuilder.Catalog

	hostMu sync.Mutex
	hosts  map[*preview.Host]bool

	watcher *Watcher
}

// New creates a server over the given site directory, configuration, and
// store, loading the theme and catalog and opening an editor session on the
// draft slot.
func New(ctx context.Context, siteDir string, cfg *config.Config, st store.Store) (*Server, error) {
	session, err := editor.NewSession(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("open editor session: %w", err)
	}

	s := &Server{
		siteDir:  siteDir,
		config:   cfg,
		store:    st,
		renderer: render.New(),
		session:  session,
		pages:    cache.NewPageCache(),
		hosts:    make(map[*preview.Host]bool),
	}

	if err := s.reloadSiteData(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// reloadSiteData imports any seed files from the site directory and refreshes
// the theme and catalog from the store and config.
func (s *Server) reloadSiteData(ctx context.Context) error {
	if err := s.importSeeds(ctx); err != nil {
		return err
	}

	theme, ok, err := s.store.LoadTheme(ctx)
	if err != nil {
		return fmt.Errorf("load theme: %w", err)
	}
	if !ok {
		theme = s.config.EffectiveTheme()
		// Theme edits in the site's config file take effect on reload.
		if cfg, found := loadDirConfig(s.siteDir); found {
			theme = cfg.EffectiveTheme()
		}
	}

	catalog, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	s.mu.Lock()
	s.theme = theme
	s.catalog = catalog
	s.mu.Unlock()

	s.pages.InvalidateAll()
	return nil
}

// importSeeds loads seed files from the site directory into the store: a
// catalog.json replaces the stored catalog, and a layout.json fills the live
// slot when it is still empty.
func (s *Server) importSeeds(ctx context.Context) error {
	catalogPath := filepath.Join(s.siteDir, "catalog.json")
	if data, err := os.ReadFile(catalogPath); err == nil {
		var catalog pagebuilder.Catalog
		if err := json.Unmarshal(data, &catalog); err != nil {
			log.Printf("[Server] Ignoring malformed catalog seed %s: %v", catalogPath, err)
		} else if err := s.store.SaveCatalog(ctx, catalog); err != nil {
			return fmt.Errorf("import catalog seed: %w", err)
		}
	}

	layoutPath := filepath.Join(s.siteDir, "layout.json")
	if data, err := os.ReadFile(layoutPath); err == nil {
		live, err := s.store.LoadLayout(ctx, pagebuilder.SlotLive)
		if err != nil {
			return fmt.Errorf("check live slot: %w", err)
		}
		if live.Len() == 0 {
			doc := pagebuilder.Deserialize(string(data))
			if err := s.store.SaveLayout(ctx, pagebuilder.SlotLive, doc); err != nil {
				return fmt.Errorf("import layout seed: %w", err)
			}
		}
	}
	return nil
}

// loadDirConfig reads the site's config file when one exists on disk.
func loadDirConfig(dir string) (*config.Config, bool) {
	for _, name := range []string{"pagebuilder.yaml", "shop.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			cfg, err := config.LoadFromDir(dir)
			if err != nil {
				log.Printf("[Server] Failed to reload config: %v", err)
				return nil, false
			}
			return cfg, true
		}
	}
	return nil, false
}

// Theme returns the active theme.
func (s *Server) Theme() pagebuilder.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// Catalog returns the active catalog.
func (s *Server) Catalog() pagebuilder.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Session exposes the editor session (used by the desktop shell).
func (s *Server) Session() *editor.Session {
	return s.session
}

// Handler builds the full HTTP handler: routes plus the middleware chain.
// ctx bounds the rate limiter's cleanup goroutine.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.serveStorefront)
	mux.HandleFunc("/editor", s.serveEditor)
	mux.HandleFunc("/preview", s.servePreview)
	mux.HandleFunc("/ws/preview", s.serveWebSocket)
	mux.Handle("/assets/", http.StripPrefix("/assets/", s.assetHandler()))
	mux.Handle("/api/", s.apiHandler(ctx))

	var handler http.Handler = mux
	handler = WithCompression(handler)
	handler = SecurityHeadersMiddleware()(handler)
	return handler
}

// apiHandler wraps the editor API routes in auth, CORS, and rate limiting.
func (s *Server) apiHandler(ctx context.Context) http.Handler {
	var handler http.Handler = http.HandlerFunc(s.routeAPI)

	apiCfg := s.config.API
	var authCfg *config.AuthConfig
	if apiCfg != nil {
		authCfg = apiCfg.Auth
	}

	handler = AuthMiddleware(authCfg)(handler)
	limit, _ := RateLimitMiddleware(ctx, apiCfg.GetRateLimitRPS(), apiCfg.GetRateLimitBurst(), 0)
	handler = limit(handler)
	handler = CORSMiddleware(apiCfg.GetCORSOrigins(), authCfg.GetHeaderName())(handler)
	return handler
}

// EnableWatch starts the hot reload watcher over the site directory. Config
// and seed changes reload site data and refresh every connected preview.
func (s *Server) EnableWatch(ctx context.Context, debug bool) error {
	if s.watcher != nil {
		return nil
	}

	watcher, err := NewWatcher(s.siteDir, func(path string) error {
		log.Printf("[Watch] Reloading site data after change to %s", path)
		if err := s.reloadSiteData(ctx); err != nil {
			return err
		}
		s.syncPreviews()
		return nil
	}, debug)
	if err != nil {
		return err
	}

	s.watcher = watcher
	s.watcher.Start()
	return nil
}

// StopWatch stops the hot reload watcher.
func (s *Server) StopWatch() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Stop()
	s.watcher = nil
	return err
}

// Close stops the watcher and shuts down every preview connection.
func (s *Server) Close() error {
	err := s.StopWatch()
	s.pages.Stop()

	s.hostMu.Lock()
	hosts := make([]*preview.Host, 0, len(s.hosts))
	for h := range s.hosts {
		hosts = append(hosts, h)
	}
	s.hosts = make(map[*preview.Host]bool)
	s.hostMu.Unlock()

	for _, h := range hosts {
		h.Close()
	}
	return err
}

// previewState renders the draft in editor mode and packages it with the
// current selection as the preview protocol state.
func (s *Server) previewState() preview.State {
	ctx := render.Context{
		Catalog: s.Catalog(),
		Theme:   s.Theme(),
		Mode:    render.ModeEditor,
	}

	blocks, err := s.renderer.Render(s.session.Draft(), ctx)
	if err != nil {
		log.Printf("[Preview] Render failed: %v", err)
		blocks = nil
	}

	page, _ := json.Marshal(string(joinBlocks(blocks)))
	selection, _ := json.Marshal(s.session.Selected())
	return preview.State{
		"page":      page,
		"selection": selection,
	}
}

// syncPreviews pushes the current draft state to every connected preview.
func (s *Server) syncPreviews() {
	state := s.previewState()

	s.hostMu.Lock()
	hosts := make([]*preview.Host, 0, len(s.hosts))
	for h := range s.hosts {
		hosts = append(hosts, h)
	}
	s.hostMu.Unlock()

	for _, h := range hosts {
		if err := h.Publish(state); err != nil {
			log.Printf("[Preview] Publish failed: %v", err)
		}
	}
}
