// Package embedded runs a page builder site from an embedded filesystem, so
// a storefront (and optionally its editor) can ship inside another Go binary.
package embedded

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopkit/pagebuilder/internal/config"
	"github.com/shopkit/pagebuilder/internal/server"
	"github.com/shopkit/pagebuilder/internal/store"
)

// Serve starts a server over an embedded site filesystem.
//
// Example usage:
//
//	//go:embed site/*
//	var siteFS embed.FS
//
//	func main() {
//	    embedded.Serve(siteFS, "site", "localhost:3000")
//	}
func Serve(siteFS fs.FS, rootPath string, addr string) error {
	return ServeWithOptions(Options{
		SiteFS:   siteFS,
		RootPath: rootPath,
		Addr:     addr,
	})
}

// Options provides configuration for the embedded server.
type Options struct {
	// SiteFS is the embedded filesystem holding the site's config and seed
	// files (pagebuilder.yaml, catalog.json, layout.json).
	SiteFS fs.FS

	// RootPath is the path prefix within SiteFS (e.g., "site").
	RootPath string

	// Addr is the address to listen on (e.g., "localhost:3000").
	Addr string

	// Config overrides the embedded config (optional).
	Config *config.Config

	// OnReady is called when the server is ready to accept connections
	// (optional).
	OnReady func()

	// Quiet suppresses startup messages when true.
	Quiet bool
}

// App is a running embedded site: the HTTP handler plus its resources.
type App struct {
	handler http.Handler
	server  *server.Server
	store   store.Store
	siteDir string
}

// ServeHTTP implements http.Handler, so an App can be mounted inside a larger
// application's mux.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Close releases the app's store, preview connections, and extracted files.
func (a *App) Close() error {
	err := a.server.Close()
	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	os.RemoveAll(a.siteDir)
	return err
}

// New extracts the embedded site and builds a mountable App. The caller owns
// the returned App and must Close it.
func New(ctx context.Context, opts Options) (*App, error) {
	tmpDir, err := os.MkdirTemp("", "pagebuilder-embedded-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	if err := extractFS(opts.SiteFS, opts.RootPath, tmpDir); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to extract embedded site: %w", err)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg, err = config.LoadFromDir(tmpDir)
		if err != nil {
			os.RemoveAll(tmpDir)
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	st, err := store.Open(cfg.Store, tmpDir)
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	srv, err := server.New(ctx, tmpDir, cfg, st)
	if err != nil {
		st.Close()
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to build server: %w", err)
	}

	return &App{
		handler: srv.Handler(ctx),
		server:  srv,
		store:   st,
		siteDir: tmpDir,
	}, nil
}

// ServeWithOptions starts a standalone server with graceful shutdown.
func ServeWithOptions(opts Options) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := New(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	httpServer := &http.Server{
		Addr:    opts.Addr,
		Handler: app,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		if !opts.Quiet {
			fmt.Printf("\n🛑 Shutting down gracefully...\n")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: HTTP server shutdown error: %v\n", err)
		}
		cancel()
	}()

	if !opts.Quiet {
		fmt.Printf("🛍️  Storefront at http://%s\n", opts.Addr)
		fmt.Printf("✏️  Editor at http://%s/editor\n", opts.Addr)
	}

	if opts.OnReady != nil {
		opts.OnReady()
	}

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// extractFS extracts files from an fs.FS to a directory on disk.
func extractFS(siteFS fs.FS, rootPath string, destDir string) error {
	var srcFS fs.FS
	var err error

	if rootPath != "" && rootPath != "." {
		srcFS, err = fs.Sub(siteFS, rootPath)
		if err != nil {
			return fmt.Errorf("failed to get sub-filesystem at %q: %w", rootPath, err)
		}
	} else {
		srcFS = siteFS
	}

	cleanDestDir := filepath.Clean(destDir)

	return fs.WalkDir(srcFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		destPath := filepath.Join(destDir, path)

		// Path traversal validation: destPath must stay within destDir.
		cleanDestPath := filepath.Clean(destPath)
		if !strings.HasPrefix(cleanDestPath, cleanDestDir+string(os.PathSeparator)) && cleanDestPath != cleanDestDir {
			return fmt.Errorf("path traversal detected: %q resolves outside destination directory", path)
		}

		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}

		content, err := fs.ReadFile(srcFS, path)
		if err != nil {
			return fmt.Errorf("failed to read embedded file %q: %w", path, err)
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return err
		}

		return os.WriteFile(destPath, content, 0644)
	})
}
