package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/shopkit/pagebuilder/internal/config"
	"github.com/shopkit/pagebuilder/internal/server"
	"github.com/shopkit/pagebuilder/internal/store"
)

// App struct holds the application state.
type App struct {
	ctx        context.Context
	server     *server.Server
	store      store.Store
	httpServer *http.Server
	serverPort int
	currentDir string
	mu         sync.RWMutex
}

// NewApp creates a new App application struct.
func NewApp() *App {
	return &App{}
}

// startup is called when the app starts.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown is called when the app is closing.
func (a *App) shutdown(ctx context.Context) {
	a.stopServer()
}

// stopServer stops the current site server if running.
func (a *App) stopServer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpServer != nil {
		a.httpServer.Close()
		a.httpServer = nil
	}
	if a.server != nil {
		a.server.Close()
		a.server = nil
	}
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	a.serverPort = 0
}

// OpenSite opens a directory dialog and loads the selected site.
func (a *App) OpenSite() (string, error) {
	selection, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Open Page Builder Site",
	})
	if err != nil {
		return "", err
	}

	if selection == "" {
		return "", nil
	}

	if err := a.loadSite(selection); err != nil {
		return "", err
	}

	return selection, nil
}

// loadSite opens a site directory, starts its server on a free local port,
// and navigates the window to the editor.
func (a *App) loadSite(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	a.stopServer()

	cfg, err := config.LoadFromDir(absDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The desktop app always watches the site directory.
	cfg.Features.HotReload = true

	st, err := store.Open(cfg.Store, absDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	ctx := a.ctx
	srv, err := server.New(ctx, absDir, cfg, st)
	if err != nil {
		st.Close()
		return fmt.Errorf("failed to start server: %w", err)
	}

	if err := srv.EnableWatch(ctx, cfg.Server.Debug); err != nil {
		srv.Close()
		st.Close()
		return fmt.Errorf("failed to enable watch mode: %w", err)
	}

	// Find a free port.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		srv.Close()
		st.Close()
		return fmt.Errorf("failed to find free port: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: srv.Handler(ctx),
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	a.mu.Lock()
	a.server = srv
	a.store = st
	a.httpServer = httpServer
	a.serverPort = port
	a.currentDir = absDir
	a.mu.Unlock()

	runtime.WindowSetTitle(a.ctx, fmt.Sprintf("Page Builder - %s", srv.Theme().StoreName))

	// Navigate straight into the editor.
	editorURL := fmt.Sprintf("http://127.0.0.1:%d/editor", port)
	runtime.EventsEmit(a.ctx, "navigate", editorURL)

	return nil
}

// GetCurrentDirectory returns the currently loaded site directory.
func (a *App) GetCurrentDirectory() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentDir
}

// GetServerURL returns the URL of the running server, or empty string if not
// running.
func (a *App) GetServerURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.serverPort == 0 {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d/", a.serverPort)
}

// GetEditorURL returns the editor URL of the running server, or empty string.
func (a *App) GetEditorURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.serverPort == 0 {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d/editor", a.serverPort)
}

// SiteInfo summarizes the loaded site for the frontend.
type SiteInfo struct {
	StoreName  string `json:"storeName"`
	BlockCount int    `json:"blockCount"`
	State      string `json:"state"`
}

// GetSiteInfo returns details about the loaded site.
func (a *App) GetSiteInfo() *SiteInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.server == nil {
		return nil
	}

	session := a.server.Session()
	return &SiteInfo{
		StoreName:  a.server.Theme().StoreName,
		BlockCount: session.Draft().Len(),
		State:      session.State().String(),
	}
}

// GetHandler returns the HTTP handler for the Wails asset server. With a site
// loaded it proxies to the site server; otherwise it serves the welcome
// screen.
func (a *App) GetHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.RLock()
		srv := a.server
		a.mu.RUnlock()

		if srv != nil {
			srv.Handler(a.ctx).ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(welcomeHTML))
	})
}

const welcomeHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8"/>
    <meta content="width=device-width, initial-scale=1.0" name="viewport"/>
    <title>Page Builder Desktop</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
            color: #fff;
            min-height: 100vh;
            display: flex;
            flex-direction: column;
            align-items: center;
            justify-content: center;
            padding: 2rem;
        }
        .container {
            text-align: center;
            max-width: 600px;
        }
        h1 {
            font-size: 2.5rem;
            margin-bottom: 1rem;
            background: linear-gradient(90deg, #00d4ff, #7c3aed);
            -webkit-background-clip: text;
            -webkit-text-fill-color: transparent;
            background-clip: text;
        }
        p {
            color: #94a3b8;
            font-size: 1.1rem;
            line-height: 1.6;
            margin-bottom: 2rem;
        }
        button {
            background: linear-gradient(135deg, #7c3aed 0%, #00d4ff 100%);
            border: none;
            color: white;
            padding: 0.875rem 1.75rem;
            font-size: 1rem;
            border-radius: 8px;
            cursor: pointer;
            transition: transform 0.2s, box-shadow 0.2s;
        }
        button:hover {
            transform: translateY(-2px);
            box-shadow: 0 4px 20px rgba(124, 58, 237, 0.4);
        }
        button:active {
            transform: translateY(0);
        }
        .keyboard-hint {
            margin-top: 2rem;
            color: #64748b;
            font-size: 0.875rem;
        }
        kbd {
            background: #334155;
            border-radius: 4px;
            padding: 0.25rem 0.5rem;
            font-family: monospace;
        }
        #status {
            margin-top: 1rem;
            font-size: 0.875rem;
            min-height: 1.5em;
        }
        .error { color: #ef4444; }
        .success { color: #22c55e; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Page Builder Desktop</h1>
        <p>Open a site directory to start editing its storefront layout.</p>
        <button id="openSite">Open Site</button>
        <p class="keyboard-hint">
            <kbd>Cmd+O</kbd> / <kbd>Ctrl+O</kbd> to open
        </p>
        <p id="status"></p>
    </div>
    <script>
        function initApp() {
            const statusEl = document.getElementById('status');

            function showStatus(message, type) {
                statusEl.textContent = message;
                statusEl.className = type || '';
            }

            showStatus('Ready', 'success');

            document.getElementById('openSite').addEventListener('click', async function() {
                try {
                    showStatus('Opening directory dialog...');
                    const dir = await window.go.main.App.OpenSite();
                    if (dir) {
                        showStatus('Loading ' + dir + '...', 'success');
                        setTimeout(async () => {
                            const url = await window.go.main.App.GetEditorURL();
                            if (url) {
                                window.location.href = url;
                            } else {
                                showStatus('Server not started', 'error');
                            }
                        }, 500);
                    } else {
                        showStatus('Ready', 'success');
                    }
                } catch (err) {
                    showStatus('Error: ' + err, 'error');
                }
            });
        }

        function waitForWails() {
            if (window.go && window.runtime) {
                initApp();
                window.runtime.EventsOn('navigate', function(url) {
                    window.location.href = url;
                });
            } else {
                setTimeout(waitForWails, 50);
            }
        }

        if (document.readyState === 'loading') {
            document.addEventListener('DOMContentLoaded', waitForWails);
        } else {
            waitForWails();
        }
    </script>
</body>
</html>`
