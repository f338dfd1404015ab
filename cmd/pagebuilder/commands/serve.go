package commands

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopkit/pagebuilder/internal/config"
	"github.com/shopkit/pagebuilder/internal/server"
	"github.com/shopkit/pagebuilder/internal/store"
)

// ServeCommand implements the serve command.
func ServeCommand(args []string) error {
	dir := "."
	var configPath string
	var port string
	var host string
	var watch *bool

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--watch" || arg == "-w":
			watchVal := true
			watch = &watchVal
		case arg == "--no-watch":
			watchVal := false
			watch = &watchVal
		case arg == "--port" || arg == "-p":
			if i+1 < len(args) {
				port = args[i+1]
				i++
			}
		case arg == "--host":
			if i+1 < len(args) {
				host = args[i+1]
				i++
			}
		case arg == "--config" || arg == "-c":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case !strings.HasPrefix(arg, "-"):
			dir = arg
		}
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", dir)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("📝 Using config: %s\n", configPath)
	} else {
		cfg, err = config.LoadFromDir(absDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	// CLI flags override config.
	if port != "" {
		portInt, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port: %s", port)
		}
		cfg.Server.Port = portInt
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if watch != nil {
		cfg.Features.HotReload = *watch
	}

	st, err := store.Open(cfg.Store, absDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := server.New(ctx, absDir, cfg, st)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer srv.Close()

	fmt.Printf("🛍️  Page Builder\n\n")
	fmt.Printf("Site: %s\n", absDir)
	fmt.Printf("Store: %s (%s)\n", cfg.Store.GetDriver(), srv.Theme().StoreName)

	if cfg.Features.HotReload {
		if err := srv.EnableWatch(ctx, cfg.Server.Debug); err != nil {
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
		fmt.Printf("\n👀 Watch mode enabled - seed and config changes reload automatically\n")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("\n🌐 Storefront at http://%s\n", addr)
	fmt.Printf("✏️  Editor at http://%s/editor\n", addr)
	if cfg.API.IsAuthEnabled() {
		fmt.Printf("🔐 Editor API key required (%s header)\n", cfg.API.Auth.GetHeaderName())
	}
	fmt.Printf("⚡ Gzip compression enabled\n")
	fmt.Printf("Press Ctrl+C to stop\n\n")

	if err := http.ListenAndServe(addr, srv.Handler(ctx)); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func init() {
	log.SetFlags(0) // Remove timestamp from logs
}
