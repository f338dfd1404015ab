package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopkit/pagebuilder"
	"github.com/shopkit/pagebuilder/internal/config"
)

func TestNewCommandBasicTemplate(t *testing.T) {
	tmpDir := t.TempDir()
	siteDir := filepath.Join(tmpDir, "test-shop")

	defer chdir(t, tmpDir)()

	if err := NewCommand([]string{"test-shop"}); err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	assertFileExists(t, siteDir, "pagebuilder.yaml")
	assertFileExists(t, siteDir, "catalog.json")
	assertFileExists(t, siteDir, "layout.json")

	// Title substitution.
	content := readFile(t, filepath.Join(siteDir, "pagebuilder.yaml"))
	if !strings.Contains(content, `title: "Test Shop"`) {
		t.Errorf("Expected title to be substituted, got: %s", content)
	}

	// The scaffolded config must load cleanly.
	cfg, err := config.LoadFromDir(siteDir)
	if err != nil {
		t.Fatalf("LoadFromDir failed on scaffold: %v", err)
	}
	if cfg.Title != "Test Shop" {
		t.Errorf("Expected config title 'Test Shop', got %q", cfg.Title)
	}
	if cfg.Store.GetDriver() != "sqlite" {
		t.Errorf("Expected sqlite driver, got %q", cfg.Store.GetDriver())
	}
}

func TestNewCommandBoutiqueTemplate(t *testing.T) {
	tmpDir := t.TempDir()
	siteDir := filepath.Join(tmpDir, "my-boutique")

	defer chdir(t, tmpDir)()

	if err := NewCommand([]string{"--template=boutique", "my-boutique"}); err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	cfg, err := config.LoadFromDir(siteDir)
	if err != nil {
		t.Fatalf("LoadFromDir failed on scaffold: %v", err)
	}
	if cfg.Theme == nil || cfg.Theme.AccentColor != "#c9a227" {
		t.Error("Expected boutique theme accent color in config")
	}

	content := readFile(t, filepath.Join(siteDir, "layout.json"))
	if !strings.Contains(content, "The My Boutique Edit") {
		t.Error("Expected title substitution in layout seed")
	}
}

func TestScaffoldedSeedsAreValid(t *testing.T) {
	tmpDir := t.TempDir()
	defer chdir(t, tmpDir)()

	for _, tmpl := range validTemplates {
		siteName := "site-" + tmpl
		if err := NewCommand([]string{"--template=" + tmpl, siteName}); err != nil {
			t.Fatalf("NewCommand(%s) failed: %v", tmpl, err)
		}

		// Layout seeds must pass the linter.
		layoutPath := filepath.Join(tmpDir, siteName, "layout.json")
		if errs := validateLayoutFile(layoutPath); len(errs) > 0 {
			t.Errorf("%s: layout seed fails validation: %v", tmpl, errs[0].Message)
		}

		// Catalog seeds must unmarshal.
		var catalog pagebuilder.Catalog
		data := readFile(t, filepath.Join(tmpDir, siteName, "catalog.json"))
		if err := json.Unmarshal([]byte(data), &catalog); err != nil {
			t.Errorf("%s: catalog seed does not parse: %v", tmpl, err)
		}
		if len(catalog.Products) == 0 {
			t.Errorf("%s: catalog seed has no products", tmpl)
		}
	}
}

func TestNewCommandRejectsExistingDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	defer chdir(t, tmpDir)()

	if err := os.Mkdir("taken", 0755); err != nil {
		t.Fatal(err)
	}
	if err := NewCommand([]string{"taken"}); err == nil {
		t.Error("Expected error for existing directory")
	}
}

func TestNewCommandRejectsUnknownTemplate(t *testing.T) {
	tmpDir := t.TempDir()
	defer chdir(t, tmpDir)()

	if err := NewCommand([]string{"--template=fancy", "my-shop"}); err == nil {
		t.Error("Expected error for unknown template")
	}
}

func TestToTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-shop", "My Shop"},
		{"my_shop", "My Shop"},
		{"shop", "Shop"},
		{"BIG-SALE", "Big Sale"},
	}
	for _, tt := range tests {
		if got := toTitle(tt.in); got != tt.want {
			t.Errorf("toTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func chdir(t *testing.T, tmpDir string) func() {
	t.Helper()
	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}
	return func() {
		os.Chdir(oldDir)
	}
}

func assertFileExists(t *testing.T, dir, filename string) {
	t.Helper()
	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file %s to exist", path)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
