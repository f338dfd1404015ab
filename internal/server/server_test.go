package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/pagebuilder"
	"github.com/shopkit/pagebuilder/internal/config"
	"github.com/shopkit/pagebuilder/internal/store"
)

func seedStore(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	hero := pagebuilder.NewBlock(pagebuilder.TypeHero)
	hero.Content["title"] = "Published Hero"
	require.NoError(t, st.SaveLayout(ctx, pagebuilder.SlotDraft, pagebuilder.NewDocument(hero)))
	require.NoError(t, st.Publish(ctx))

	require.NoError(t, st.SaveCatalog(ctx, pagebuilder.Catalog{
		Products: []pagebuilder.Product{
			{ID: "p1", Name: "Anvil", Price: 99.5, IsFeatured: true},
		},
		Menus: []pagebuilder.Menu{
			{Handle: "header", Items: []pagebuilder.MenuItem{{Label: "Shop", URL: "/products"}}},
		},
	}))
	return st
}

func newTestServer(t *testing.T, cfg *config.Config, st store.Store) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Title = "Test Shop"
	}
	s, err := New(context.Background(), t.TempDir(), cfg, st)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func apiCall(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStorefrontServesLiveLayout(t *testing.T) {
	s := newTestServer(t, nil, seedStore(t))
	handler := s.Handler(context.Background())

	rec := get(t, handler, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Published Hero")
	assert.Contains(t, body, "Test Shop")
	assert.Contains(t, body, `href="/products"`)
	// Storefront markup never carries editor tags.
	assert.NotContains(t, body, "data-block-id")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestStorefrontUnknownPathIs404(t *testing.T) {
	s := newTestServer(t, nil, seedStore(t))
	rec := get(t, s.Handler(context.Background()), "/no-such-page")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftEditsInvisibleUntilPublish(t *testing.T) {
	st := seedStore(t)
	s := newTestServer(t, nil, st)
	handler := s.Handler(context.Background())

	rec := apiCall(t, handler, http.MethodPost, "/api/blocks", map[string]string{"type": "promo-banner"})
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Equal(t, http.StatusOK, apiCall(t, handler, http.MethodPost, "/api/save", nil).Code)
	assert.NotContains(t, get(t, handler, "/").Body.String(), "pb-promo")

	require.Equal(t, http.StatusOK, apiCall(t, handler, http.MethodPost, "/api/publish", nil).Code)
	assert.Contains(t, get(t, handler, "/").Body.String(), "pb-promo")
}

func TestEditorPage(t *testing.T) {
	s := newTestServer(t, nil, seedStore(t))
	rec := get(t, s.Handler(context.Background()), "/editor")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `id="pb-layers"`)
	for _, blockType := range pagebuilder.KnownTypes() {
		assert.Contains(t, body, fmt.Sprintf(`value=%q`, blockType))
	}
}

func TestPreviewPageIsFrameableSameOrigin(t *testing.T) {
	s := newTestServer(t, nil, seedStore(t))
	handler := s.Handler(context.Background())

	rec := get(t, handler, "/preview")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'self'")
	assert.Contains(t, rec.Body.String(), "/assets/preview.js")
}

func TestAPILayoutLifecycle(t *testing.T) {
	s := newTestServer(t, nil, store.NewMemory())
	handler := s.Handler(context.Background())

	// Empty session starts idle.
	var layout struct {
		Blocks []struct {
			ID    string `json:"id"`
			Type  string `json:"type"`
			Label string `json:"label"`
		} `json:"blocks"`
		Selected string `json:"selected"`
		State    string `json:"state"`
	}
	rec := get(t, handler, "/api/layout")
	require.Equal(t, http.StatusOK, rec.Code)

	// The handler output is gzip-free for API calls without Accept-Encoding.
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layout))
	assert.Empty(t, layout.Blocks)
	assert.Equal(t, "idle", layout.State)

	// Add, then inspect.
	rec = apiCall(t, handler, http.MethodPost, "/api/blocks", map[string]string{"type": "hero"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = get(t, handler, "/api/layout")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layout))
	require.Len(t, layout.Blocks, 1)
	assert.Equal(t, created.ID, layout.Blocks[0].ID)
	assert.Equal(t, created.ID, layout.Selected)
	assert.Equal(t, "dirty", layout.State)

	// Update content.
	rec = apiCall(t, handler, http.MethodPatch, "/api/blocks/"+created.ID,
		map[string]any{"content": map[string]any{"title": "Patched"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, handler, "/api/layout")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layout))
	assert.Equal(t, "Patched", layout.Blocks[0].Label)

	// Save settles to idle.
	rec = apiCall(t, handler, http.MethodPost, "/api/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = get(t, handler, "/api/state")
	assert.Contains(t, rec.Body.String(), "idle")

	// Delete clears the layout again.
	rec = apiCall(t, handler, http.MethodDelete, "/api/blocks/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = apiCall(t, handler, http.MethodDelete, "/api/blocks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIMoveAndReorder(t *testing.T) {
	s := newTestServer(t, nil, store.NewMemory())
	handler := s.Handler(context.Background())

	ids := make([]string, 0, 3)
	for _, blockType := range []string{"hero", "text", "promo-banner"} {
		rec := apiCall(t, handler, http.MethodPost, "/api/blocks", map[string]string{"type": blockType})
		require.Equal(t, http.StatusCreated, rec.Code)
		var created struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		ids = append(ids, created.ID)
	}

	rec := apiCall(t, handler, http.MethodPost, "/api/blocks/"+ids[2]+"/move",
		map[string]string{"direction": "up"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{ids[0], ids[2], ids[1]}, s.Session().Draft().IDs())

	rec = apiCall(t, handler, http.MethodPost, "/api/layout/reorder",
		map[string]any{"ids": []string{ids[1], ids[0], ids[2]}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{ids[1], ids[0], ids[2]}, s.Session().Draft().IDs())

	rec = apiCall(t, handler, http.MethodPost, "/api/blocks/"+ids[0]+"/move",
		map[string]string{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIRejectsUnknownBlockType(t *testing.T) {
	s := newTestServer(t, nil, store.NewMemory())
	rec := apiCall(t, s.Handler(context.Background()), http.MethodPost, "/api/blocks",
		map[string]string{"type": "carousel"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API = &config.APIConfig{Auth: &config.AuthConfig{APIKey: "hunter2"}}
	s := newTestServer(t, cfg, store.NewMemory())
	handler := s.Handler(context.Background())

	// Missing key.
	rec := get(t, handler, "/api/layout")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong key.
	req := httptest.NewRequest(http.MethodGet, "/api/layout", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct key.
	req = httptest.NewRequest(http.MethodGet, "/api/layout", nil)
	req.Header.Set("X-API-Key", "hunter2")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Pages stay public.
	assert.Equal(t, http.StatusOK, get(t, handler, "/").Code)
}

func TestStorefrontFallsBackToConfigTheme(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Title = "Config Store"

	st := store.NewMemory()
	s := newTestServer(t, cfg, st)
	body := get(t, s.Handler(context.Background()), "/").Body.String()
	assert.Contains(t, body, "Config Store")
}

func TestStoredThemeWinsOverConfig(t *testing.T) {
	st := store.NewMemory()
	theme := pagebuilder.DefaultTheme()
	theme.StoreName = "Stored Name"
	require.NoError(t, st.SaveTheme(context.Background(), theme))

	s := newTestServer(t, nil, st)
	body := get(t, s.Handler(context.Background()), "/").Body.String()
	assert.Contains(t, body, "Stored Name")
	assert.NotContains(t, body, "<strong>Test Shop</strong>")
}

func TestAssetsServed(t *testing.T) {
	s := newTestServer(t, nil, store.NewMemory())
	handler := s.Handler(context.Background())

	for _, path := range []string{"/assets/storefront.css", "/assets/editor.js", "/assets/preview.js", "/assets/editor.css"} {
		rec := get(t, handler, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotZero(t, rec.Body.Len(), path)
	}
}

func TestStorefrontPageIsCached(t *testing.T) {
	st := seedStore(t)
	s := newTestServer(t, nil, st)
	handler := s.Handler(context.Background())

	require.Contains(t, get(t, handler, "/").Body.String(), "Published Hero")

	// An out-of-band store write is not visible until something invalidates
	// the page cache.
	hero := pagebuilder.NewBlock(pagebuilder.TypeHero)
	hero.Content["title"] = "Out Of Band"
	require.NoError(t, st.SaveLayout(context.Background(), pagebuilder.SlotDraft, pagebuilder.NewDocument(hero)))
	require.NoError(t, st.Publish(context.Background()))
	assert.Contains(t, get(t, handler, "/").Body.String(), "Published Hero")

	// A persist through the editor invalidates it and the next request
	// re-reads the live slot.
	require.Equal(t, http.StatusOK, apiCall(t, handler, http.MethodPost, "/api/save", nil).Code)
	assert.Contains(t, get(t, handler, "/").Body.String(), "Out Of Band")
}

func TestStorefrontServesStaleAndRevalidates(t *testing.T) {
	s := newTestServer(t, nil, seedStore(t))
	handler := s.Handler(context.Background())

	// Plant an already-stale copy: past its fresh window, inside the
	// serve-stale window.
	s.pages.SetWithStale("storefront:/", []byte("stale copy"), -time.Second, time.Hour)

	// The stale hit serves the cached copy, not a fresh render.
	assert.Equal(t, "stale copy", get(t, handler, "/").Body.String())

	// The background refresh replaces it with the live render.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if strings.Contains(get(t, handler, "/").Body.String(), "Published Hero") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stale page was never revalidated")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSeedFilesImportedOnStartup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.json"),
		[]byte(`{"products":[{"id":"p9","name":"Seeded Mug","price":12,"isFeatured":true}]}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layout.json"),
		[]byte(`[{"id":"hero-seed","type":"hero","content":{"title":"Seeded Hero"}}]`), 0644))

	s, err := New(context.Background(), dir, config.DefaultConfig(), store.NewMemory())
	require.NoError(t, err)
	defer s.Close()

	body := get(t, s.Handler(context.Background()), "/").Body.String()
	assert.Contains(t, body, "Seeded Hero")
}

func TestLayoutSeedDoesNotOverwritePublishedLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layout.json"),
		[]byte(`[{"id":"hero-seed","type":"hero","content":{"title":"Seeded Hero"}}]`), 0644))

	st := seedStore(t)
	cfg := config.DefaultConfig()
	s, err := New(context.Background(), dir, cfg, st)
	require.NoError(t, err)
	defer s.Close()

	body := get(t, s.Handler(context.Background()), "/").Body.String()
	assert.Contains(t, body, "Published Hero")
	assert.NotContains(t, body, "Seeded Hero")
}

func TestGzipCompression(t *testing.T) {
	s := newTestServer(t, nil, seedStore(t))
	handler := s.Handler(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.True(t, strings.Contains(rec.Header().Get("Vary"), "Accept-Encoding"))
}
