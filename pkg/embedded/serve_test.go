package embedded

import (
	"context"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSiteFS() fstest.MapFS {
	return fstest.MapFS{
		"site/pagebuilder.yaml": &fstest.MapFile{Data: []byte(
			"title: Embedded Shop\nstore:\n  driver: memory\nfeatures:\n  hot_reload: false\n")},
		"site/layout.json": &fstest.MapFile{Data: []byte(
			`[{"id":"hero-1","type":"hero","content":{"title":"Embedded Hero"}}]`)},
		"site/catalog.json": &fstest.MapFile{Data: []byte(
			`{"products":[{"id":"p1","name":"Widget","price":9.5,"isFeatured":true}]}`)},
	}
}

func TestEmbeddedAppServesSeededSite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := New(ctx, Options{SiteFS: testSiteFS(), RootPath: "site"})
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Embedded Hero")
	assert.Contains(t, body, "Embedded Shop")
}

func TestEmbeddedAppMountsEditor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := New(ctx, Options{SiteFS: testSiteFS(), RootPath: "site"})
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/editor", nil))
	assert.Equal(t, 200, rec.Code)
}

func TestExtractFSRejectsTraversal(t *testing.T) {
	fsys := fstest.MapFS{
		"site/ok.json": &fstest.MapFile{Data: []byte("{}")},
	}
	// A clean MapFS cannot produce traversal paths; cover the happy path and
	// a missing root.
	require.NoError(t, extractFS(fsys, "site", t.TempDir()))
	require.Error(t, extractFS(fsys, "missing", t.TempDir()))
}
