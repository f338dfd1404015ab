package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/pagebuilder/internal/preview"
	"github.com/shopkit/pagebuilder/internal/store"
)

func dialPreview(t *testing.T, ts *httptest.Server, origin string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/preview"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) preview.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env preview.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestPreviewSocketInitAfterReady(t *testing.T) {
	s := newTestServer(t, nil, seedStore(t))
	ts := httptest.NewServer(s.Handler(context.Background()))
	defer ts.Close()

	conn := dialPreview(t, ts, ts.URL)

	require.NoError(t, conn.WriteJSON(preview.Envelope{Type: preview.TypeReady}))

	env := readEnvelope(t, conn)
	assert.Equal(t, preview.TypeInit, env.Type)

	var state map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Payload, &state))
	require.Contains(t, state, "page")

	var page string
	require.NoError(t, json.Unmarshal(state["page"], &page))
	assert.Contains(t, page, "Published Hero")
	// The preview shows the draft in editor mode.
	assert.Contains(t, page, "data-block-id")
}

func TestPreviewSocketReceivesEditUpdates(t *testing.T) {
	s := newTestServer(t, nil, store.NewMemory())
	ts := httptest.NewServer(s.Handler(context.Background()))
	defer ts.Close()

	conn := dialPreview(t, ts, ts.URL)
	require.NoError(t, conn.WriteJSON(preview.Envelope{Type: preview.TypeReady}))
	require.Equal(t, preview.TypeInit, readEnvelope(t, conn).Type)

	_, err := s.Session().AddBlock("hero")
	require.NoError(t, err)
	s.syncPreviews()

	env := readEnvelope(t, conn)
	assert.Equal(t, preview.TypeUpdate, env.Type)

	var state map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Payload, &state))
	var page string
	require.NoError(t, json.Unmarshal(state["page"], &page))
	assert.Contains(t, page, "pb-hero")
}

func TestPreviewSocketBlockClickSelects(t *testing.T) {
	s := newTestServer(t, nil, store.NewMemory())
	ts := httptest.NewServer(s.Handler(context.Background()))
	defer ts.Close()

	b, err := s.Session().AddBlock("hero")
	require.NoError(t, err)
	s.Session().SelectBlock("")

	conn := dialPreview(t, ts, ts.URL)
	require.NoError(t, conn.WriteJSON(preview.Envelope{Type: preview.TypeReady}))
	require.Equal(t, preview.TypeInit, readEnvelope(t, conn).Type)

	require.NoError(t, conn.WriteJSON(preview.Envelope{Type: preview.TypeBlockClick, BlockID: b.ID}))

	// Selection lands in the session and comes back as an update.
	env := readEnvelope(t, conn)
	require.Equal(t, preview.TypeUpdate, env.Type)
	assert.Equal(t, b.ID, s.Session().Selected())

	var state map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Payload, &state))
	var selection string
	require.NoError(t, json.Unmarshal(state["selection"], &selection))
	assert.Equal(t, b.ID, selection)
}

func TestPreviewSocketRefusesCrossOrigin(t *testing.T) {
	s := newTestServer(t, nil, store.NewMemory())
	ts := httptest.NewServer(s.Handler(context.Background()))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/preview"
	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		conn.Close()
	}
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
