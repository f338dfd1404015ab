package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopkit/pagebuilder"
	"github.com/shopkit/pagebuilder/internal/editor"
)

// layoutResponse is the editor's view of the session: the draft blocks in
// order, the selection, and the state machine's state.
type layoutResponse struct {
	Blocks   []blockSummary `json:"blocks"`
	Selected string         `json:"selected,omitempty"`
	State    string         `json:"state"`
}

type blockSummary struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// routeAPI dispatches /api/ requests. Mutations push the new draft state to
// every connected preview before responding.
func (s *Server) routeAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/")

	switch {
	case path == "layout" && r.Method == http.MethodGet:
		s.handleGetLayout(w, r)
	case path == "layout/reorder" && r.Method == http.MethodPost:
		s.handleReorder(w, r)
	case path == "blocks" && r.Method == http.MethodPost:
		s.handleAddBlock(w, r)
	case strings.HasPrefix(path, "blocks/"):
		s.routeBlock(w, r, strings.TrimPrefix(path, "blocks/"))
	case path == "block-types" && r.Method == http.MethodGet:
		s.handleBlockTypes(w, r)
	case path == "select" && r.Method == http.MethodPost:
		s.handleSelect(w, r)
	case path == "save" && r.Method == http.MethodPost:
		s.handlePersist(w, r, s.session.Save)
	case path == "publish" && r.Method == http.MethodPost:
		s.handlePersist(w, r, s.session.Publish)
	case path == "state" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"state": s.session.State().String()})
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) routeBlock(w http.ResponseWriter, r *http.Request, rest string) {
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	switch {
	case action == "" && (r.Method == http.MethodPatch || r.Method == http.MethodPut):
		s.handleUpdateBlock(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		s.handleDeleteBlock(w, r, id)
	case action == "move" && r.Method == http.MethodPost:
		s.handleMoveBlock(w, r, id)
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleGetLayout(w http.ResponseWriter, _ *http.Request) {
	doc := s.session.Draft()
	resp := layoutResponse{
		Blocks:   make([]blockSummary, 0, doc.Len()),
		Selected: s.session.Selected(),
		State:    s.session.State().String(),
	}
	for _, b := range doc.Blocks() {
		resp.Blocks = append(resp.Blocks, blockSummary{
			ID:    b.ID,
			Type:  b.Type,
			Label: b.DisplayLabel(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBlockTypes(w http.ResponseWriter, _ *http.Request) {
	types := make([]map[string]any, 0, len(pagebuilder.KnownTypes()))
	for _, t := range pagebuilder.KnownTypes() {
		types = append(types, map[string]any{
			"type":    t,
			"content": pagebuilder.DefaultContent(t),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": types})
}

func (s *Server) handleAddBlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := s.session.AddBlock(req.Type)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.syncPreviews()
	writeJSON(w, http.StatusCreated, map[string]string{"id": b.ID})
}

func (s *Server) handleUpdateBlock(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Content map[string]any              `json:"content,omitempty"`
		Styles  *pagebuilder.StyleOverrides `json:"styles,omitempty"`
		Label   *string                     `json:"label,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, ok := s.session.Draft().ByID(id); !ok {
		writeJSONError(w, http.StatusNotFound, "no such block")
		return
	}

	s.session.UpdateBlock(id, editor.Patch{
		Content: req.Content,
		Styles:  req.Styles,
		Label:   req.Label,
	})
	s.syncPreviews()
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, _ *http.Request, id string) {
	if _, ok := s.session.Draft().ByID(id); !ok {
		writeJSONError(w, http.StatusNotFound, "no such block")
		return
	}
	s.session.DeleteBlock(id)
	s.syncPreviews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveBlock(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Direction {
	case "up":
		s.session.MoveUp(id)
	case "down":
		s.session.MoveDown(id)
	default:
		writeJSONError(w, http.StatusBadRequest, "direction must be \"up\" or \"down\"")
		return
	}

	s.syncPreviews()
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.session.Reorder(req.IDs)
	s.syncPreviews()
	s.handleGetLayout(w, r)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.session.SelectBlock(req.ID)
	s.syncPreviews()
	writeJSON(w, http.StatusOK, map[string]string{"selected": s.session.Selected()})
}

// handlePersist runs Save or Publish. A persist already in flight maps to
// 409 so the client can retry after the running one settles.
func (s *Server) handlePersist(w http.ResponseWriter, r *http.Request, persist func(ctx context.Context) error) {
	if err := persist(r.Context()); err != nil {
		if errors.Is(err, editor.ErrSaveInFlight) {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// The live slot may have changed.
	s.pages.InvalidateAll()
	writeJSON(w, http.StatusOK, map[string]string{"state": s.session.State().String()})
}
