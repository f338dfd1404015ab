package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/shopkit/pagebuilder/internal/preview"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: preview.SameOriginCheck(),
}

// serveWebSocket upgrades a preview frame connection and runs a preview host
// over it. The host immediately receives the current draft state; the frame
// gets it as one init once it signals ready.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	origin := requestOrigin(r)
	host := preview.NewHost(preview.NewWS(conn, origin, origin), origin)
	host.OnBlockClick = func(blockID string) {
		s.session.SelectBlock(blockID)
		s.syncPreviews()
	}
	host.OnSectionClick = func(section string) {
		log.Printf("[WS] Preview section clicked: %s", section)
	}

	s.hostMu.Lock()
	s.hosts[host] = true
	s.hostMu.Unlock()

	host.Start()
	if err := host.Publish(s.previewState()); err != nil {
		log.Printf("[WS] Initial publish failed: %v", err)
	}

	go func() {
		<-host.Done()
		s.hostMu.Lock()
		delete(s.hosts, host)
		s.hostMu.Unlock()
	}()
}

// requestOrigin reconstructs the request's own origin. The upgrade check has
// already refused cross-origin browsers, so the peer shares this origin.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
