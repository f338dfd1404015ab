package preview

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by transport operations after Close.
var ErrClosed = errors.New("preview transport closed")

// Transport moves envelopes between one host and one guest. Send stamps the
// sender's origin on the envelope; Receive blocks until a message or close.
type Transport interface {
	Send(env Envelope) error
	Receive() (Envelope, error)
	Close() error
}

// Pipe returns two connected in-memory transports, used by tests and the
// desktop shell where host and guest share a process. Each end stamps its own
// origin on outgoing envelopes, so origin filtering stays testable.
func Pipe(hostOrigin, guestOrigin string) (host, guest Transport) {
	ab := make(chan Envelope, 64)
	ba := make(chan Envelope, 64)
	done := make(chan struct{})
	var once sync.Once
	closeAll := func() { once.Do(func() { close(done) }) }

	host = &pipeEnd{origin: hostOrigin, out: ab, in: ba, done: done, close: closeAll}
	guest = &pipeEnd{origin: guestOrigin, out: ba, in: ab, done: done, close: closeAll}
	return host, guest
}

type pipeEnd struct {
	origin string
	out    chan Envelope
	in     chan Envelope
	done   chan struct{}
	close  func()
}

func (p *pipeEnd) Send(env Envelope) error {
	env.Origin = p.origin
	select {
	case p.out <- env:
		return nil
	case <-p.done:
		return ErrClosed
	}
}

func (p *pipeEnd) Receive() (Envelope, error) {
	select {
	case env := <-p.in:
		return env, nil
	case <-p.done:
		// Drain anything that arrived before the close.
		select {
		case env := <-p.in:
			return env, nil
		default:
			return Envelope{}, ErrClosed
		}
	}
}

func (p *pipeEnd) Close() error {
	p.close()
	return nil
}

// WS adapts a websocket connection into a Transport. Origins are fixed at
// construction, after the upgrade-time check has vetted the peer: outgoing
// envelopes carry selfOrigin, and incoming envelopes are stamped with
// peerOrigin regardless of what the wire claims — the transport, not the
// payload, is the authority on where a message came from.
type WS struct {
	conn       *websocket.Conn
	selfOrigin string
	peerOrigin string

	writeMu sync.Mutex
}

// NewWS wraps an upgraded connection.
func NewWS(conn *websocket.Conn, selfOrigin, peerOrigin string) *WS {
	return &WS{conn: conn, selfOrigin: selfOrigin, peerOrigin: peerOrigin}
}

func (w *WS) Send(env Envelope) error {
	env.Origin = w.selfOrigin
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(env)
}

func (w *WS) Receive() (Envelope, error) {
	var env Envelope
	if err := w.conn.ReadJSON(&env); err != nil {
		return Envelope{}, err
	}
	env.Origin = w.peerOrigin
	return env, nil
}

func (w *WS) Close() error {
	return w.conn.Close()
}

// SameOriginCheck returns an upgrade-time origin check that only admits
// browser peers from the server's own host. Non-browser clients (no Origin
// header) are admitted; anything cross-origin is refused before the upgrade.
func SameOriginCheck() func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
