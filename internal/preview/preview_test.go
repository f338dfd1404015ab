package preview

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:3000"

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

// statefulGuest wires a guest whose state snapshots arrive on a channel.
func statefulGuest(t *testing.T, transport Transport, origin string) (*Guest, chan State) {
	t.Helper()
	states := make(chan State, 16)
	g := NewGuest(transport, origin)
	g.OnState = func(s State) { states <- s }
	return g, states
}

func waitState(t *testing.T, states chan State) State {
	t.Helper()
	select {
	case s := <-states:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for guest state")
		return nil
	}
}

func expectNoState(t *testing.T, states chan State) {
	t.Helper()
	select {
	case s := <-states:
		t.Fatalf("unexpected guest state: %v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBufferedPublishesFlushAsSingleInit(t *testing.T) {
	hostT, guestT := Pipe(testOrigin, testOrigin)
	host := NewHost(hostT, testOrigin)
	host.Start()
	defer host.Close()

	// Everything published before ready accumulates; later keys overwrite
	// earlier ones.
	require.NoError(t, host.Publish(State{"layout": raw(`["a"]`), "theme": raw(`{"v":1}`)}))
	require.NoError(t, host.Publish(State{"layout": raw(`["a","b"]`)}))
	assert.False(t, host.Ready())

	guest, states := statefulGuest(t, guestT, testOrigin)
	require.NoError(t, guest.Start())
	defer guest.Close()

	got := waitState(t, states)
	assert.JSONEq(t, `["a","b"]`, string(got["layout"]))
	assert.JSONEq(t, `{"v":1}`, string(got["theme"]))

	// Exactly one init: no second state without a new publish.
	expectNoState(t, states)
	assert.True(t, host.Ready())
}

func TestPostReadyUpdatesMergeShallowly(t *testing.T) {
	hostT, guestT := Pipe(testOrigin, testOrigin)
	host := NewHost(hostT, testOrigin)
	host.Start()
	defer host.Close()

	guest, states := statefulGuest(t, guestT, testOrigin)
	require.NoError(t, guest.Start())
	defer guest.Close()
	waitState(t, states) // empty init

	require.NoError(t, host.Publish(State{"layout": raw(`["a"]`)}))
	got := waitState(t, states)
	assert.JSONEq(t, `["a"]`, string(got["layout"]))

	// A later update for another key leaves the first key in place.
	require.NoError(t, host.Publish(State{"selection": raw(`"block-1"`)}))
	got = waitState(t, states)
	assert.JSONEq(t, `["a"]`, string(got["layout"]))
	assert.JSONEq(t, `"block-1"`, string(got["selection"]))
}

func TestGuestClicksReachHost(t *testing.T) {
	hostT, guestT := Pipe(testOrigin, testOrigin)

	blockClicks := make(chan string, 1)
	sectionClicks := make(chan string, 1)
	host := NewHost(hostT, testOrigin)
	host.OnBlockClick = func(id string) { blockClicks <- id }
	host.OnSectionClick = func(s string) { sectionClicks <- s }
	host.Start()
	defer host.Close()

	guest, states := statefulGuest(t, guestT, testOrigin)
	require.NoError(t, guest.Start())
	defer guest.Close()
	waitState(t, states)

	require.NoError(t, guest.ReportBlockClick("hero-1"))
	require.NoError(t, guest.ReportSectionClick("footer"))

	select {
	case id := <-blockClicks:
		assert.Equal(t, "hero-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("block click never arrived")
	}
	select {
	case s := <-sectionClicks:
		assert.Equal(t, "footer", s)
	case <-time.After(2 * time.Second):
		t.Fatal("section click never arrived")
	}
}

func TestForeignOriginMessagesAreDiscarded(t *testing.T) {
	// The guest end stamps a different origin on everything it sends.
	hostT, guestT := Pipe(testOrigin, "https://evil.example")

	blockClicks := make(chan string, 1)
	host := NewHost(hostT, testOrigin)
	host.OnBlockClick = func(id string) { blockClicks <- id }
	host.Start()
	defer host.Close()

	guest, states := statefulGuest(t, guestT, "https://evil.example")
	require.NoError(t, guest.Start())
	defer guest.Close()

	// The host drops the foreign ready, so no init comes back; the guest
	// would drop a host init anyway since the host's origin is foreign to it.
	expectNoState(t, states)
	assert.False(t, host.Ready())

	require.NoError(t, guest.ReportBlockClick("hero-1"))
	select {
	case id := <-blockClicks:
		t.Fatalf("foreign click %q reached the host", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRepeatedReadyResendsFullState(t *testing.T) {
	hostT, guestT := Pipe(testOrigin, testOrigin)
	host := NewHost(hostT, testOrigin)
	host.Start()
	defer host.Close()

	require.NoError(t, host.Publish(State{"layout": raw(`["a"]`)}))

	guest, states := statefulGuest(t, guestT, testOrigin)
	require.NoError(t, guest.Start())
	defer guest.Close()
	first := waitState(t, states)
	assert.JSONEq(t, `["a"]`, string(first["layout"]))

	// A reloaded frame sends ready again and gets the cumulative state back.
	require.NoError(t, guestT.Send(Envelope{Type: TypeReady}))
	second := waitState(t, states)
	assert.JSONEq(t, `["a"]`, string(second["layout"]))
}

// stallTransport stalls init sends until released and records the order in
// which message types reach the wire.
type stallTransport struct {
	inner       Transport
	initEntered chan struct{}
	release     chan struct{}

	mu   sync.Mutex
	sent []string
}

func (s *stallTransport) Send(env Envelope) error {
	if env.Type == TypeInit {
		select {
		case s.initEntered <- struct{}{}:
		default:
		}
		<-s.release
	}
	s.mu.Lock()
	s.sent = append(s.sent, env.Type)
	s.mu.Unlock()
	return s.inner.Send(env)
}

func (s *stallTransport) Receive() (Envelope, error) { return s.inner.Receive() }
func (s *stallTransport) Close() error               { return s.inner.Close() }

func (s *stallTransport) wireOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func TestUpdateWaitsForInFlightInit(t *testing.T) {
	hostT, guestT := Pipe(testOrigin, testOrigin)
	stall := &stallTransport{
		inner:       hostT,
		initEntered: make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	host := NewHost(stall, testOrigin)
	host.Start()
	defer host.Close()

	require.NoError(t, guestT.Send(Envelope{Type: TypeReady}))
	select {
	case <-stall.initEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("init never reached the wire")
	}

	// A publish lands while the init send is still in flight.
	published := make(chan error, 1)
	go func() { published <- host.Publish(State{"layout": raw(`["a"]`)}) }()

	// Its update must not reach the wire ahead of the init.
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, stall.wireOrder())

	close(stall.release)
	require.NoError(t, <-published)
	assert.Equal(t, []string{TypeInit, TypeUpdate}, stall.wireOrder())

	// A guest that replays the wire in order ends up with the publish applied.
	env, err := guestT.Receive()
	require.NoError(t, err)
	require.Equal(t, TypeInit, env.Type)
	env, err = guestT.Receive()
	require.NoError(t, err)
	require.Equal(t, TypeUpdate, env.Type)
	got, err := decodeState(env.Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `["a"]`, string(got["layout"]))
}

func TestCloseBeforeStartReturns(t *testing.T) {
	hostT, guestT := Pipe(testOrigin, testOrigin)

	closed := make(chan struct{})
	go func() {
		NewHost(hostT, testOrigin).Close()
		NewGuest(guestT, testOrigin).Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close hung without Start")
	}
}

func TestGuestStateSnapshotIsIsolated(t *testing.T) {
	hostT, guestT := Pipe(testOrigin, testOrigin)
	host := NewHost(hostT, testOrigin)
	host.Start()
	defer host.Close()

	guest, states := statefulGuest(t, guestT, testOrigin)
	require.NoError(t, guest.Start())
	defer guest.Close()
	waitState(t, states)

	require.NoError(t, host.Publish(State{"layout": raw(`["a"]`)}))
	waitState(t, states)

	snap := guest.State()
	snap["layout"] = raw(`["tampered"]`)
	assert.JSONEq(t, `["a"]`, string(guest.State()["layout"]))
}
