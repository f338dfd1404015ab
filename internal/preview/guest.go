package preview

import (
	"log"
	"sync"
)

// Guest is the preview frame's side of the protocol. It holds no state of
// its own beyond a mirror of what the host sent: init replaces the mirror,
// updates merge into it. The browser guest additionally intercepts link
// navigation inside the frame and reports it as a section click instead of
// navigating; that behavior lives in the embedded client script, which
// funnels through the same Report methods.
type Guest struct {
	transport Transport
	origin    string

	// OnState is invoked from the read loop with the full mirrored state
	// after every init or update.
	OnState func(state State)

	mu      sync.Mutex
	state   State
	started bool

	done chan struct{}
}

// NewGuest creates a guest over the transport. origin is the guest's own
// origin; inbound envelopes from any other origin are silently discarded.
func NewGuest(transport Transport, origin string) *Guest {
	return &Guest{
		transport: transport,
		origin:    origin,
		state:     State{},
		done:      make(chan struct{}),
	}
}

// Start announces readiness and runs the read loop until the transport
// closes. Nothing renders before the host's init arrives.
func (g *Guest) Start() error {
	if err := g.transport.Send(Envelope{Type: TypeReady}); err != nil {
		return err
	}
	g.mu.Lock()
	g.started = true
	g.mu.Unlock()
	go g.readLoop()
	return nil
}

func (g *Guest) readLoop() {
	defer close(g.done)
	for {
		env, err := g.transport.Receive()
		if err != nil {
			return
		}
		g.handle(env)
	}
}

func (g *Guest) handle(env Envelope) {
	if env.Origin != g.origin {
		log.Printf("[Preview] Discarding %s from foreign origin %q", env.Type, env.Origin)
		return
	}

	switch env.Type {
	case TypeInit, TypeUpdate:
		patch, err := decodeState(env.Payload)
		if err != nil {
			log.Printf("[Preview] Discarding malformed %s: %v", env.Type, err)
			return
		}
		g.mu.Lock()
		if env.Type == TypeInit {
			g.state = patch
		} else {
			g.state = merge(g.state, patch)
		}
		snapshot := g.state
		g.mu.Unlock()

		if g.OnState != nil {
			g.OnState(snapshot)
		}
	default:
		log.Printf("[Preview] Ignoring unexpected %s from host", env.Type)
	}
}

// State returns the current mirrored state.
func (g *Guest) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return merge(State{}, g.state)
}

// ReportBlockClick tells the host a block was clicked in the preview.
func (g *Guest) ReportBlockClick(blockID string) error {
	return g.transport.Send(Envelope{Type: TypeBlockClick, BlockID: blockID})
}

// ReportSectionClick tells the host a non-block section (header, footer, an
// intercepted link) was clicked in the preview.
func (g *Guest) ReportSectionClick(section string) error {
	return g.transport.Send(Envelope{Type: TypeSectionClick, Section: section})
}

// Close shuts the transport down and, if the read loop was started, waits
// for it to exit.
func (g *Guest) Close() error {
	err := g.transport.Close()
	g.mu.Lock()
	started := g.started
	g.mu.Unlock()
	if started {
		<-g.done
	}
	return err
}
