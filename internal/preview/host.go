package preview

import (
	"fmt"
	"log"
	"sync"
)

// Host is the editor side of the preview protocol. Publish can be called
// from the moment the host exists; everything published before the guest's
// ready signal accumulates and goes out as a single init.
type Host struct {
	transport Transport
	origin    string

	// Interaction callbacks, invoked from the read loop.
	OnBlockClick   func(blockID string)
	OnSectionClick func(section string)

	mu      sync.Mutex
	ready   bool
	started bool
	state   State // cumulative published state

	// sendMu orders wire writes: an init holds it from state snapshot
	// through Send, so no update can overtake the init it belongs after.
	sendMu sync.Mutex

	done chan struct{}
}

// NewHost creates a host over the transport. origin is the host's own origin;
// inbound envelopes from any other origin are silently discarded. Start must
// be called to begin processing guest messages.
func NewHost(transport Transport, origin string) *Host {
	return &Host{
		transport: transport,
		origin:    origin,
		state:     State{},
		done:      make(chan struct{}),
	}
}

// Start runs the read loop until the transport closes.
func (h *Host) Start() {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()
	go h.readLoop()
}

func (h *Host) readLoop() {
	defer close(h.done)
	for {
		env, err := h.transport.Receive()
		if err != nil {
			return
		}
		h.handle(env)
	}
}

func (h *Host) handle(env Envelope) {
	if env.Origin != h.origin {
		log.Printf("[Preview] Discarding %s from foreign origin %q", env.Type, env.Origin)
		return
	}

	switch env.Type {
	case TypeReady:
		h.flushInit()
	case TypeBlockClick:
		if h.OnBlockClick != nil && env.BlockID != "" {
			h.OnBlockClick(env.BlockID)
		}
	case TypeSectionClick:
		if h.OnSectionClick != nil && env.Section != "" {
			h.OnSectionClick(env.Section)
		}
	default:
		// Init and update only ever flow host to guest.
		log.Printf("[Preview] Ignoring unexpected %s from guest", env.Type)
	}
}

// flushInit sends the cumulative state as one init and opens the update path.
// A repeated ready (guest frame reloaded) re-sends the full state.
func (h *Host) flushInit() {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.mu.Lock()
	payload, err := encodeState(h.state)
	if err == nil {
		h.ready = true
	}
	h.mu.Unlock()

	if err != nil {
		log.Printf("[Preview] Dropping init: %v", err)
		return
	}
	if err := h.transport.Send(Envelope{Type: TypeInit, Payload: payload}); err != nil {
		log.Printf("[Preview] Failed to send init: %v", err)
	}
}

// Publish merges a partial state into the host's cumulative state. Before the
// guest is ready it only accumulates; after, the partial goes out as an
// update.
func (h *Host) Publish(patch State) error {
	h.mu.Lock()
	h.state = merge(h.state, patch)
	ready := h.ready
	h.mu.Unlock()

	if !ready {
		return nil
	}

	payload, err := encodeState(patch)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}

	// An in-flight init either snapshotted this patch already or goes out
	// first; either way the update lands after it and nothing is lost.
	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	return h.transport.Send(Envelope{Type: TypeUpdate, Payload: payload})
}

// Ready reports whether the guest has signalled ready.
func (h *Host) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// Done is closed when the read loop exits (transport closed or failed).
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Close shuts the transport down and, if the read loop was started, waits
// for it to exit.
func (h *Host) Close() error {
	err := h.transport.Close()
	h.mu.Lock()
	started := h.started
	h.mu.Unlock()
	if started {
		<-h.done
	}
	return err
}
