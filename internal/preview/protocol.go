// Package preview implements the message protocol between the editor (host)
// and the sandboxed preview frame (guest). The host owns all state; the guest
// renders whatever the host last sent and reports interactions back. State
// published before the guest is ready is buffered and flushed as one init, so
// the guest never observes a partial boot sequence.
package preview

import "encoding/json"

// Message types.
const (
	TypeReady        = "preview-ready"
	TypeInit         = "preview-init"
	TypeUpdate       = "preview-update"
	TypeBlockClick   = "preview-block-click"
	TypeSectionClick = "preview-section-click"
)

// Envelope is the wire format for every preview message. Origin is stamped by
// the transport on send; receivers silently discard envelopes from a foreign
// origin.
type Envelope struct {
	Type    string          `json:"type"`
	Origin  string          `json:"origin,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	BlockID string          `json:"blockId,omitempty"`
	Section string          `json:"section,omitempty"`
}

// State is the preview's keyed state record (layout, theme, catalog,
// selection). Updates merge shallowly: a key present in the update replaces
// the whole value under that key.
type State map[string]json.RawMessage

// merge returns a copy of base with every key of patch replacing its
// counterpart.
func merge(base, patch State) State {
	out := make(State, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// encodeState marshals a state record into an envelope payload.
func encodeState(s State) (json.RawMessage, error) {
	return json.Marshal(s)
}

// decodeState unmarshals an envelope payload into a state record.
func decodeState(raw json.RawMessage) (State, error) {
	if len(raw) == 0 {
		return State{}, nil
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}
