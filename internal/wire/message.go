// Package wire defines the JSON envelope exchanged over a peer's
// websocket channel. It models the protocol surface only; neither the
// room registry nor any WebRTC library type leaks in here.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type Kind string

// Client to relay.
const (
	KindCreate    Kind = "create"
	KindJoin      Kind = "join"
	KindOffer     Kind = "offer"
	KindAnswer    Kind = "answer"
	KindCandidate Kind = "ice-candidate"
	KindStop      Kind = "stop"
	KindExit      Kind = "exit"
)

// Relay to client. Offer, answer, ice-candidate, stop and exit reuse
// the inbound kinds, with "to" swapped for "from" on the forwarded
// negotiation messages.
const (
	KindCreated         Kind = "created"
	KindJoined          Kind = "joined"
	KindFull            Kind = "full"
	KindViewer          Kind = "viewer"
	KindBroadcasterLeft Kind = "broadcaster-left"
	KindError           Kind = "error"
)

// Message is the single envelope for both directions. Payload is the
// opaque negotiation body (SDP or ICE candidate JSON) and is never
// inspected by the relay.
type Message struct {
	Kind    Kind            `json:"kind"`
	RoomID  string          `json:"room_id,omitempty"`
	To      string          `json:"to,omitempty"`
	From    string          `json:"from,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Code    string          `json:"code,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// Parse decodes and validates one client-to-relay message. Unknown
// fields and trailing data are rejected so malformed traffic dies at
// the boundary instead of reaching the router.
func Parse(data []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg Message
	if err := dec.Decode(&msg); err != nil {
		return Message{}, err
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Message{}, fmt.Errorf("wire: unexpected trailing data")
	}
	return msg, nil
}

// Validate checks the client-to-relay shape for the message's kind.
func (m Message) Validate() error {
	switch m.Kind {
	case KindCreate:
		// room_id is optional; the relay mints one when absent.
		if m.To != "" || m.From != "" || m.Payload != nil {
			return fmt.Errorf("wire: create message has unexpected fields")
		}
	case KindJoin, KindStop, KindExit:
		if m.RoomID == "" {
			return fmt.Errorf("wire: %s message missing room_id", m.Kind)
		}
		if m.To != "" || m.From != "" || m.Payload != nil {
			return fmt.Errorf("wire: %s message has unexpected fields", m.Kind)
		}
	case KindOffer, KindAnswer, KindCandidate:
		if m.RoomID == "" {
			return fmt.Errorf("wire: %s message missing room_id", m.Kind)
		}
		if m.To == "" {
			return fmt.Errorf("wire: %s message missing recipient", m.Kind)
		}
		if len(m.Payload) == 0 {
			return fmt.Errorf("wire: %s message missing payload", m.Kind)
		}
		if m.From != "" {
			return fmt.Errorf("wire: %s message must not carry a sender id", m.Kind)
		}
	default:
		return fmt.Errorf("wire: unsupported message kind %q", m.Kind)
	}
	if m.Code != "" || m.Reason != "" {
		return fmt.Errorf("wire: %s message has unexpected error fields", m.Kind)
	}
	return nil
}
