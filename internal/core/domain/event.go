package domain

import "encoding/json"

type EventKind string

const (
	EventCreated         EventKind = "created"
	EventJoined          EventKind = "joined"
	EventFull            EventKind = "full"
	EventViewer          EventKind = "viewer"
	EventOffer           EventKind = "offer"
	EventAnswer          EventKind = "answer"
	EventCandidate       EventKind = "ice-candidate"
	EventStop            EventKind = "stop"
	EventBroadcasterLeft EventKind = "broadcaster-left"
	EventExit            EventKind = "exit"
	EventError           EventKind = "error"
)

// Error codes carried on EventError.
const (
	CodeRoomExists = "room-exists"
)

// Event is a single relay-to-peer notification. Payload is opaque:
// the relay forwards it without ever reading into it.
type Event struct {
	Kind    EventKind
	RoomID  RoomID
	From    PeerID
	Payload json.RawMessage
	Code    string
	Reason  string
}
