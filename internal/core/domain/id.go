package domain

import (
	"github.com/google/uuid"
)

// PeerID is the stable identifier the channel adapter assigns to a
// connection at upgrade time. It is the routing address for every
// relay event.
type PeerID string

func NewPeerID() PeerID {
	return PeerID(uuid.NewString())
}

func (id PeerID) String() string {
	return string(id)
}

// RoomID is chosen by the creating peer and treated as opaque. When a
// create request carries no id the relay mints one.
type RoomID string

func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}

func (id RoomID) String() string {
	return string(id)
}
