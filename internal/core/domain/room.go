package domain

// Room binds a single broadcaster to the viewers that joined it.
// Viewers keep join order.
type Room struct {
	ID          RoomID
	Broadcaster PeerID // empty once the broadcaster is gone
	Viewers     []PeerID
}

func NewRoom(id RoomID, broadcaster PeerID) *Room {
	return &Room{
		ID:          id,
		Broadcaster: broadcaster,
		Viewers:     make([]PeerID, 0, 4),
	}
}

func (r *Room) HasBroadcaster() bool {
	return r.Broadcaster != ""
}

func (r *Room) AddViewer(p PeerID) {
	r.Viewers = append(r.Viewers, p)
}

// RemoveViewer reports whether p was actually a viewer of the room.
func (r *Room) RemoveViewer(p PeerID) bool {
	for i, v := range r.Viewers {
		if v == p {
			r.Viewers = append(r.Viewers[:i], r.Viewers[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) HasViewer(p PeerID) bool {
	for _, v := range r.Viewers {
		if v == p {
			return true
		}
	}
	return false
}

func (r *Room) IsMember(p PeerID) bool {
	return (r.HasBroadcaster() && r.Broadcaster == p) || r.HasViewer(p)
}

// Members returns every peer in the room, broadcaster first.
func (r *Room) Members() []PeerID {
	out := make([]PeerID, 0, len(r.Viewers)+1)
	if r.HasBroadcaster() {
		out = append(out, r.Broadcaster)
	}
	return append(out, r.Viewers...)
}

// Empty reports a room with neither broadcaster nor viewers. Such a
// room must not remain in the registry.
func (r *Room) Empty() bool {
	return !r.HasBroadcaster() && len(r.Viewers) == 0
}

// Clone returns a copy that is safe to hand out past the registry's
// mutation boundary.
func (r *Room) Clone() Room {
	out := *r
	out.Viewers = append([]PeerID(nil), r.Viewers...)
	return out
}
