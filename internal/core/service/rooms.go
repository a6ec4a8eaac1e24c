package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/beamlabs/beam/internal/core/domain"
	"github.com/beamlabs/beam/internal/core/port"
)

// Rooms is the relay's room registry and message router. It is the
// sole owner of room state; every mutating operation runs under one
// lock so concurrent channels observe consistent before/after states.
// Forwarding only takes a read view for the membership check.
type Rooms struct {
	gateway port.Gateway

	mu    sync.RWMutex
	rooms map[domain.RoomID]*domain.Room
}

func NewRooms(gateway port.Gateway) *Rooms {
	return &Rooms{
		gateway: gateway,
		rooms:   make(map[domain.RoomID]*domain.Room),
	}
}

// Create registers a new room with the sender as its broadcaster and
// answers with "created". An empty roomID asks the relay to mint one.
// A colliding id is rejected with an error event instead of silently
// orphaning the existing room's members.
func (s *Rooms) Create(ctx context.Context, sender domain.PeerID, roomID domain.RoomID) {
	s.mu.Lock()
	if roomID == "" {
		roomID = domain.NewRoomID()
	}
	if _, exists := s.rooms[roomID]; exists {
		s.mu.Unlock()
		s.emit(ctx, sender, domain.Event{
			Kind:   domain.EventError,
			RoomID: roomID,
			Code:   domain.CodeRoomExists,
			Reason: "room id already in use",
		})
		return
	}
	s.rooms[roomID] = domain.NewRoom(roomID, sender)
	s.mu.Unlock()

	log.Info().Str("room_id", roomID.String()).Str("peer_id", sender.String()).Msg("Room created")
	s.emit(ctx, sender, domain.Event{Kind: domain.EventCreated, RoomID: roomID})
}

// Join adds the sender as a viewer. The broadcaster learns about the
// new viewer before the sender hears "joined", so its offer can only
// trail the membership change. A missing room or one without a
// broadcaster answers "full"; nobody else is notified.
func (s *Rooms) Join(ctx context.Context, sender domain.PeerID, roomID domain.RoomID) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok || !room.HasBroadcaster() {
		s.mu.Unlock()
		s.emit(ctx, sender, domain.Event{Kind: domain.EventFull, RoomID: roomID})
		return
	}
	room.AddViewer(sender)
	broadcaster := room.Broadcaster
	s.mu.Unlock()

	log.Info().Str("room_id", roomID.String()).Str("peer_id", sender.String()).Msg("Viewer joined room")
	s.emit(ctx, broadcaster, domain.Event{Kind: domain.EventViewer, RoomID: roomID, From: sender})
	s.emit(ctx, sender, domain.Event{Kind: domain.EventJoined, RoomID: roomID})
}

// Forward routes one negotiation message to the addressed peer,
// stamping the sender's id as the "from" field. Both ends must be
// members of the stated room; anything else is dropped without a
// reply, like the rest of the malformed traffic.
func (s *Rooms) Forward(ctx context.Context, sender domain.PeerID, kind domain.SignalKind, roomID domain.RoomID, to domain.PeerID, payload json.RawMessage) {
	if !kind.Valid() {
		return
	}

	s.mu.RLock()
	room, ok := s.rooms[roomID]
	allowed := ok && room.IsMember(sender) && room.IsMember(to)
	s.mu.RUnlock()

	if !allowed {
		log.Debug().
			Str("room_id", roomID.String()).
			Str("peer_id", sender.String()).
			Str("to", to.String()).
			Str("kind", string(kind)).
			Msg("Dropping signal outside room membership")
		return
	}

	s.emit(ctx, to, domain.Event{
		Kind:    kind.EventKind(),
		RoomID:  roomID,
		From:    sender,
		Payload: payload,
	})
}

// Stop ends the broadcast: every member hears "stop" and the room is
// deleted. Issued by anyone but the broadcaster it is a no-op.
func (s *Rooms) Stop(ctx context.Context, sender domain.PeerID, roomID domain.RoomID) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok || room.Broadcaster != sender {
		s.mu.Unlock()
		return
	}
	members := room.Members()
	delete(s.rooms, roomID)
	s.mu.Unlock()

	log.Info().Str("room_id", roomID.String()).Msg("Broadcast stopped, room deleted")
	for _, m := range members {
		s.emit(ctx, m, domain.Event{Kind: domain.EventStop, RoomID: roomID})
	}
}

// Exit removes the sender from the room. A departing broadcaster
// takes the room with it and the members hear "broadcaster-left"; a
// departing viewer leaves the remaining members an "exit" notice so
// they can clear that viewer's state. A second exit for an already
// removed peer changes nothing.
func (s *Rooms) Exit(ctx context.Context, sender domain.PeerID, roomID domain.RoomID) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}

	if room.Broadcaster == sender {
		members := room.Members()
		delete(s.rooms, roomID)
		s.mu.Unlock()

		log.Info().Str("room_id", roomID.String()).Msg("Broadcaster left, room deleted")
		for _, m := range members {
			s.emit(ctx, m, domain.Event{Kind: domain.EventBroadcasterLeft, RoomID: roomID})
		}
		return
	}

	if !room.RemoveViewer(sender) {
		s.mu.Unlock()
		return
	}
	if room.Empty() {
		delete(s.rooms, roomID)
		s.mu.Unlock()
		return
	}
	members := room.Members()
	s.mu.Unlock()

	log.Info().Str("room_id", roomID.String()).Str("peer_id", sender.String()).Msg("Viewer left room")
	for _, m := range members {
		s.emit(ctx, m, domain.Event{Kind: domain.EventExit, RoomID: roomID, From: sender})
	}
}

// Disconnect is the channel-level cleanup path. The scan covers every
// room: a peer broadcasts in at most one but may be viewing several.
func (s *Rooms) Disconnect(ctx context.Context, peer domain.PeerID) {
	type pending struct {
		to  domain.PeerID
		evt domain.Event
	}
	var sends []pending

	s.mu.Lock()
	for id, room := range s.rooms {
		if room.Broadcaster == peer {
			delete(s.rooms, id)
			for _, v := range room.Viewers {
				sends = append(sends, pending{v, domain.Event{Kind: domain.EventBroadcasterLeft, RoomID: id}})
			}
			log.Info().Str("room_id", id.String()).Msg("Broadcaster disconnected, room deleted")
			continue
		}
		if room.RemoveViewer(peer) && room.Empty() {
			delete(s.rooms, id)
		}
	}
	s.mu.Unlock()

	for _, p := range sends {
		s.emit(ctx, p.to, p.evt)
	}
}

// Room returns a copy of the room record, never a live reference.
func (s *Rooms) Room(id domain.RoomID) (domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, false
	}
	return room.Clone(), true
}

func (s *Rooms) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *Rooms) emit(ctx context.Context, to domain.PeerID, evt domain.Event) {
	if err := s.gateway.Send(ctx, to, evt); err != nil {
		log.Debug().Err(err).
			Str("peer_id", to.String()).
			Str("kind", string(evt.Kind)).
			Msg("Event delivery failed")
	}
}
