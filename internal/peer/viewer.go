package peer

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/beamlabs/beam/internal/wire"
)

// ErrRoomUnavailable is returned when the room does not exist or has
// no broadcaster; the relay answers both with "full".
var ErrRoomUnavailable = errors.New("peer: room unavailable")

// TrackHandler receives each remote track as it arrives, keyed by the
// counterpart that sent it.
type TrackHandler func(from string, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)

// Viewer joins an existing room and answers the broadcaster's offer.
// It holds exactly one session per counterpart and destroys it when
// the relationship ends.
type Viewer struct {
	client  *Client
	cfg     webrtc.Configuration
	onTrack TrackHandler

	mu       sync.Mutex
	roomID   string
	sessions map[string]*session
	// Candidates that arrived before the counterpart's offer; drained
	// into the session once it exists.
	early map[string][]webrtc.ICECandidateInit

	joined chan string
}

func NewViewer(client *Client, onTrack TrackHandler) *Viewer {
	return &Viewer{
		client:   client,
		cfg:      DefaultConfiguration,
		onTrack:  onTrack,
		sessions: make(map[string]*session),
		early:    make(map[string][]webrtc.ICECandidateInit),
		joined:   make(chan string, 1),
	}
}

// Join asks the relay for membership. The outcome arrives as either
// "joined" or "full" once Run is consuming events.
func (v *Viewer) Join(roomID string) {
	v.mu.Lock()
	v.roomID = roomID
	v.mu.Unlock()
	v.client.Join(roomID)
}

// Joined yields the room id confirmed by the relay.
func (v *Viewer) Joined() <-chan string {
	return v.joined
}

// Exit leaves the room; the remaining members are told by the relay.
func (v *Viewer) Exit() {
	v.mu.Lock()
	roomID := v.roomID
	v.mu.Unlock()
	if roomID != "" {
		v.client.Exit(roomID)
	}
}

// Run consumes relay events until the broadcast ends or the channel
// dies.
func (v *Viewer) Run(ctx context.Context) error {
	defer v.teardown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-v.client.Incoming():
			if !ok {
				return ErrChannelClosed
			}

			switch msg.Kind {
			case wire.KindJoined:
				select {
				case v.joined <- msg.RoomID:
				default:
				}

			case wire.KindFull:
				return ErrRoomUnavailable

			case wire.KindOffer:
				if err := v.handleOffer(msg.From, msg.Payload); err != nil {
					log.Error().Err(err).Str("broadcaster_id", msg.From).Msg("Failed to answer offer")
				}

			case wire.KindCandidate:
				if err := v.handleCandidate(msg.From, msg.Payload); err != nil {
					log.Error().Err(err).Str("broadcaster_id", msg.From).Msg("Failed to apply candidate")
				}

			case wire.KindStop, wire.KindBroadcasterLeft:
				log.Info().Str("kind", string(msg.Kind)).Msg("Broadcast ended")
				return nil

			case wire.KindExit:
				// Another viewer left; nothing of ours to clear.
				log.Debug().Str("peer_id", msg.From).Msg("Viewer left the room")
			}
		}
	}
}

func (v *Viewer) handleOffer(broadcasterID string, payload []byte) error {
	v.mu.Lock()
	roomID := v.roomID
	v.mu.Unlock()

	desc, err := unmarshalSDP(payload)
	if err != nil {
		return err
	}

	s, err := newSession(v.cfg)
	if err != nil {
		return err
	}

	s.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		candidate, err := marshalCandidate(c)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal candidate")
			return
		}
		v.client.SendCandidate(roomID, broadcasterID, candidate)
	})

	if v.onTrack != nil {
		s.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
			v.onTrack(broadcasterID, track, receiver)
		})
	}

	if err := s.setRemote(desc); err != nil {
		s.close()
		return err
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		s.close()
		return err
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		s.close()
		return err
	}
	body, err := marshalSDP(answer)
	if err != nil {
		s.close()
		return err
	}

	v.mu.Lock()
	if old, ok := v.sessions[broadcasterID]; ok {
		old.close()
	}
	v.sessions[broadcasterID] = s
	early := v.early[broadcasterID]
	delete(v.early, broadcasterID)
	v.mu.Unlock()

	for _, init := range early {
		if err := s.addCandidate(init); err != nil {
			log.Error().Err(err).Str("broadcaster_id", broadcasterID).Msg("Failed to apply queued candidate")
		}
	}

	log.Info().Str("broadcaster_id", broadcasterID).Msg("Answering offer")
	v.client.SendAnswer(roomID, broadcasterID, body)
	return nil
}

func (v *Viewer) handleCandidate(from string, payload []byte) error {
	init, err := unmarshalCandidate(payload)
	if err != nil {
		return err
	}

	v.mu.Lock()
	s := v.sessions[from]
	if s == nil {
		// Offer not seen yet; hold the candidate.
		v.early[from] = append(v.early[from], init)
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()
	return s.addCandidate(init)
}

func (v *Viewer) teardown() {
	v.mu.Lock()
	sessions := v.sessions
	v.sessions = make(map[string]*session)
	v.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}
