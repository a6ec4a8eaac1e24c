package peer

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/beamlabs/beam/internal/wire"
)

// ErrChannelClosed is returned when the signaling connection dies
// while an event loop is still running.
var ErrChannelClosed = errors.New("peer: signaling channel closed")

// DefaultConfiguration matches what the browser front-end negotiates
// with.
var DefaultConfiguration = webrtc.Configuration{
	ICEServers: []webrtc.ICEServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
	},
}

// Broadcaster is the media-source side of a room. For every viewer
// the relay announces it opens one negotiation session, attaches its
// local tracks and sends the offer.
type Broadcaster struct {
	client *Client
	tracks []webrtc.TrackLocal
	cfg    webrtc.Configuration

	mu       sync.Mutex
	roomID   string
	sessions map[string]*session

	created chan string
}

func NewBroadcaster(client *Client, tracks []webrtc.TrackLocal) *Broadcaster {
	return &Broadcaster{
		client:   client,
		tracks:   tracks,
		cfg:      DefaultConfiguration,
		sessions: make(map[string]*session),
		created:  make(chan string, 1),
	}
}

// Start asks the relay for a room. The definitive id arrives on
// Created once Run is consuming events.
func (b *Broadcaster) Start(roomID string) {
	b.client.Create(roomID)
}

// Created yields the room id confirmed by the relay.
func (b *Broadcaster) Created() <-chan string {
	return b.created
}

// Stop ends the broadcast for every member. Run returns once the
// relay echoes the stop back.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	roomID := b.roomID
	b.mu.Unlock()
	if roomID != "" {
		b.client.Stop(roomID)
	}
}

// Run consumes relay events until the broadcast stops or the channel
// dies. Sessions never outlive the relationship they negotiate: a
// viewer's exit or the end of the broadcast destroys them.
func (b *Broadcaster) Run(ctx context.Context) error {
	defer b.teardown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-b.client.Incoming():
			if !ok {
				return ErrChannelClosed
			}

			switch msg.Kind {
			case wire.KindCreated:
				b.mu.Lock()
				b.roomID = msg.RoomID
				b.mu.Unlock()
				select {
				case b.created <- msg.RoomID:
				default:
				}

			case wire.KindViewer:
				if err := b.handleViewer(msg.From); err != nil {
					log.Error().Err(err).Str("viewer_id", msg.From).Msg("Failed to negotiate with viewer")
				}

			case wire.KindAnswer:
				if err := b.handleAnswer(msg.From, msg.Payload); err != nil {
					log.Error().Err(err).Str("viewer_id", msg.From).Msg("Failed to apply answer")
				}

			case wire.KindCandidate:
				if err := b.handleCandidate(msg.From, msg.Payload); err != nil {
					log.Error().Err(err).Str("viewer_id", msg.From).Msg("Failed to apply candidate")
				}

			case wire.KindExit:
				b.dropSession(msg.From)

			case wire.KindStop:
				// Our own stop echoed back; the room is gone.
				return nil

			case wire.KindError:
				return errors.New("relay rejected create: " + msg.Code)
			}
		}
	}
}

func (b *Broadcaster) handleViewer(viewerID string) error {
	b.mu.Lock()
	roomID := b.roomID
	b.mu.Unlock()

	s, err := newSession(b.cfg)
	if err != nil {
		return err
	}

	for _, track := range b.tracks {
		if _, err := s.pc.AddTrack(track); err != nil {
			s.close()
			return err
		}
	}

	s.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		payload, err := marshalCandidate(c)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal candidate")
			return
		}
		b.client.SendCandidate(roomID, viewerID, payload)
	})

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		s.close()
		return err
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		s.close()
		return err
	}
	payload, err := marshalSDP(offer)
	if err != nil {
		s.close()
		return err
	}

	b.mu.Lock()
	if old, ok := b.sessions[viewerID]; ok {
		old.close()
	}
	b.sessions[viewerID] = s
	b.mu.Unlock()

	log.Info().Str("viewer_id", viewerID).Msg("Offering to viewer")
	b.client.SendOffer(roomID, viewerID, payload)
	return nil
}

func (b *Broadcaster) handleAnswer(viewerID string, payload []byte) error {
	s := b.session(viewerID)
	if s == nil {
		return errors.New("answer from unknown viewer")
	}
	desc, err := unmarshalSDP(payload)
	if err != nil {
		return err
	}
	return s.setRemote(desc)
}

func (b *Broadcaster) handleCandidate(viewerID string, payload []byte) error {
	s := b.session(viewerID)
	if s == nil {
		return errors.New("candidate from unknown viewer")
	}
	init, err := unmarshalCandidate(payload)
	if err != nil {
		return err
	}
	return s.addCandidate(init)
}

func (b *Broadcaster) session(viewerID string) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[viewerID]
}

func (b *Broadcaster) dropSession(viewerID string) {
	b.mu.Lock()
	s, ok := b.sessions[viewerID]
	if ok {
		delete(b.sessions, viewerID)
	}
	b.mu.Unlock()
	if ok {
		s.close()
		log.Info().Str("viewer_id", viewerID).Msg("Viewer session closed")
	}
}

func (b *Broadcaster) teardown() {
	b.mu.Lock()
	sessions := b.sessions
	b.sessions = make(map[string]*session)
	b.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}
