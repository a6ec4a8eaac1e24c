package peer

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// session wraps the negotiation with a single counterpart. Candidates
// may arrive over the relay before the matching offer or answer has
// been applied; they queue here until the remote description lands
// and are then added in arrival order.
type session struct {
	pc *webrtc.PeerConnection

	mu        sync.Mutex
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

func newSession(cfg webrtc.Configuration) (*session, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &session{pc: pc}, nil
}

func (s *session) setRemote(desc webrtc.SessionDescription) error {
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		return err
	}

	s.mu.Lock()
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, c := range pending {
		if err := s.pc.AddICECandidate(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) addCandidate(c webrtc.ICECandidateInit) error {
	s.mu.Lock()
	if !s.remoteSet {
		s.pending = append(s.pending, c)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.pc.AddICECandidate(c)
}

func (s *session) close() error {
	return s.pc.Close()
}
