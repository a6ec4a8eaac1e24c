package peer

import (
	"testing"

	"github.com/pion/webrtc/v4"
)

// remoteOffer builds a real offer from an in-process peer connection
// so session tests exercise pion's actual SDP handling.
func remoteOffer(t *testing.T) webrtc.SessionDescription {
	t.Helper()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("new pc: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	if _, err := pc.CreateDataChannel("probe", nil); err != nil {
		t.Fatalf("create datachannel: %v", err)
	}
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		t.Fatalf("set local: %v", err)
	}
	local := pc.LocalDescription()
	if local == nil {
		t.Fatal("missing local description")
	}
	return *local
}

func TestSessionQueuesCandidatesUntilRemoteDescription(t *testing.T) {
	s, err := newSession(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { s.close() })

	init := webrtc.ICECandidateInit{
		Candidate: "candidate:3584120214 1 udp 2130706431 127.0.0.1 54321 typ host",
	}

	// Before the remote description lands the candidate must queue,
	// not fail.
	if err := s.addCandidate(init); err != nil {
		t.Fatalf("early candidate: %v", err)
	}
	s.mu.Lock()
	queued := len(s.pending)
	s.mu.Unlock()
	if queued != 1 {
		t.Fatalf("pending = %d, want 1", queued)
	}

	if err := s.setRemote(remoteOffer(t)); err != nil {
		t.Fatalf("set remote: %v", err)
	}
	s.mu.Lock()
	drained := len(s.pending)
	s.mu.Unlock()
	if drained != 0 {
		t.Fatalf("pending = %d after remote description, want 0", drained)
	}

	// Late candidates go straight to the connection.
	if err := s.addCandidate(init); err != nil {
		t.Fatalf("late candidate: %v", err)
	}
	s.mu.Lock()
	late := len(s.pending)
	s.mu.Unlock()
	if late != 0 {
		t.Fatalf("late candidate queued instead of applied")
	}
}

func TestSessionAnswersAfterRemoteOffer(t *testing.T) {
	s, err := newSession(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { s.close() })

	if err := s.setRemote(remoteOffer(t)); err != nil {
		t.Fatalf("set remote: %v", err)
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		t.Fatalf("set local: %v", err)
	}
}

func TestUnmarshalSDPRejectsUnknownType(t *testing.T) {
	if _, err := unmarshalSDP([]byte(`{"type":"rollback","sdp":"v=0"}`)); err == nil {
		t.Fatal("expected error for unsupported sdp type")
	}
	if _, err := unmarshalSDP([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
