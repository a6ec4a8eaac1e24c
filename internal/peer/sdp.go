package peer

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// sdp is the JSON body carried inside offer/answer payloads. The
// relay never looks at it; only the two endpoints do.
type sdp struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func marshalSDP(desc webrtc.SessionDescription) (json.RawMessage, error) {
	return json.Marshal(sdp{Type: desc.Type.String(), SDP: desc.SDP})
}

func unmarshalSDP(data json.RawMessage) (webrtc.SessionDescription, error) {
	var s sdp
	if err := json.Unmarshal(data, &s); err != nil {
		return webrtc.SessionDescription{}, err
	}

	var t webrtc.SDPType
	switch s.Type {
	case "offer":
		t = webrtc.SDPTypeOffer
	case "answer":
		t = webrtc.SDPTypeAnswer
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("unsupported sdp type %q", s.Type)
	}
	return webrtc.SessionDescription{Type: t, SDP: s.SDP}, nil
}

func marshalCandidate(c *webrtc.ICECandidate) (json.RawMessage, error) {
	return json.Marshal(c.ToJSON())
}

func unmarshalCandidate(data json.RawMessage) (webrtc.ICECandidateInit, error) {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(data, &init); err != nil {
		return webrtc.ICECandidateInit{}, err
	}
	return init, nil
}
