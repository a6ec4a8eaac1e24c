package wire

import (
	"strings"
	"testing"
)

func TestParseValidMessages(t *testing.T) {
	cases := []struct {
		name string
		data string
		want Kind
	}{
		{"create with room", `{"kind":"create","room_id":"abc"}`, KindCreate},
		{"create without room", `{"kind":"create"}`, KindCreate},
		{"join", `{"kind":"join","room_id":"abc"}`, KindJoin},
		{"offer", `{"kind":"offer","room_id":"abc","to":"p1","payload":{"type":"offer","sdp":"v=0"}}`, KindOffer},
		{"answer", `{"kind":"answer","room_id":"abc","to":"p1","payload":{"type":"answer","sdp":"v=0"}}`, KindAnswer},
		{"candidate", `{"kind":"ice-candidate","room_id":"abc","to":"p1","payload":{"candidate":"x"}}`, KindCandidate},
		{"stop", `{"kind":"stop","room_id":"abc"}`, KindStop},
		{"exit", `{"kind":"exit","room_id":"abc"}`, KindExit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Parse([]byte(tc.data))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if msg.Kind != tc.want {
				t.Fatalf("kind = %q, want %q", msg.Kind, tc.want)
			}
		})
	}
}

func TestParseRejectsMalformedMessages(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `hello`},
		{"unknown kind", `{"kind":"launch"}`},
		{"relay-only kind", `{"kind":"created","room_id":"abc"}`},
		{"join missing room", `{"kind":"join"}`},
		{"stop missing room", `{"kind":"stop"}`},
		{"exit missing room", `{"kind":"exit"}`},
		{"offer missing recipient", `{"kind":"offer","room_id":"abc","payload":{}}`},
		{"offer missing payload", `{"kind":"offer","room_id":"abc","to":"p1"}`},
		{"offer missing room", `{"kind":"offer","to":"p1","payload":{}}`},
		{"offer with sender id", `{"kind":"offer","room_id":"abc","to":"p1","from":"p2","payload":{}}`},
		{"create with payload", `{"kind":"create","payload":{}}`},
		{"join with recipient", `{"kind":"join","room_id":"abc","to":"p1"}`},
		{"unknown field", `{"kind":"join","room_id":"abc","extras":true}`},
		{"trailing data", `{"kind":"join","room_id":"abc"}{"kind":"join","room_id":"def"}`},
		{"error fields on join", `{"kind":"join","room_id":"abc","code":"x"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.data)); err == nil {
				t.Fatalf("expected error for %s", tc.data)
			}
		})
	}
}

func TestValidateErrorNamesKind(t *testing.T) {
	err := Message{Kind: KindOffer, RoomID: "abc"}.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "offer") {
		t.Fatalf("error %q does not name the kind", err)
	}
}
