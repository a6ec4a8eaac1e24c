package peer_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gatewayws "github.com/beamlabs/beam/internal/adapter/driven/gateway/ws"
	relayhttp "github.com/beamlabs/beam/internal/adapter/driving/http"
	"github.com/beamlabs/beam/internal/core/service"
	"github.com/beamlabs/beam/internal/peer"
	"github.com/beamlabs/beam/internal/wire"
)

func startRelay(t *testing.T) string {
	t.Helper()

	hub := gatewayws.NewHub()
	rooms := service.NewRooms(hub)
	h := relayhttp.NewHandler(rooms, hub, t.TempDir())

	ts := httptest.NewServer(h.NewRouter())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func connect(t *testing.T, url string) *peer.Client {
	t.Helper()

	c := peer.NewClient(url)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func nextEvent(t *testing.T, c *peer.Client) wire.Message {
	t.Helper()
	select {
	case msg, ok := <-c.Incoming():
		if !ok {
			t.Fatal("signaling channel closed")
		}
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for relay event")
	}
	return wire.Message{}
}

func TestClientNegotiationRoundTrip(t *testing.T) {
	url := startRelay(t)

	broadcaster := connect(t, url)
	viewer := connect(t, url)

	broadcaster.Create("")
	created := nextEvent(t, broadcaster)
	if created.Kind != wire.KindCreated || created.RoomID == "" {
		t.Fatalf("created = %+v", created)
	}
	roomID := created.RoomID

	viewer.Join(roomID)
	joined := nextEvent(t, viewer)
	if joined.Kind != wire.KindJoined || joined.RoomID != roomID {
		t.Fatalf("joined = %+v", joined)
	}

	viewerEvt := nextEvent(t, broadcaster)
	if viewerEvt.Kind != wire.KindViewer || viewerEvt.From == "" {
		t.Fatalf("viewer = %+v", viewerEvt)
	}

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	broadcaster.SendOffer(roomID, viewerEvt.From, offer)

	gotOffer := nextEvent(t, viewer)
	if gotOffer.Kind != wire.KindOffer || string(gotOffer.Payload) != string(offer) {
		t.Fatalf("offer = %+v", gotOffer)
	}

	answer := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)
	viewer.SendAnswer(roomID, gotOffer.From, answer)

	gotAnswer := nextEvent(t, broadcaster)
	if gotAnswer.Kind != wire.KindAnswer || gotAnswer.From != viewerEvt.From {
		t.Fatalf("answer = %+v", gotAnswer)
	}
}

func TestClientStopReachesEveryMember(t *testing.T) {
	url := startRelay(t)

	broadcaster := connect(t, url)
	viewer := connect(t, url)

	broadcaster.Create("live")
	if evt := nextEvent(t, broadcaster); evt.Kind != wire.KindCreated {
		t.Fatalf("created = %+v", evt)
	}

	viewer.Join("live")
	if evt := nextEvent(t, viewer); evt.Kind != wire.KindJoined {
		t.Fatalf("joined = %+v", evt)
	}
	if evt := nextEvent(t, broadcaster); evt.Kind != wire.KindViewer {
		t.Fatalf("viewer = %+v", evt)
	}

	broadcaster.Stop("live")

	if evt := nextEvent(t, broadcaster); evt.Kind != wire.KindStop {
		t.Fatalf("broadcaster stop echo = %+v", evt)
	}
	if evt := nextEvent(t, viewer); evt.Kind != wire.KindStop {
		t.Fatalf("viewer stop = %+v", evt)
	}
}

func TestClientJoinUnavailableRoom(t *testing.T) {
	url := startRelay(t)

	viewer := connect(t, url)
	viewer.Join("nowhere")

	if evt := nextEvent(t, viewer); evt.Kind != wire.KindFull || evt.RoomID != "nowhere" {
		t.Fatalf("event = %+v", evt)
	}
}
