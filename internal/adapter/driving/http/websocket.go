package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/beamlabs/beam/internal/core/domain"
	"github.com/beamlabs/beam/internal/wire"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 64 KB covers SDP bodies.
	maxMessageSize = 64 * 1024

	// Outbound buffer per peer. The write pump drains it in order, so
	// delivery order per recipient is preserved.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// TODO: restrict to the deployed front-end origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

var (
	errSendBufferFull = errors.New("http: peer send buffer full")
	errPeerGone       = errors.New("http: peer channel closed")
)

// WSClient wraps one peer's websocket connection. It is the channel
// abstraction the router addresses by peer id.
type WSClient struct {
	id   domain.PeerID
	conn *websocket.Conn
	send chan wire.Message
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func (c *WSClient) ID() domain.PeerID {
	return c.id
}

// Send queues an event for the write pump. It never blocks the
// router: a peer that cannot drain its buffer loses the event and
// will be torn down by its own keepalive.
func (c *WSClient) Send(evt domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errPeerGone
	}
	select {
	case c.send <- eventMessage(evt):
		return nil
	default:
		return errSendBufferFull
	}
}

// shutdown stops the write pump exactly once; Send refuses queueing
// from then on.
func (c *WSClient) shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

func (c *WSClient) Close() error {
	return c.conn.Close()
}

func eventMessage(evt domain.Event) wire.Message {
	return wire.Message{
		Kind:    wire.Kind(evt.Kind),
		RoomID:  evt.RoomID.String(),
		From:    evt.From.String(),
		Payload: evt.Payload,
		Code:    evt.Code,
		Reason:  evt.Reason,
	}
}

// ServeWS upgrades the connection, assigns the peer its id and runs
// the read loop until the channel dies.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := &WSClient{
		id:   domain.NewPeerID(),
		conn: conn,
		send: make(chan wire.Message, sendBuffer),
	}
	client.log = log.With().Str("peer_id", client.id.String()).Logger()
	client.log.Info().Msg("New client connected")

	h.Hub.Register(client)
	go client.writePump()

	defer func() {
		client.log.Info().Msg("Client disconnected")
		h.Hub.Unregister(client)
		h.Rooms.Disconnect(r.Context(), client.id)
		client.shutdown()
		conn.Close()
	}()

	client.readPump(r.Context(), h)
}

// readPump delivers each inbound message to the router, one at a
// time in arrival order. Malformed messages are dropped here and
// never reach a mutation path.
func (c *WSClient) readPump(ctx context.Context, h *Handler) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Error().Err(err).Msg("Unexpected close error")
			}
			return
		}

		msg, err := wire.Parse(data)
		if err != nil {
			c.log.Debug().Err(err).Msg("Dropping malformed message")
			continue
		}

		switch msg.Kind {
		case wire.KindCreate:
			h.Rooms.Create(ctx, c.id, domain.RoomID(msg.RoomID))
		case wire.KindJoin:
			h.Rooms.Join(ctx, c.id, domain.RoomID(msg.RoomID))
		case wire.KindOffer, wire.KindAnswer, wire.KindCandidate:
			h.Rooms.Forward(ctx, c.id, domain.SignalKind(msg.Kind), domain.RoomID(msg.RoomID), domain.PeerID(msg.To), msg.Payload)
		case wire.KindStop:
			h.Rooms.Stop(ctx, c.id, domain.RoomID(msg.RoomID))
		case wire.KindExit:
			h.Rooms.Exit(ctx, c.id, domain.RoomID(msg.RoomID))
		}
	}
}

// writePump owns all writes to the connection: queued events in
// arrival order, plus keepalive pings.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Error().Err(err).Msg("Error writing message")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
