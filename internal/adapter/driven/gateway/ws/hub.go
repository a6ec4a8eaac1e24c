package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/beamlabs/beam/internal/core/domain"
)

var ErrUnknownPeer = errors.New("ws: peer not connected")

// Hub is the directory of connected peers, keyed by the id minted at
// upgrade time. It implements port.Gateway: every relay event is
// addressed to exactly one peer.
type Hub struct {
	mu    sync.RWMutex
	peers map[domain.PeerID]Client
}

func NewHub() *Hub {
	return &Hub{
		peers: make(map[domain.PeerID]Client),
	}
}

func (h *Hub) Register(c Client) {
	h.mu.Lock()
	h.peers[c.ID()] = c
	h.mu.Unlock()
	log.Info().Str("peer_id", c.ID().String()).Msg("Client registered")
}

// Unregister drops the peer only if it is still the registered
// client; a reconnect under the same id is left alone.
func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	if cur, ok := h.peers[c.ID()]; ok && cur == c {
		delete(h.peers, c.ID())
	}
	h.mu.Unlock()
	log.Info().Str("peer_id", c.ID().String()).Msg("Client unregistered")
}

func (h *Hub) Send(ctx context.Context, to domain.PeerID, evt domain.Event) error {
	h.mu.RLock()
	c, ok := h.peers[to]
	h.mu.RUnlock()

	if !ok {
		// The peer may have disconnected between routing and delivery.
		return ErrUnknownPeer
	}
	return c.Send(evt)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Stop closes every registered channel, used on shutdown.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.peers {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Str("peer_id", id.String()).Msg("Error closing client connection")
		}
		delete(h.peers, id)
	}
}
