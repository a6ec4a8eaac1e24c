package ws

import "github.com/beamlabs/beam/internal/core/domain"

type Client interface {
	ID() domain.PeerID
	Send(evt domain.Event) error
	Close() error
}
