package port

import (
	"context"

	"github.com/beamlabs/beam/internal/core/domain"
)

// Gateway delivers events to a single connected peer. Delivery is
// fire-and-forget: a dead peer is only ever surfaced later through its
// own disconnect.
type Gateway interface {
	Send(ctx context.Context, to domain.PeerID, evt domain.Event) error
}
