package protocol

import (
	"context"

	"MPC_SPDZ/pkg/party"
)

// Network is the blocking, authenticated point-to-point transport between the parties of a session.
// It carries opaque frames, and must deliver them in order per pair of parties.
//
// There are no timeouts in the protocols: a silent party blocks Receive until ctx is done.
type Network interface {
	// Send delivers data to a single party.
	Send(ctx context.Context, to party.ID, data []byte) error
	// Receive blocks until the next frame from `from` arrives.
	Receive(ctx context.Context, from party.ID) ([]byte, error)
	// SendToAll delivers the same data to every other party.
	SendToAll(ctx context.Context, data []byte) error
	// ReceiveFromAll blocks until one frame from every other party has arrived.
	ReceiveFromAll(ctx context.Context) (map[party.ID][]byte, error)
}
