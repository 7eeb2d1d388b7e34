// Package open reveals a batch of authenticated values.
//
// Opening is not verified: a party may send a wrong share. Every opened value is therefore
// recorded in the store, and must pass a MAC check before anything derived from it is trusted.
package open

import (
	"fmt"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/pkg/share"
	"MPC_SPDZ/protocols/broadcast"

	"github.com/fxamacker/cbor/v2"
)

// Next receives the opened values, in the order they were given to Start.
type Next func(number round.Number, opened []ring.Element) (round.Session, error)

// Start returns the first round of opening values. The opened values are recorded in store
// before next is called.
//
// In an overflow ring each value consumes one mask, a sharing of a random ρ. The parties open
// x + 2ᵏ⋅ρ in the whole ring, so the high bits of x stay hidden and the store can be checked
// over all k+s bits. The store records the masked sharing and the full opened value, next
// receives the low k bits. masks are ignored over fields.
func Start(helper *round.Helper, number round.Number, values, masks []share.AuthenticatedValue, store *share.OpenedValueStore, next Next) (round.Session, error) {
	r := helper.Ring()
	if r.Overflow() {
		if len(masks) != len(values) {
			return nil, fmt.Errorf("open: %d masks for %d values: %w", len(masks), len(values), round.ErrProtocolUsage)
		}
		masked := make([]share.AuthenticatedValue, len(values))
		for i, v := range values {
			masked[i] = v.Masked(masks[i])
		}
		values = masked
	}

	shares := make([]ring.Element, len(values))
	for i, v := range values {
		shares[i] = v.Share
	}
	payload, err := cbor.Marshal(ring.EncodeAll(shares))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	return broadcast.StartInsecure(helper, number, payload, func(number round.Number, payloads [][]byte) (round.Session, error) {
		plains := make([]ring.Element, len(values))
		for j := range plains {
			plains[j] = r.Zero()
		}
		for i, id := range helper.PartyIDs() {
			var encoded [][]byte
			if err := cbor.Unmarshal(payloads[i], &encoded); err != nil {
				return helper.AbortRound(fmt.Errorf("open: malformed shares: %v: %w", err, round.ErrCheatingDetected), id), nil
			}
			received, err := ring.DecodeAll(r, encoded)
			if err != nil {
				return helper.AbortRound(fmt.Errorf("open: %v: %w", err, round.ErrCheatingDetected), id), nil
			}
			if len(received) != len(values) {
				return helper.AbortRound(fmt.Errorf("open: got %d shares, expected %d: %w", len(received), len(values), round.ErrCheatingDetected), id), nil
			}
			for j, s := range received {
				plains[j] = plains[j].Add(s)
			}
		}

		if err := store.RecordAll(values, plains); err != nil {
			return nil, err
		}

		opened := plains
		if r.Overflow() {
			opened = make([]ring.Element, len(plains))
			for j, p := range plains {
				opened[j] = p.(ring.OverflowElement).Low()
			}
		}
		return next(number, opened)
	})
}
