// Package commit lets every party publish a payload that was fixed before any other payload was seen.
//
// All parties broadcast a commitment to their payload. Only once every commitment is
// validated do they broadcast the openings, which are checked against the commitments.
// A party whose opening does not match its commitment is identified.
package commit

import (
	"fmt"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/hash"
	"MPC_SPDZ/protocols/broadcast"

	"github.com/fxamacker/cbor/v2"
)

// Next receives the opened payloads of all parties, ordered by party ID.
type Next = broadcast.Next

type opening struct {
	Payload      []byte
	Decommitment hash.Decommitment
}

// Start returns the first round of a commitment computation over payload.
func Start(helper *round.Helper, number round.Number, payload []byte, next Next) (round.Session, error) {
	commitment, decommitment, err := helper.HashForID(helper.SelfID()).CommitFrom(helper.Rand(), payload)
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	ownOpening, err := cbor.Marshal(&opening{Payload: payload, Decommitment: decommitment})
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return run(helper, number, commitment, ownOpening, next)
}

// run broadcasts commitment, then ownOpening, and checks the openings of all other parties.
func run(helper *round.Helper, number round.Number, commitment hash.Commitment, ownOpening []byte, next Next) (round.Session, error) {
	return broadcast.Start(helper, number, commitment, func(number round.Number, commitments [][]byte) (round.Session, error) {
		for i, id := range helper.PartyIDs() {
			if err := hash.Commitment(commitments[i]).Validate(); err != nil {
				return helper.AbortRound(fmt.Errorf("commit: %v: %w", err, round.ErrCheatingDetected), id), nil
			}
		}

		// every commitment is fixed now, so the openings can be sent
		return broadcast.Start(helper, number, ownOpening, func(number round.Number, openings [][]byte) (round.Session, error) {
			payloads := make([][]byte, len(openings))
			for i, id := range helper.PartyIDs() {
				var o opening
				if err := cbor.Unmarshal(openings[i], &o); err != nil {
					return helper.AbortRound(fmt.Errorf("commit: malformed opening: %v: %w", err, round.ErrCheatingDetected), id), nil
				}
				if !helper.HashForID(id).Decommit(commitments[i], o.Decommitment, o.Payload) {
					return helper.AbortRound(fmt.Errorf("commit: opening does not match commitment: %w", round.ErrCheatingDetected), id), nil
				}
				payloads[i] = o.Payload
			}
			return next(number, payloads)
		})
	})
}
