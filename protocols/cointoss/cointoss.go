// Package cointoss produces a joint random seed, uniform as long as one party is honest.
package cointoss

import (
	"fmt"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/math/sample"
	"MPC_SPDZ/protocols/commit"
)

// SeedLength is the length of the seed used to expand MAC check coefficients.
const SeedLength = 32

// Next receives the joint seed.
type Next func(number round.Number, seed []byte) (round.Session, error)

// Start returns the first round of a coin toss for a seed of `length` bytes.
//
// Each party commits to a locally sampled seed, and the joint seed is the XOR of all opened seeds.
// Since every seed is fixed before any is revealed, no party can bias the result.
func Start(helper *round.Helper, number round.Number, length int, next Next) (round.Session, error) {
	if length <= 0 {
		return nil, fmt.Errorf("cointoss: invalid seed length %d: %w", length, round.ErrProtocolUsage)
	}
	return start(helper, number, sample.Bytes(helper.Rand(), length), next)
}

func start(helper *round.Helper, number round.Number, seed []byte, next Next) (round.Session, error) {
	length := len(seed)
	return commit.Start(helper, number, seed, func(number round.Number, seeds [][]byte) (round.Session, error) {
		joint := make([]byte, length)
		for i, id := range helper.PartyIDs() {
			if len(seeds[i]) != length {
				return helper.AbortRound(fmt.Errorf("cointoss: seed of length %d: %w", len(seeds[i]), round.ErrCheatingDetected), id), nil
			}
			sample.XOR(joint, seeds[i])
		}
		return next(number, joint)
	})
}
