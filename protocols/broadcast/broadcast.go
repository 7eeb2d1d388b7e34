// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package broadcast emulates a broadcast channel over pairwise connections.
//
// Every party sends its payload to all others, then all parties exchange a digest of
// the list they received. If a sender equivocated, the digests differ and every honest
// party aborts. The sender cannot always be identified: a party reporting a different
// digest may be the liar itself.
package broadcast

import (
	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/hash"
)

// Next receives the payloads of all parties, ordered by party ID, and returns the round to continue with.
// number is the number of the round that produced the payloads.
type Next func(number round.Number, payloads [][]byte) (round.Session, error)

// Start returns the first round of a validated broadcast of payload.
// Validation is skipped with two parties, unless the session requires the echo.
func Start(helper *round.Helper, number round.Number, payload []byte, next Next) (round.Session, error) {
	return StartInsecure(helper, number, payload, func(number round.Number, payloads [][]byte) (round.Session, error) {
		return Validate(helper, number, payloads, next)
	})
}

// digest is the value parties echo to each other.
func digest(helper *round.Helper, payloads [][]byte) []byte {
	h := helper.Hash()
	for i, id := range helper.PartyIDs() {
		_ = h.WriteAny(id, &hash.BytesWithDomain{
			TheDomain: "Broadcast Payload",
			Bytes:     payloads[i],
		})
	}
	return h.Sum()
}
