// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package protocols

import (
	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/protocol"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/pkg/share"
	"MPC_SPDZ/protocols/broadcast"
	"MPC_SPDZ/protocols/cointoss"
	"MPC_SPDZ/protocols/commit"
	"MPC_SPDZ/protocols/config"
	"MPC_SPDZ/protocols/maccheck"
	"MPC_SPDZ/protocols/open"
)

// Config is the context of a party. It contains its MAC key share, which must be kept secret.
type Config = config.Config

// OpenResult is the result of OpenAndCheck.
type OpenResult struct {
	// Opened values, in the order they were given.
	Opened []ring.Element
	// Checked is the number of values the MAC check verified, including values opened earlier.
	Checked int
}

// Broadcast sends payload to all parties and checks that everybody received the same payloads.
// Returns [][]byte, the payloads of all parties ordered by party ID.
func Broadcast(c *Config, payload []byte) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		helper, err := c.NewSession("spdz/broadcast", sessionID)
		if err != nil {
			return nil, err
		}
		return broadcast.Start(helper, 1, payload, func(_ round.Number, payloads [][]byte) (round.Session, error) {
			return helper.ResultRound(payloads), nil
		})
	}
}

// CommitmentComputation publishes the payloads of all parties, each fixed before any other was seen.
// Returns [][]byte, the payloads of all parties ordered by party ID.
func CommitmentComputation(c *Config, payload []byte) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		helper, err := c.NewSession("spdz/commit", sessionID)
		if err != nil {
			return nil, err
		}
		return commit.Start(helper, 1, payload, func(_ round.Number, payloads [][]byte) (round.Session, error) {
			return helper.ResultRound(payloads), nil
		})
	}
}

// CoinTossing generates a joint random seed of `length` bytes.
// Returns []byte.
func CoinTossing(c *Config, length int) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		helper, err := c.NewSession("spdz/cointoss", sessionID)
		if err != nil {
			return nil, err
		}
		return cointoss.Start(helper, 1, length, func(_ round.Number, seed []byte) (round.Session, error) {
			return helper.ResultRound(seed), nil
		})
	}
}

// Open reveals values and records them in store, where they wait for a MAC check.
// Over an overflow ring every value consumes one entry of masks, which must not be reused.
// Returns []ring.Element.
func Open(c *Config, values, masks []share.AuthenticatedValue, store *share.OpenedValueStore) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		helper, err := c.NewSession("spdz/open", sessionID)
		if err != nil {
			return nil, err
		}
		return open.Start(helper, 1, values, masks, store, func(_ round.Number, opened []ring.Element) (round.Session, error) {
			return helper.ResultRound(opened), nil
		})
	}
}

// MacCheck verifies every value opened into store since the last check, and removes them from it.
// It must run before any value derived from an opened value leaves the computation.
// Returns maccheck.Result.
func MacCheck(c *Config, store *share.OpenedValueStore, opts maccheck.Options) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		helper, err := c.NewSession("spdz/maccheck", sessionID)
		if err != nil {
			return nil, err
		}
		return maccheck.Start(helper, 1, c.KeyShare, store, opts, func(_ round.Number, r maccheck.Result) (round.Session, error) {
			return helper.ResultRound(r), nil
		})
	}
}

// OpenAndCheck opens values and then runs a MAC check on everything in store.
// Returns *OpenResult.
func OpenAndCheck(c *Config, values, masks []share.AuthenticatedValue, store *share.OpenedValueStore) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		helper, err := c.NewSession("spdz/open-check", sessionID)
		if err != nil {
			return nil, err
		}
		return open.Start(helper, 1, values, masks, store, func(number round.Number, opened []ring.Element) (round.Session, error) {
			return maccheck.Start(helper, number, c.KeyShare, store, maccheck.Options{}, func(_ round.Number, r maccheck.Result) (round.Session, error) {
				return helper.ResultRound(&OpenResult{Opened: opened, Checked: r.Checked}), nil
			})
		})
	}
}
