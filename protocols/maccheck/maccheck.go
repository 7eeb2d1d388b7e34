// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package maccheck verifies, as one batch, the MACs of every value opened since the last check.
//
// The parties toss a joint seed, expand it into one random coefficient per opened value and
// check that the random linear combination of the MACs matches α times the combination of the
// opened values. Each party commits to its share of the difference before any is revealed,
// and the shares must sum to zero.
//
// Over Z_{2^(k+s)} the opened values are masked in their high bits (see package open), so the
// check covers the whole ring there too. It fails to detect a wrong value with probability at
// most 1/p over a prime field, and about 2^-(s-log₂s) over Z_{2^(k+s)}.
package maccheck

import (
	"fmt"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/pkg/share"
	"MPC_SPDZ/protocols/cointoss"
	"MPC_SPDZ/protocols/commit"
)

// Result of a successful MAC check.
type Result struct {
	// Checked is the number of opened values that were verified and removed from the store.
	Checked int
	// Security bounds the probability that a forged value passed the check by 2^-Security.
	Security int
}

// Next receives the result of a successful check.
type Next func(number round.Number, result Result) (round.Session, error)

// Options modify the behaviour of Start.
type Options struct {
	// AllowEmpty makes a check of an empty store succeed immediately.
	// Otherwise, it is a usage error.
	AllowEmpty bool
}

type check struct {
	helper   *round.Helper
	keyShare ring.Element
	store    *share.OpenedValueStore
	// entries is the batch being checked, more may be recorded in the store meanwhile
	entries []share.OpenedEntry
	coeffs  []ring.Element
	next    Next
}

// Start returns the first round of a MAC check of every entry currently in store.
// keyShare is this party's share αᵢ of the MAC key.
// On success the checked entries are removed from the store.
func Start(helper *round.Helper, number round.Number, keyShare ring.Element, store *share.OpenedValueStore, opts Options, next Next) (round.Session, error) {
	if keyShare == nil || store == nil {
		return nil, fmt.Errorf("maccheck: missing key share or store: %w", round.ErrProtocolUsage)
	}
	c := &check{
		helper:   helper,
		keyShare: keyShare,
		store:    store,
		entries:  store.Peek(),
		next:     next,
	}

	if len(c.entries) == 0 {
		if !opts.AllowEmpty {
			return nil, fmt.Errorf("maccheck: no opened values to check: %w", round.ErrProtocolUsage)
		}
		return next(number, Result{})
	}

	return cointoss.Start(helper, number, cointoss.SeedLength, func(number round.Number, seed []byte) (round.Session, error) {
		c.coeffs = ring.Coefficients(helper.Ring(), seed, len(c.entries))
		delta, err := c.delta()
		if err != nil {
			return nil, err
		}
		return commit.Start(helper, number, ring.Encode(delta), c.verify)
	})
}

// delta computes this party's share δᵢ = Σ rⱼ⋅macⱼ - αᵢ⋅Σ rⱼ⋅plainⱼ.
func (c *check) delta() (ring.Element, error) {
	r := c.helper.Ring()
	macs := make([]ring.Element, len(c.entries))
	plains := make([]ring.Element, len(c.entries))
	for j, e := range c.entries {
		macs[j] = e.Value.MAC
		plains[j] = e.Plain
	}
	macCombined, err := ring.InnerProduct(r, c.coeffs, macs)
	if err != nil {
		return nil, err
	}
	y, err := ring.InnerProduct(r, c.coeffs, plains)
	if err != nil {
		return nil, err
	}
	return macCombined.Sub(c.keyShare.Mul(y)), nil
}

// verify sums all revealed delta shares, which must be zero.
func (c *check) verify(number round.Number, payloads [][]byte) (round.Session, error) {
	r := c.helper.Ring()
	sum := r.Zero()
	for i, id := range c.helper.PartyIDs() {
		delta, err := r.Decode(payloads[i])
		if err != nil {
			return c.helper.AbortRound(fmt.Errorf("maccheck: delta share: %v: %w", err, round.ErrCheatingDetected), id), nil
		}
		sum = sum.Add(delta)
	}
	if !sum.IsZero() {
		return c.helper.AbortRound(fmt.Errorf("maccheck: MAC check failed: %w", round.ErrCheatingDetected)), nil
	}

	if err := c.store.Discard(len(c.entries)); err != nil {
		return nil, err
	}
	return c.next(number, Result{Checked: len(c.entries), Security: r.StatisticalSecurity()})
}
