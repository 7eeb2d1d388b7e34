// Package share holds additively shared, MAC-authenticated values and the
// bookkeeping of values that were opened but not yet checked.
//
// Over all n parties, Σ Share = x and Σ MAC = α⋅x, where α = Σ αᵢ is the global
// MAC key. No party learns x or α from its own shares.
package share

import (
	"fmt"

	"MPC_SPDZ/pkg/ring"
)

// Error is returned for misuse of shares and stores.
type Error string

const (
	ErrPendingOpened  Error = "opened values are pending a MAC check"
	ErrLengthMismatch Error = "values and plain values have different lengths"
	ErrDiscardTooMany Error = "cannot discard more entries than recorded"
)

func (e Error) Error() string {
	return fmt.Sprintf("share: %s", string(e))
}

// AuthenticatedValue is one party's share of x together with its share of α⋅x.
type AuthenticatedValue struct {
	Share ring.Element
	MAC   ring.Element
}

// Add returns the sharing of x + y.
func (a AuthenticatedValue) Add(b AuthenticatedValue) AuthenticatedValue {
	return AuthenticatedValue{Share: a.Share.Add(b.Share), MAC: a.MAC.Add(b.MAC)}
}

// Sub returns the sharing of x - y.
func (a AuthenticatedValue) Sub(b AuthenticatedValue) AuthenticatedValue {
	return AuthenticatedValue{Share: a.Share.Sub(b.Share), MAC: a.MAC.Sub(b.MAC)}
}

// MulPublic returns the sharing of c⋅x.
func (a AuthenticatedValue) MulPublic(c ring.Element) AuthenticatedValue {
	return AuthenticatedValue{Share: a.Share.Mul(c), MAC: a.MAC.Mul(c)}
}

// AddPublic returns the sharing of x + c. Exactly one party (first) adds c to its
// share; every party adds αᵢ⋅c to its MAC share.
func (a AuthenticatedValue) AddPublic(c ring.Element, first bool, keyShare ring.Element) AuthenticatedValue {
	out := AuthenticatedValue{Share: a.Share, MAC: a.MAC.Add(keyShare.Mul(c))}
	if first {
		out.Share = out.Share.Add(c)
	}
	return out
}

// Masked returns the sharing of x + 2ᵏ⋅ρ, where mask is a sharing of ρ. The low k bits of the
// shared value are unchanged. Only defined over overflow rings.
func (a AuthenticatedValue) Masked(mask AuthenticatedValue) AuthenticatedValue {
	return AuthenticatedValue{
		Share: a.Share.Add(mask.Share.(ring.OverflowElement).ShiftLowIntoHigh()),
		MAC:   a.MAC.Add(mask.MAC.(ring.OverflowElement).ShiftLowIntoHigh()),
	}
}
