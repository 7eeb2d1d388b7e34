package share

import (
	"crypto/rand"
	"fmt"
	"io"

	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/ring"
)

// Dealer produces authenticated sharings of known values for all parties.
// It knows every key share, so it stands in for the preprocessing phase in tests
// and demos only.
type Dealer struct {
	ring      ring.Ring
	parties   party.IDSlice
	keyShares map[party.ID]ring.Element
	alpha     ring.Element
	rand      io.Reader
}

// NewDealer returns a dealer for the given key shares. A nil source uses crypto/rand.
func NewDealer(r ring.Ring, keyShares map[party.ID]ring.Element, source io.Reader) (*Dealer, error) {
	ids := make([]party.ID, 0, len(keyShares))
	for id := range keyShares {
		ids = append(ids, id)
	}
	parties := party.NewIDSlice(ids)
	if err := parties.Valid(); err != nil {
		return nil, fmt.Errorf("dealer: %w", err)
	}
	if source == nil {
		source = rand.Reader
	}
	alpha := r.Zero()
	for _, id := range parties {
		alpha = alpha.Add(keyShares[id])
	}
	return &Dealer{ring: r, parties: parties, keyShares: keyShares, alpha: alpha, rand: source}, nil
}

// Alpha returns the global MAC key α = Σ αᵢ.
func (d *Dealer) Alpha() ring.Element {
	return d.alpha
}

// Share returns an authenticated sharing of x.
//
// In an overflow ring, x is reduced to its low k bits and the shared value gets
// random high bits, as it would after arithmetic in the larger ring.
func (d *Dealer) Share(x ring.Element) map[party.ID]AuthenticatedValue {
	if d.ring.Overflow() {
		noise := d.ring.SampleCoefficient(d.rand).(ring.OverflowElement)
		x = x.(ring.OverflowElement).Low().Add(noise.ShiftLowIntoHigh())
	}
	return d.authenticate(x)
}

// ShareAll shares every value in xs, and groups the result per party.
func (d *Dealer) ShareAll(xs []ring.Element) map[party.ID][]AuthenticatedValue {
	out := make(map[party.ID][]AuthenticatedValue, len(d.parties))
	for _, x := range xs {
		for id, v := range d.Share(x) {
			out[id] = append(out[id], v)
		}
	}
	return out
}

// Masks returns t authenticated sharings of uniform random values, grouped per party.
// Over an overflow ring every opening consumes one of them, see open.Start.
func (d *Dealer) Masks(t int) map[party.ID][]AuthenticatedValue {
	out := make(map[party.ID][]AuthenticatedValue, len(d.parties))
	for j := 0; j < t; j++ {
		for id, v := range d.authenticate(d.ring.Sample(d.rand)) {
			out[id] = append(out[id], v)
		}
	}
	return out
}

func (d *Dealer) authenticate(x ring.Element) map[party.ID]AuthenticatedValue {
	shares := d.split(x)
	macs := d.split(d.alpha.Mul(x))

	out := make(map[party.ID]AuthenticatedValue, len(d.parties))
	for i, id := range d.parties {
		out[id] = AuthenticatedValue{Share: shares[i], MAC: macs[i]}
	}
	return out
}

func (d *Dealer) split(x ring.Element) []ring.Element {
	out := make([]ring.Element, len(d.parties))
	acc := d.ring.Zero()
	for i := 1; i < len(out); i++ {
		out[i] = d.ring.Sample(d.rand)
		acc = acc.Add(out[i])
	}
	out[0] = x.Sub(acc)
	return out
}
