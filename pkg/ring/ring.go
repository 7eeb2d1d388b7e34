// Package ring defines the algebraic structures shares live in.
//
// Two structures are provided: a prime field (Zp) and the ring Z_{2^{k+s}} (Z2k),
// where only the low k bits carry the computation and the high s bits absorb the
// MAC overflow. Code above this package works on Element and selects the
// overflow-specific steps once, from Ring.Overflow.
package ring

import (
	"encoding"
	"fmt"
	"io"
	"sort"

	"MPC_SPDZ/pkg/hash"
)

// Error is returned for malformed encodings and mismatched operands.
type Error string

const (
	ErrWrongLength    Error = "encoding has the wrong length"
	ErrOutOfRange     Error = "encoded value is not reduced"
	ErrLengthMismatch Error = "vectors have different lengths"
	ErrUnknownRing    Error = "unknown ring"
)

func (e Error) Error() string {
	return fmt.Sprintf("ring: %s", string(e))
}

// Element is an immutable value of a Ring. Operands must come from the same Ring.
type Element interface {
	encoding.BinaryMarshaler
	fmt.Stringer

	Add(Element) Element
	Sub(Element) Element
	Mul(Element) Element
	Neg() Element
	IsZero() bool
	Equal(Element) bool
}

// OverflowElement is implemented by elements of rings whose MACs are computed over
// a larger modulus than the values they authenticate.
type OverflowElement interface {
	Element

	// Low returns the element reduced to its low k bits.
	Low() Element
	// High returns the high s bits, as an element in [0, 2^s).
	High() Element
	// ShiftLowIntoHigh returns the low s bits moved into the high part, i.e. x⋅2^k.
	ShiftLowIntoHigh() Element
}

// Ring is the strategy value describing the configured algebraic structure.
type Ring interface {
	// Name uniquely identifies the structure, and is bound into every session id.
	Name() string
	Zero() Element
	One() Element
	FromUint64(v uint64) Element
	// Sample returns a uniform element.
	Sample(rand io.Reader) Element
	// SampleCoefficient returns a uniform MAC-check coefficient: a field element, or
	// an element of [0, 2^s) for overflow rings.
	SampleCoefficient(rand io.Reader) Element
	// ByteLen is the fixed length of MarshalBinary.
	ByteLen() int
	Decode(data []byte) (Element, error)
	// Overflow reports whether elements implement OverflowElement, and openings must mask
	// the high bits of the shares.
	Overflow() bool
	// StatisticalSecurity is the number of bits of soundness of one MAC check: a
	// forged opening passes with probability about 2^-StatisticalSecurity.
	StatisticalSecurity() int
}

// Sum returns Σ xs.
func Sum(r Ring, xs []Element) Element {
	acc := r.Zero()
	for _, x := range xs {
		acc = acc.Add(x)
	}
	return acc
}

// InnerProduct returns Σ xs[i]⋅ys[i].
func InnerProduct(r Ring, xs, ys []Element) (Element, error) {
	if len(xs) != len(ys) {
		return nil, ErrLengthMismatch
	}
	acc := r.Zero()
	for i := range xs {
		acc = acc.Add(xs[i].Mul(ys[i]))
	}
	return acc, nil
}

// Coefficients deterministically expands seed into t coefficients.
// Every party calling it with the same seed obtains the same elements.
func Coefficients(r Ring, seed []byte, t int) []Element {
	h := hash.New(
		hash.BytesWithDomain{TheDomain: "Coefficient Ring", Bytes: []byte(r.Name())},
		hash.BytesWithDomain{TheDomain: "Coefficient Seed", Bytes: seed},
	)
	stream := h.Digest()
	out := make([]Element, t)
	for i := range out {
		out[i] = r.SampleCoefficient(stream)
	}
	return out
}

// Encode returns the fixed-width encoding of e.
func Encode(e Element) []byte {
	data, err := e.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("ring: failed to encode element: %v", err))
	}
	return data
}

// EncodeAll encodes every element of xs.
func EncodeAll(xs []Element) [][]byte {
	out := make([][]byte, len(xs))
	for i, x := range xs {
		out[i] = Encode(x)
	}
	return out
}

// DecodeAll decodes every entry of data.
func DecodeAll(r Ring, data [][]byte) ([]Element, error) {
	out := make([]Element, len(data))
	for i, d := range data {
		e, err := r.Decode(d)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = e
	}
	return out, nil
}

var registry = map[string]Ring{}

func register(r Ring) Ring {
	registry[r.Name()] = r
	return r
}

// ByName returns a registered ring.
func ByName(name string) (Ring, error) {
	r, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRing, name)
	}
	return r, nil
}

// Names lists the registered rings.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
