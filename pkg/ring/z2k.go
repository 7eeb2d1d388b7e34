package ring

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"MPC_SPDZ/pkg/math/sample"
)

const (
	// K is the number of bits carrying the computation in Z2k.
	K = 64
	// S is the statistical security parameter of Z2k, the number of overflow bits.
	S = 64
)

// Z2k is the ring Z_{2^{K+S}}.
var Z2k Ring = register(z2k{})

type z2k struct{}

// uint128 is hi⋅2^64 + lo, reduced modulo 2^128.
type uint128 struct {
	hi, lo uint64
}

func (z2k) Name() string                { return "z2k-64-64" }
func (z2k) Zero() Element               { return uint128{} }
func (z2k) One() Element                { return uint128{lo: 1} }
func (z2k) FromUint64(v uint64) Element { return uint128{lo: v} }
func (z2k) ByteLen() int                { return (K + S) / 8 }
func (z2k) Overflow() bool              { return true }

// StatisticalSecurity loses log₂(s) bits against errors hidden by powers of two.
func (z2k) StatisticalSecurity() int { return S - bits.Len(S) }

func (z2k) SampleCoefficient(rand io.Reader) Element {
	return uint128{lo: sample.Uint64(rand)}
}

func (z2k) Sample(rand io.Reader) Element {
	return uint128{hi: sample.Uint64(rand), lo: sample.Uint64(rand)}
}

func (z z2k) Decode(data []byte) (Element, error) {
	if len(data) != z.ByteLen() {
		return nil, ErrWrongLength
	}
	return uint128{
		hi: binary.BigEndian.Uint64(data[:8]),
		lo: binary.BigEndian.Uint64(data[8:]),
	}, nil
}

// NewUint128 returns the Z2k element hi⋅2^64 + lo.
func NewUint128(hi, lo uint64) Element {
	return uint128{hi: hi, lo: lo}
}

func (a uint128) Add(other Element) Element {
	b := other.(uint128)
	lo, carry := bits.Add64(a.lo, b.lo, 0)
	hi, _ := bits.Add64(a.hi, b.hi, carry)
	return uint128{hi: hi, lo: lo}
}

func (a uint128) Sub(other Element) Element {
	b := other.(uint128)
	lo, borrow := bits.Sub64(a.lo, b.lo, 0)
	hi, _ := bits.Sub64(a.hi, b.hi, borrow)
	return uint128{hi: hi, lo: lo}
}

func (a uint128) Mul(other Element) Element {
	b := other.(uint128)
	hi, lo := bits.Mul64(a.lo, b.lo)
	hi += a.hi*b.lo + a.lo*b.hi
	return uint128{hi: hi, lo: lo}
}

func (a uint128) Neg() Element {
	return uint128{}.Sub(a)
}

func (a uint128) IsZero() bool {
	return a.hi == 0 && a.lo == 0
}

func (a uint128) Equal(other Element) bool {
	b, ok := other.(uint128)
	return ok && a == b
}

func (a uint128) Low() Element {
	return uint128{lo: a.lo}
}

func (a uint128) High() Element {
	return uint128{lo: a.hi}
}

func (a uint128) ShiftLowIntoHigh() Element {
	return uint128{hi: a.lo}
}

func (a uint128) MarshalBinary() ([]byte, error) {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[:8], a.hi)
	binary.BigEndian.PutUint64(out[8:], a.lo)
	return out, nil
}

func (a uint128) String() string {
	if a.hi == 0 {
		return fmt.Sprintf("%d", a.lo)
	}
	return fmt.Sprintf("0x%016x%016x", a.hi, a.lo)
}
