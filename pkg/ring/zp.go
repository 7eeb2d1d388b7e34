package ring

import (
	"io"
	"math/big"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/mod"
	"go.dedis.ch/kyber/v3/util/random"
)

// Mersenne127 is the prime field of order 2^127 - 1.
var Mersenne127 = NewZp("zp-mersenne127", new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1)))

// Ed25519Order is the prime field of the ed25519 group order, 2^252 + 27742317777372353535851937790883648493.
var Ed25519Order = NewZp("zp-ed25519", func() *big.Int {
	l, _ := new(big.Int).SetString("7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)
	return l
}())

// Zp is a prime field. Arithmetic is delegated to kyber's mod.Int.
type Zp struct {
	name    string
	modulus *big.Int
	byteLen int
}

// NewZp registers and returns the prime field of the given modulus.
// The modulus is assumed to be prime.
func NewZp(name string, modulus *big.Int) *Zp {
	z := &Zp{
		name:    name,
		modulus: new(big.Int).Set(modulus),
		byteLen: (modulus.BitLen() + 7) / 8,
	}
	register(z)
	return z
}

// Modulus returns a copy of the field order.
func (z *Zp) Modulus() *big.Int {
	return new(big.Int).Set(z.modulus)
}

func (z *Zp) Name() string   { return z.name }
func (z *Zp) ByteLen() int   { return z.byteLen }
func (z *Zp) Overflow() bool { return false }

// StatisticalSecurity returns ⌊log₂ p⌋, a check fails to detect with probability 1/p.
func (z *Zp) StatisticalSecurity() int { return z.modulus.BitLen() - 1 }

func (z *Zp) Zero() Element {
	return z.wrap(mod.NewInt64(0, z.modulus))
}

func (z *Zp) One() Element {
	return z.wrap(mod.NewInt64(1, z.modulus))
}

func (z *Zp) FromUint64(v uint64) Element {
	return z.wrap(mod.NewInt(new(big.Int).SetUint64(v), z.modulus))
}

// FromBig reduces v modulo the field order.
func (z *Zp) FromBig(v *big.Int) Element {
	return z.wrap(mod.NewInt(v, z.modulus))
}

func (z *Zp) Sample(rand io.Reader) Element {
	s := mod.NewInt64(0, z.modulus).Pick(random.New(rand))
	return z.wrap(s.(*mod.Int))
}

func (z *Zp) SampleCoefficient(rand io.Reader) Element {
	return z.Sample(rand)
}

func (z *Zp) Decode(data []byte) (Element, error) {
	if len(data) != z.byteLen {
		return nil, ErrWrongLength
	}
	v := new(big.Int).SetBytes(data)
	if v.Cmp(z.modulus) >= 0 {
		return nil, ErrOutOfRange
	}
	return z.wrap(mod.NewInt(v, z.modulus)), nil
}

func (z *Zp) wrap(v *mod.Int) Element {
	return zpElement{field: z, v: v}
}

type zpElement struct {
	field *Zp
	v     *mod.Int
}

func (a zpElement) result() *mod.Int {
	return mod.NewInt64(0, a.field.modulus)
}

func (a zpElement) apply(f func(out *mod.Int) kyber.Scalar) Element {
	return a.field.wrap(f(a.result()).(*mod.Int))
}

func (a zpElement) Add(other Element) Element {
	b := other.(zpElement)
	return a.apply(func(out *mod.Int) kyber.Scalar { return out.Add(a.v, b.v) })
}

func (a zpElement) Sub(other Element) Element {
	b := other.(zpElement)
	return a.apply(func(out *mod.Int) kyber.Scalar { return out.Sub(a.v, b.v) })
}

func (a zpElement) Mul(other Element) Element {
	b := other.(zpElement)
	return a.apply(func(out *mod.Int) kyber.Scalar { return out.Mul(a.v, b.v) })
}

func (a zpElement) Neg() Element {
	return a.apply(func(out *mod.Int) kyber.Scalar { return out.Neg(a.v) })
}

func (a zpElement) IsZero() bool {
	return a.v.V.Sign() == 0
}

func (a zpElement) Equal(other Element) bool {
	b, ok := other.(zpElement)
	return ok && a.field == b.field && a.v.Equal(b.v)
}

// MarshalBinary returns the big-endian value padded to the field's byte length.
func (a zpElement) MarshalBinary() ([]byte, error) {
	out := make([]byte, a.field.byteLen)
	a.v.V.FillBytes(out)
	return out, nil
}

func (a zpElement) String() string {
	return a.v.V.String()
}
