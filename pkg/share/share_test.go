package share_test

import (
	"crypto/rand"
	"testing"

	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/pkg/share"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rings = []ring.Ring{ring.Z2k, ring.Mersenne127}

func newDealer(t *testing.T, r ring.Ring, n int) (*share.Dealer, map[party.ID]ring.Element) {
	keys := make(map[party.ID]ring.Element, n)
	for _, id := range party.Sequential(n) {
		keys[id] = share.NewKeyShare(r, rand.Reader)
	}
	d, err := share.NewDealer(r, keys, rand.Reader)
	require.NoError(t, err)
	return d, keys
}

func reconstruct(r ring.Ring, shares map[party.ID]share.AuthenticatedValue) (x, mac ring.Element) {
	x, mac = r.Zero(), r.Zero()
	for _, v := range shares {
		x = x.Add(v.Share)
		mac = mac.Add(v.MAC)
	}
	return
}

// in an overflow ring only the low k bits of a shared value are meaningful
func low(r ring.Ring, x ring.Element) ring.Element {
	if r.Overflow() {
		return x.(ring.OverflowElement).Low()
	}
	return x
}

func TestDealerShare(t *testing.T) {
	for _, r := range rings {
		t.Run(r.Name(), func(t *testing.T) {
			d, _ := newDealer(t, r, 3)
			shares := d.Share(r.FromUint64(42))
			require.Len(t, shares, 3)
			x, mac := reconstruct(r, shares)
			assert.True(t, low(r, x).Equal(r.FromUint64(42)))
			assert.True(t, mac.Equal(d.Alpha().Mul(x)))
		})
	}
}

func TestLinearOperations(t *testing.T) {
	for _, r := range rings {
		t.Run(r.Name(), func(t *testing.T) {
			d, keys := newDealer(t, r, 3)
			a, b := d.Share(r.FromUint64(10)), d.Share(r.FromUint64(3))
			c := r.FromUint64(7)

			sum, diff, scaled, shifted := map[party.ID]share.AuthenticatedValue{}, map[party.ID]share.AuthenticatedValue{}, map[party.ID]share.AuthenticatedValue{}, map[party.ID]share.AuthenticatedValue{}
			for _, id := range party.Sequential(3) {
				sum[id] = a[id].Add(b[id])
				diff[id] = a[id].Sub(b[id])
				scaled[id] = a[id].MulPublic(c)
				shifted[id] = a[id].AddPublic(c, id == 1, keys[id])
			}

			for name, tc := range map[string]struct {
				shares   map[party.ID]share.AuthenticatedValue
				expected uint64
			}{
				"add":        {sum, 13},
				"sub":        {diff, 7},
				"mul public": {scaled, 70},
				"add public": {shifted, 17},
			} {
				x, mac := reconstruct(r, tc.shares)
				assert.True(t, low(r, x).Equal(r.FromUint64(tc.expected)), name)
				assert.True(t, mac.Equal(d.Alpha().Mul(x)), name)
			}
		})
	}
}

func TestMasked(t *testing.T) {
	r := ring.Z2k
	d, _ := newDealer(t, r, 3)
	x := d.Share(r.FromUint64(42))
	masks := d.Masks(2)
	require.Len(t, masks, 3)

	masked := map[party.ID]share.AuthenticatedValue{}
	rho := map[party.ID]share.AuthenticatedValue{}
	for id, m := range masks {
		require.Len(t, m, 2)
		masked[id] = x[id].Masked(m[0])
		rho[id] = m[0]
	}

	plain, mac := reconstruct(r, masked)
	assert.True(t, low(r, plain).Equal(r.FromUint64(42)))
	assert.True(t, mac.Equal(d.Alpha().Mul(plain)))

	original, _ := reconstruct(r, x)
	mask, maskMAC := reconstruct(r, rho)
	assert.True(t, maskMAC.Equal(d.Alpha().Mul(mask)))
	assert.True(t, plain.Sub(original).Equal(mask.(ring.OverflowElement).ShiftLowIntoHigh()))
}

func TestStore(t *testing.T) {
	r := ring.Z2k
	s := share.NewOpenedValueStore()
	assert.True(t, s.Empty())
	assert.NoError(t, s.Close())

	v := share.AuthenticatedValue{Share: r.One(), MAC: r.One()}
	s.Record(v, r.FromUint64(1))
	require.NoError(t, s.RecordAll([]share.AuthenticatedValue{v, v}, []ring.Element{r.FromUint64(2), r.FromUint64(3)}))
	assert.ErrorIs(t, s.RecordAll([]share.AuthenticatedValue{v}, nil), share.ErrLengthMismatch)
	assert.Equal(t, 3, s.Size())

	peeked := s.Peek()
	require.Len(t, peeked, 3)
	assert.Equal(t, 3, s.Size(), "peek must not clear")
	assert.ErrorIs(t, s.Close(), share.ErrPendingOpened)

	require.NoError(t, s.Discard(2))
	require.Equal(t, 1, s.Size())
	assert.True(t, s.Peek()[0].Plain.Equal(r.FromUint64(3)))
	assert.ErrorIs(t, s.Discard(2), share.ErrDiscardTooMany)

	s.Clear()
	assert.True(t, s.Empty())
	assert.NoError(t, s.Close())
}

func TestKeyShareFromMnemonic(t *testing.T) {
	mnemonic, err := share.NewMnemonic()
	require.NoError(t, err)

	for _, r := range rings {
		a, err := share.KeyShareFromMnemonic(r, mnemonic, "")
		require.NoError(t, err)
		b, err := share.KeyShareFromMnemonic(r, mnemonic, "")
		require.NoError(t, err)
		c, err := share.KeyShareFromMnemonic(r, mnemonic, "other")
		require.NoError(t, err)
		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
	}

	_, err = share.KeyShareFromMnemonic(ring.Z2k, "not a mnemonic", "")
	assert.ErrorIs(t, err, share.ErrInvalidMnemonic)
}
