package sample

import (
	"bytes"
	"crypto/rand"
	"errors"
	mrand "math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestBytes(t *testing.T) {
	a := Bytes(rand.Reader, 32)
	b := Bytes(rand.Reader, 32)
	require.Len(t, a, 32)
	assert.False(t, bytes.Equal(a, b), "two samples of 256 bits should differ")

	assert.Panics(t, func() { Bytes(failingReader{}, 8) })
}

func TestUint64Deterministic(t *testing.T) {
	x := Uint64(mrand.New(mrand.NewSource(7)))
	y := Uint64(mrand.New(mrand.NewSource(7)))
	assert.Equal(t, x, y)
}

func TestXOR(t *testing.T) {
	dst := []byte{0x0f, 0xf0}
	XOR(dst, []byte{0xff, 0xff})
	assert.Equal(t, []byte{0xf0, 0x0f}, dst)
	assert.Panics(t, func() { XOR(dst, []byte{1}) })
}
