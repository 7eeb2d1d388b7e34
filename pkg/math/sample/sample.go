package sample

import (
	"fmt"
	"io"
)

const maxIterations = 255

var ErrMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(ErrMaxIterations)
}

// Bytes returns n uniform bytes read from rand.
func Bytes(rand io.Reader, n int) []byte {
	buf := make([]byte, n)
	mustReadBits(rand, buf)
	return buf
}

// Uint64 returns a uniform 64 bit integer read from rand, big-endian.
func Uint64(rand io.Reader) uint64 {
	var buf [8]byte
	mustReadBits(rand, buf[:])
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

// XOR sets dst[i] ^= src[i] and panics if the lengths differ.
func XOR(dst, src []byte) {
	if len(dst) != len(src) {
		panic("sample.XOR: length mismatch")
	}
	for i := range dst {
		dst[i] ^= src[i]
	}
}
