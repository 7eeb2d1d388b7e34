// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package hash wraps blake3 with domain separation for every value written to the state.
// It provides commitments and a deterministic XOF used to expand joint randomness.
package hash

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/zeebo/blake3"
)

// DigestLengthBytes is the length of Sum and of commitment randomness.
const DigestLengthBytes = 32

// Hash is the hash function we use for generating commitments, consistency checks,
// and deriving joint randomness from a seed.
type Hash struct {
	h *blake3.Hasher
}

// WriterToWithDomain represents a type writing itself, and knowing what its domain is.
//
// Not providing a domain can lead to collisions between distinct types.
type WriterToWithDomain interface {
	io.WriterTo

	// Domain returns a context string, which should be unique for each implementor
	Domain() string
}

// BytesWithDomain is a useful wrapper to annotate some chunk of data with a domain.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// WriteTo implements io.WriterTo.
func (b BytesWithDomain) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes)
	return int64(n), err
}

// Domain implements WriterToWithDomain.
func (b BytesWithDomain) Domain() string {
	return b.TheDomain
}

// New creates a Hash struct where the internal hash state is initialized with
// a domain separation tag and the given data.
func New(initialData ...WriterToWithDomain) *Hash {
	hash := &Hash{h: blake3.New()}
	_, _ = hash.h.Write([]byte("MPC SPDZ"))
	for _, d := range initialData {
		_ = hash.WriteAny(d)
	}
	return hash
}

// Digest returns a reader for the current state of the hash.
// The output can be read indefinitely, which is how a joint seed is expanded
// into any number of coefficients.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a slice of length DigestLengthBytes resulting from the current hash state.
// Writing to the hash afterwards is still possible.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash.Sum: internal hash failure: %v", err))
	}
	return out
}

// WriteAny takes many different data types and writes them to the hash state.
//
// Each value is written as (domain)<length><data>, which makes the encoding injective.
//
// Currently supported types:
//
//   - []byte, string
//   - uint16, uint32, uint64, int
//   - *big.Int
//   - WriterToWithDomain
//   - encoding.BinaryMarshaler
func (hash *Hash) WriteAny(data ...interface{}) error {
	for _, d := range data {
		var (
			domain string
			raw    []byte
		)
		switch t := d.(type) {
		case []byte:
			domain, raw = "[]byte", t
		case string:
			domain, raw = "string", []byte(t)
		case uint16:
			domain, raw = "uint16", binary.BigEndian.AppendUint16(nil, t)
		case uint32:
			domain, raw = "uint32", binary.BigEndian.AppendUint32(nil, t)
		case uint64:
			domain, raw = "uint64", binary.BigEndian.AppendUint64(nil, t)
		case int:
			domain, raw = "int", binary.BigEndian.AppendUint64(nil, uint64(t))
		case *big.Int:
			if t == nil {
				return fmt.Errorf("hash.WriteAny: nil *big.Int")
			}
			domain, raw = "big.Int", t.Bytes()
		case WriterToWithDomain:
			buf := &lengthBuffer{}
			if _, err := t.WriteTo(buf); err != nil {
				return fmt.Errorf("hash.WriteAny: %s: %w", t.Domain(), err)
			}
			domain, raw = t.Domain(), buf.data
		case encoding.BinaryMarshaler:
			b, err := t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash.WriteAny: %w", err)
			}
			domain, raw = "BinaryMarshaler", b
		default:
			return fmt.Errorf("hash.WriteAny: invalid type %T", t)
		}
		hash.writeDomain(domain, raw)
	}
	return nil
}

func (hash *Hash) writeDomain(domain string, data []byte) {
	_, _ = hash.h.Write([]byte("("))
	_, _ = hash.h.Write([]byte(domain))
	_, _ = hash.h.Write([]byte(")"))
	var l [8]byte
	binary.BigEndian.PutUint64(l[:], uint64(len(data)))
	_, _ = hash.h.Write(l[:])
	_, _ = hash.h.Write(data)
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}

// Fork clones this hash, and then writes some data.
func (hash *Hash) Fork(data ...interface{}) *Hash {
	newHash := hash.Clone()
	if err := newHash.WriteAny(data...); err != nil {
		panic(err)
	}
	return newHash
}

type lengthBuffer struct {
	data []byte
}

func (b *lengthBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}
