package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"

	"MPC_SPDZ/pkg/math/sample"
)

// Commitment is the digest half of a hash commitment, safe to publish before opening.
type Commitment []byte

// Validate checks the length of the commitment.
func (c Commitment) Validate() error {
	if l := len(c); l != DigestLengthBytes {
		return errors.New("hash: commitment has wrong length")
	}
	return nil
}

// Decommitment is the randomness needed to open a Commitment.
type Decommitment []byte

// Validate checks the length of the decommitment.
func (d Decommitment) Validate() error {
	if l := len(d); l != DigestLengthBytes {
		return errors.New("hash: decommitment has wrong length")
	}
	return nil
}

// Commit creates a commitment to data, using fresh randomness from crypto/rand.
func (hash *Hash) Commit(data ...interface{}) (Commitment, Decommitment, error) {
	return hash.CommitFrom(rand.Reader, data...)
}

// CommitFrom creates a commitment to data, reading the decommitment from source.
// The decommitment must never be reused for another commitment.
func (hash *Hash) CommitFrom(source io.Reader, data ...interface{}) (Commitment, Decommitment, error) {
	decommitment := Decommitment(sample.Bytes(source, DigestLengthBytes))

	h := hash.Clone()
	if err := h.WriteAny(data...); err != nil {
		return nil, nil, err
	}
	h.writeDomain("Commitment", decommitment)

	return h.Sum(), decommitment, nil
}

// Decommit verifies that the commitment corresponds to the data and decommitment.
// The comparison is constant time.
func (hash *Hash) Decommit(c Commitment, d Decommitment, data ...interface{}) bool {
	if c.Validate() != nil || d.Validate() != nil {
		return false
	}

	h := hash.Clone()
	if err := h.WriteAny(data...); err != nil {
		return false
	}
	h.writeDomain("Commitment", d)

	return subtle.ConstantTimeCompare(h.Sum(), c) == 1
}
