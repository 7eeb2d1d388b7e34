package share

import (
	"crypto/sha256"
	"errors"
	"io"

	"MPC_SPDZ/pkg/ring"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

var ErrInvalidMnemonic = errors.New("share: invalid mnemonic")

// NewKeyShare samples a party's MAC key share αᵢ locally.
func NewKeyShare(r ring.Ring, rand io.Reader) ring.Element {
	return r.SampleCoefficient(rand)
}

// NewMnemonic generates a BIP-39 mnemonic from 256 bits of entropy.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// KeyShareFromMnemonic deterministically derives a MAC key share from a BIP-39
// mnemonic, so a party can restore its share from a backup phrase.
func KeyShareFromMnemonic(r ring.Ring, mnemonic, passphrase string) (ring.Element, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	kdf := hkdf.New(sha256.New, masterKey.Key, masterKey.ChainCode, []byte("MPC SPDZ MAC key share "+r.Name()))
	return r.SampleCoefficient(kdf), nil
}
