// Package config holds the immutable context of one party: who it is, who it computes with,
// which ring values live in, and its share of the MAC key.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/ring"

	"github.com/fxamacker/cbor/v2"
)

// TwoPartyMode selects what broadcast validation does when only two parties take part.
// With two parties there is no third party that could receive a different message,
// so the echo round adds nothing against an equivocating sender.
type TwoPartyMode uint8

const (
	// SkipValidation skips the echo round for n = 2.
	SkipValidation TwoPartyMode = iota
	// EchoAlways runs the echo round for any n.
	EchoAlways
)

func (m TwoPartyMode) String() string {
	switch m {
	case SkipValidation:
		return "skip"
	case EchoAlways:
		return "echo"
	}
	return fmt.Sprintf("TwoPartyMode(%d)", uint8(m))
}

// Config is the context threaded through every protocol a party runs.
// It must not be modified after Validate succeeded.
type Config struct {
	// ID of the party this config belongs to.
	ID party.ID
	// Parties taking part, including ID.
	Parties party.IDSlice
	// Ring all shared values and MACs live in.
	Ring ring.Ring
	// KeyShare is αᵢ, this party's additive share of the global MAC key.
	KeyShare ring.Element
	// Rand is the local randomness source. If nil, crypto/rand is used.
	Rand io.Reader
	// TwoParty configures broadcast validation for n = 2.
	TwoParty TwoPartyMode
}

// Validate ensures that the data is consistent.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: config is nil")
	}
	if err := c.Parties.Valid(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !c.Parties.Contains(c.ID) {
		return fmt.Errorf("config: party %v is not a participant", c.ID)
	}
	if c.Ring == nil {
		return errors.New("config: ring is nil")
	}
	if c.KeyShare == nil {
		return errors.New("config: MAC key share is nil")
	}
	if c.TwoParty > EchoAlways {
		return fmt.Errorf("config: invalid two party mode %v", c.TwoParty)
	}
	return nil
}

// N returns the number of parties.
func (c *Config) N() int {
	return len(c.Parties)
}

// Other returns the parties other than ID.
func (c *Config) Other() party.IDSlice {
	return c.Parties.Remove(c.ID)
}

// Random returns the configured randomness source.
func (c *Config) Random() io.Reader {
	if c.Rand == nil {
		return rand.Reader
	}
	return c.Rand
}

// NewSession validates the config and creates the session helper for the protocol protocolID.
func (c *Config) NewSession(protocolID string, sessionID []byte) (*round.Helper, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return round.NewSession(round.Info{
		ProtocolID:   protocolID,
		SelfID:       c.ID,
		PartyIDs:     c.Parties,
		Ring:         c.Ring,
		Rand:         c.Random(),
		EchoTwoParty: c.TwoParty == EchoAlways,
	}, sessionID)
}

// stored is the persistent form of a Config, the randomness source is never stored.
type stored struct {
	ID       party.ID
	Parties  []party.ID
	Ring     string
	KeyShare []byte
	TwoParty TwoPartyMode
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Config) MarshalBinary() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	keyShare, err := c.KeyShare.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(stored{
		ID:       c.ID,
		Parties:  c.Parties,
		Ring:     c.Ring.Name(),
		KeyShare: keyShare,
		TwoParty: c.TwoParty,
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *Config) UnmarshalBinary(data []byte) error {
	var s stored
	if err := cbor.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	r, err := ring.ByName(s.Ring)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	keyShare, err := r.Decode(s.KeyShare)
	if err != nil {
		return fmt.Errorf("config: key share: %w", err)
	}
	*c = Config{
		ID:       s.ID,
		Parties:  party.NewIDSlice(s.Parties),
		Ring:     r,
		KeyShare: keyShare,
		TwoParty: s.TwoParty,
	}
	return c.Validate()
}
