// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package save persists what a party needs between runs: its config, including the MAC key
// share, and the authenticated values dealt to it.
package save

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/pkg/share"
	"MPC_SPDZ/protocols/config"

	"github.com/fxamacker/cbor/v2"
	log "github.com/sirupsen/logrus"
)

// PartyFile is the content of a party's key share file.
type PartyFile struct {
	Config *config.Config
	// Values are the authenticated shares dealt to the party, in dealing order.
	Values []share.AuthenticatedValue
	// Masks[i] masks Values[i] whenever it is opened. Only dealt over overflow rings.
	Masks []share.AuthenticatedValue
}

type storedPartyFile struct {
	Config     []byte
	Shares     [][]byte
	MACs       [][]byte
	MaskShares [][]byte `cbor:",omitempty"`
	MaskMACs   [][]byte `cbor:",omitempty"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (f *PartyFile) MarshalBinary() ([]byte, error) {
	c, err := f.Config.MarshalBinary()
	if err != nil {
		return nil, err
	}
	s := storedPartyFile{Config: c}
	s.Shares, s.MACs = encodeValues(f.Values)
	s.MaskShares, s.MaskMACs = encodeValues(f.Masks)
	return cbor.Marshal(s)
}

func encodeValues(values []share.AuthenticatedValue) (shares, macs [][]byte) {
	if len(values) == 0 {
		return nil, nil
	}
	shares = make([][]byte, len(values))
	macs = make([][]byte, len(values))
	for i, v := range values {
		shares[i] = ring.Encode(v.Share)
		macs[i] = ring.Encode(v.MAC)
	}
	return shares, macs
}

func decodeValues(r ring.Ring, shares, macs [][]byte) ([]share.AuthenticatedValue, error) {
	if len(shares) != len(macs) {
		return nil, errors.New("share and MAC counts differ")
	}
	if len(shares) == 0 {
		return nil, nil
	}
	s, err := ring.DecodeAll(r, shares)
	if err != nil {
		return nil, fmt.Errorf("shares: %w", err)
	}
	m, err := ring.DecodeAll(r, macs)
	if err != nil {
		return nil, fmt.Errorf("MACs: %w", err)
	}
	values := make([]share.AuthenticatedValue, len(s))
	for i := range s {
		values[i] = share.AuthenticatedValue{Share: s[i], MAC: m[i]}
	}
	return values, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (f *PartyFile) UnmarshalBinary(data []byte) error {
	var s storedPartyFile
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	c := &config.Config{}
	if err := c.UnmarshalBinary(s.Config); err != nil {
		return err
	}
	values, err := decodeValues(c.Ring, s.Shares, s.MACs)
	if err != nil {
		return fmt.Errorf("save: values: %w", err)
	}
	masks, err := decodeValues(c.Ring, s.MaskShares, s.MaskMACs)
	if err != nil {
		return fmt.Errorf("save: masks: %w", err)
	}
	if len(masks) != 0 && len(masks) != len(values) {
		return fmt.Errorf("save: %d masks for %d values", len(masks), len(values))
	}
	*f = PartyFile{Config: c, Values: values, Masks: masks}
	return nil
}

// WriteFixtureFile writes data to filePath, creating the parent directory if needed.
func WriteFixtureFile(data []byte, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		log.Errorf("fail create dir of %s", filePath)
		return err
	}
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		log.Errorf("fail write %s", filePath)
		return err
	}
	return nil
}

// ReadFixtureFile reads the file at filePath.
func ReadFixtureFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Errorf("fail read %s", filePath)
		return nil, err
	}
	return data, nil
}

// SavePartyFile stores f at filePath.
func SavePartyFile(f *PartyFile, filePath string) error {
	data, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	if err = WriteFixtureFile(data, filePath); err != nil {
		return err
	}
	log.Infof("saved party %v with %d values to %s", f.Config.ID, len(f.Values), filePath)
	return nil
}

// LoadPartyFile reads a file written by SavePartyFile.
func LoadPartyFile(filePath string) (*PartyFile, error) {
	data, err := ReadFixtureFile(filePath)
	if err != nil {
		return nil, err
	}
	f := &PartyFile{}
	if err = f.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("save: %s: %w", filePath, err)
	}
	return f, nil
}

// Deal shares xs among the parties stored in filePaths, under their key shares, and appends the
// authenticated values to every file. Over an overflow ring every value gets a fresh mask.
func Deal(filePaths []string, xs []ring.Element) error {
	files := make([]*PartyFile, len(filePaths))
	keyShares := map[party.ID]ring.Element{}
	var r ring.Ring
	for i, path := range filePaths {
		f, err := LoadPartyFile(path)
		if err != nil {
			return err
		}
		if r != nil && r.Name() != f.Config.Ring.Name() {
			return fmt.Errorf("save: %s uses ring %s, expected %s", path, f.Config.Ring.Name(), r.Name())
		}
		if _, ok := keyShares[f.Config.ID]; ok {
			return fmt.Errorf("save: party %v appears twice", f.Config.ID)
		}
		r = f.Config.Ring
		keyShares[f.Config.ID] = f.Config.KeyShare
		files[i] = f
	}
	for _, f := range files {
		if len(f.Config.Parties) != len(files) || !f.Config.Parties.Contains(keys(keyShares)...) {
			return fmt.Errorf("save: party %v expects parties %v", f.Config.ID, f.Config.Parties)
		}
	}

	dealer, err := share.NewDealer(r, keyShares, nil)
	if err != nil {
		return err
	}
	dealt := dealer.ShareAll(xs)
	var masks map[party.ID][]share.AuthenticatedValue
	if r.Overflow() {
		masks = dealer.Masks(len(xs))
	}
	for i, f := range files {
		f.Values = append(f.Values, dealt[f.Config.ID]...)
		f.Masks = append(f.Masks, masks[f.Config.ID]...)
		if err = SavePartyFile(f, filePaths[i]); err != nil {
			return err
		}
	}
	return nil
}

func keys(m map[party.ID]ring.Element) []party.ID {
	out := make([]party.ID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
