// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package communication

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"MPC_SPDZ/pkg/party"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Roles of a connection. The party with role RoleServer listens, the other one dials.
const (
	RoleServer = "server"
	RoleClient = "client"
)

// Party describes how to reach another party.
type Party struct {
	ID       party.ID `json:"id" yaml:"id"`
	Address  string   `json:"addr" yaml:"addr"`
	ConnRole string   `json:"connRole" yaml:"connRole"`
	// CertName is the common name or DNS name the party's TLS certificate must carry.
	// Defaults to the party ID, e.g. "P2".
	CertName string `json:"certName,omitempty" yaml:"certName,omitempty"`
}

// ExpectedCertName returns the name the certificate of p must carry.
func (p Party) ExpectedCertName() string {
	if p.CertName != "" {
		return p.CertName
	}
	return p.ID.String()
}

// LocalConfig struct represents the local configuration of a node.
type LocalConfig struct {
	// LocalID is the ID of the local party.
	LocalID party.ID `json:"localID" yaml:"localID"`
	// LocalAddr is the address the local party listens on.
	LocalAddr string `json:"localAddr" yaml:"localAddr"`
	// LocalCanBeServer indicates whether the local party accepts connections.
	LocalCanBeServer bool `json:"localCanBeServer" yaml:"localCanBeServer"`
	// OtherPartyInfo lists the other parties of the computation.
	OtherPartyInfo []Party `json:"otherPartyInfo" yaml:"otherPartyInfo"`
	// CaPath, CertPath and KeyPath locate the TLS material. Without them, connections are plain TCP.
	CaPath   string `json:"caPath" yaml:"caPath"`
	CertPath string `json:"certPath" yaml:"certPath"`
	KeyPath  string `json:"keyPath" yaml:"keyPath"`
	// TimeOutSecond bounds the time spent establishing connections.
	TimeOutSecond int `json:"timeOutSecond" yaml:"timeOutSecond"`

	// Ring is the name of the ring shared values live in.
	Ring string `json:"ring" yaml:"ring"`
	// KeyShareFile is where the party's config and MAC key share are stored.
	KeyShareFile string `json:"keyShareFile" yaml:"keyShareFile"`
	// EchoTwoParty forces broadcast validation for two parties.
	EchoTwoParty bool `json:"echoTwoParty" yaml:"echoTwoParty"`
}

// OtherPartyIDs returns the sorted IDs of the other parties.
func (c *LocalConfig) OtherPartyIDs() party.IDSlice {
	ids := make([]party.ID, 0, len(c.OtherPartyInfo))
	for _, p := range c.OtherPartyInfo {
		ids = append(ids, p.ID)
	}
	return party.NewIDSlice(ids)
}

// PartyIDs returns the sorted IDs of all parties, including the local one.
func (c *LocalConfig) PartyIDs() party.IDSlice {
	return party.NewIDSlice(append(c.OtherPartyIDs(), c.LocalID))
}

// UseTLS reports whether TLS material is configured.
func (c *LocalConfig) UseTLS() bool {
	return c.CaPath != "" || c.CertPath != "" || c.KeyPath != ""
}

// Validate checks the consistency of the configuration.
func (c *LocalConfig) Validate() error {
	if err := c.PartyIDs().Valid(); err != nil {
		return fmt.Errorf("communication: %w", err)
	}
	needListener := false
	for _, p := range c.OtherPartyInfo {
		switch p.ConnRole {
		case RoleServer:
			if p.Address == "" {
				return fmt.Errorf("communication: no address for %v", p.ID)
			}
		case RoleClient:
			needListener = true
		default:
			return fmt.Errorf("communication: invalid role %q for %v", p.ConnRole, p.ID)
		}
	}
	if needListener && (!c.LocalCanBeServer || c.LocalAddr == "") {
		return errors.New("communication: some parties dial us, but we cannot be a server")
	}
	return nil
}

// LoadConfig reads a LocalConfig from a YAML file, or a JSON file if the extension is .json.
func LoadConfig(path string) (*LocalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("fail open %s", path)
		return nil, err
	}
	c := &LocalConfig{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, c)
	} else {
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		log.Errorf("fail unmarshal %s", path)
		return nil, err
	}
	if err = c.Validate(); err != nil {
		return nil, err
	}
	log.Infof("done load config %s", path)
	return c, nil
}
