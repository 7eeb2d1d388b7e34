package test

import (
	"io"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/pkg/share"
	"MPC_SPDZ/protocols/config"
)

// PartyIDs returns the IDs 1, …, n.
func PartyIDs(n int) party.IDSlice {
	return party.Sequential(n)
}

// GenerateConfig creates a configuration for n parties over r, with MAC key shares sampled from source.
// The configs use crypto/rand for their local randomness, since their rounds run concurrently.
func GenerateConfig(r ring.Ring, n int, source io.Reader) (map[party.ID]*config.Config, party.IDSlice) {
	partyIDs := PartyIDs(n)
	configs := make(map[party.ID]*config.Config, n)
	for _, id := range partyIDs {
		configs[id] = &config.Config{
			ID:       id,
			Parties:  partyIDs,
			Ring:     r,
			KeyShare: share.NewKeyShare(r, source),
		}
	}
	return configs, partyIDs
}

// Dealer returns a dealer producing authenticated sharings under the key shares of configs.
func Dealer(configs map[party.ID]*config.Config, source io.Reader) *share.Dealer {
	var r ring.Ring
	keyShares := make(map[party.ID]ring.Element, len(configs))
	for id, c := range configs {
		keyShares[id] = c.KeyShare
		r = c.Ring
	}
	d, err := share.NewDealer(r, keyShares, source)
	if err != nil {
		panic(err)
	}
	return d
}

// Sessions creates the session of every party in configs and its first round, ordered by party ID.
func Sessions(configs map[party.ID]*config.Config, protocolID string, start func(helper *round.Helper, c *config.Config) (round.Session, error)) ([]round.Session, error) {
	ids := make([]party.ID, 0, len(configs))
	for id := range configs {
		ids = append(ids, id)
	}
	rounds := make([]round.Session, 0, len(configs))
	for _, id := range party.NewIDSlice(ids) {
		helper, err := configs[id].NewSession(protocolID, nil)
		if err != nil {
			return nil, err
		}
		r, err := start(helper, configs[id])
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, nil
}
