package config_test

import (
	"testing"

	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/protocols/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	return &config.Config{
		ID:       2,
		Parties:  party.Sequential(3),
		Ring:     ring.Z2k,
		KeyShare: ring.NewUint128(0, 77),
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	for name, modify := range map[string]func(c *config.Config){
		"not a participant": func(c *config.Config) { c.ID = 4 },
		"single party":      func(c *config.Config) { c.Parties = party.IDSlice{2} },
		"no ring":           func(c *config.Config) { c.Ring = nil },
		"no key share":      func(c *config.Config) { c.KeyShare = nil },
		"bad mode":          func(c *config.Config) { c.TwoParty = 7 },
	} {
		c := validConfig()
		modify(c)
		assert.Error(t, c.Validate(), name)
	}

	var c *config.Config
	assert.Error(t, c.Validate())
}

func TestOther(t *testing.T) {
	c := validConfig()
	assert.Equal(t, 3, c.N())
	assert.Equal(t, party.IDSlice{1, 3}, c.Other())
	assert.NotNil(t, c.Random())
}

func TestMarshal(t *testing.T) {
	for _, r := range []ring.Ring{ring.Z2k, ring.Mersenne127, ring.Ed25519Order} {
		c := validConfig()
		c.Ring = r
		c.KeyShare = r.FromUint64(12345)
		c.TwoParty = config.EchoAlways

		data, err := c.MarshalBinary()
		require.NoError(t, err)

		var got config.Config
		require.NoError(t, got.UnmarshalBinary(data))
		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, c.Parties, got.Parties)
		assert.Equal(t, r.Name(), got.Ring.Name())
		assert.True(t, c.KeyShare.Equal(got.KeyShare))
		assert.Equal(t, config.EchoAlways, got.TwoParty)
	}
}

func TestNewSession(t *testing.T) {
	c := validConfig()
	h, err := c.NewSession("test", []byte("session"))
	require.NoError(t, err)
	assert.Equal(t, c.ID, h.SelfID())
	assert.False(t, h.EchoTwoParty())

	c.KeyShare = nil
	_, err = c.NewSession("test", nil)
	assert.Error(t, err)
}
