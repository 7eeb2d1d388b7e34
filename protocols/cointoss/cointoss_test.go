package cointoss

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"testing"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/internal/test"
	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/protocols/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func output(helper *round.Helper) Next {
	return func(_ round.Number, seed []byte) (round.Session, error) {
		return helper.ResultRound(seed), nil
	}
}

func seeds(t *testing.T, results map[party.ID]round.Session) [][]byte {
	out := make([][]byte, 0, len(results))
	for _, r := range results {
		require.IsType(t, &round.Output{}, r)
		out = append(out, r.(*round.Output).Result.([]byte))
	}
	return out
}

func TestCoinToss(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			configs, _ := test.GenerateConfig(ring.Z2k, n, rand.Reader)
			rounds, err := test.Sessions(configs, "test/cointoss", func(helper *round.Helper, _ *config.Config) (round.Session, error) {
				return Start(helper, 1, SeedLength, output(helper))
			})
			require.NoError(t, err)

			results, err := test.RunRounds(rounds, nil)
			require.NoError(t, err)
			all := seeds(t, results)
			require.Len(t, all[0], SeedLength)
			for _, seed := range all[1:] {
				assert.Equal(t, all[0], seed)
			}
			assert.False(t, bytes.Equal(make([]byte, SeedLength), all[0]))
		})
	}
}

func TestInvalidLength(t *testing.T) {
	configs, _ := test.GenerateConfig(ring.Z2k, 2, rand.Reader)
	helper, err := configs[1].NewSession("test/cointoss", nil)
	require.NoError(t, err)
	_, err = Start(helper, 1, 0, output(helper))
	assert.ErrorIs(t, err, round.ErrProtocolUsage)
}

func TestWrongSeedLength(t *testing.T) {
	configs, _ := test.GenerateConfig(ring.Z2k, 3, rand.Reader)
	rounds, err := test.Sessions(configs, "test/cointoss", func(helper *round.Helper, _ *config.Config) (round.Session, error) {
		if helper.SelfID() == 2 {
			return start(helper, 1, make([]byte, 4), output(helper))
		}
		return Start(helper, 1, 8, output(helper))
	})
	require.NoError(t, err)

	results, err := test.RunRounds(rounds, nil)
	require.NoError(t, err)
	for id, r := range results {
		require.IsType(t, &round.Abort{}, r)
		assert.ErrorIs(t, r.(*round.Abort).Err, round.ErrCheatingDetected)
		if id != 2 {
			assert.Equal(t, []party.ID{2}, r.(*round.Abort).Culprits)
		}
	}
}

// TestUnbiased fixes the seeds of all parties but one to the same adversarial value,
// and checks that the first byte of the joint seed is still uniform.
func TestUnbiased(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	const (
		trials  = 2048
		n       = 3
		buckets = 16
	)
	adversarial := bytes.Repeat([]byte{0xAA}, 4)

	var counts [buckets]int
	for i := 0; i < trials; i++ {
		configs, _ := test.GenerateConfig(ring.Z2k, n, rand.Reader)
		rounds, err := test.Sessions(configs, "test/cointoss", func(helper *round.Helper, _ *config.Config) (round.Session, error) {
			if helper.SelfID() == 1 {
				return Start(helper, 1, len(adversarial), output(helper))
			}
			seed := make([]byte, len(adversarial))
			copy(seed, adversarial)
			return start(helper, 1, seed, output(helper))
		})
		require.NoError(t, err)
		results, err := test.RunRounds(rounds, nil)
		require.NoError(t, err)
		counts[seeds(t, results)[0][0]%buckets]++
	}

	// chi-square with 15 degrees of freedom; 37.7 is the 0.001 critical value
	expected := float64(trials) / buckets
	chi2 := 0.0
	for _, c := range counts {
		d := float64(c) - expected
		chi2 += d * d / expected
	}
	assert.Less(t, chi2, 37.7, "counts %v", counts)
}
