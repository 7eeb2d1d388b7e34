package commit

import (
	"crypto/rand"
	"fmt"
	"testing"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/internal/test"
	"MPC_SPDZ/pkg/hash"
	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/protocols/config"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadOf(id party.ID) []byte {
	return []byte(fmt.Sprintf("committed by %v", id))
}

func output(helper *round.Helper) Next {
	return func(_ round.Number, payloads [][]byte) (round.Session, error) {
		return helper.ResultRound(payloads), nil
	}
}

func start(helper *round.Helper, _ *config.Config) (round.Session, error) {
	return Start(helper, 1, payloadOf(helper.SelfID()), output(helper))
}

// cheat makes party `cheater` run the protocol with a commitment and opening produced by corrupt.
func cheat(cheater party.ID, corrupt func(helper *round.Helper) (hash.Commitment, opening)) func(*round.Helper, *config.Config) (round.Session, error) {
	return func(helper *round.Helper, c *config.Config) (round.Session, error) {
		if helper.SelfID() != cheater {
			return start(helper, c)
		}
		commitment, o := corrupt(helper)
		data, err := cbor.Marshal(&o)
		if err != nil {
			return nil, err
		}
		return run(helper, 1, commitment, data, output(helper))
	}
}

func TestCommitmentComputation(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			configs, partyIDs := test.GenerateConfig(ring.Z2k, n, rand.Reader)
			rounds, err := test.Sessions(configs, "test/commit", start)
			require.NoError(t, err)

			results, err := test.RunRounds(rounds, nil)
			require.NoError(t, err)
			for _, r := range results {
				require.IsType(t, &round.Output{}, r)
				payloads := r.(*round.Output).Result.([][]byte)
				for i, id := range partyIDs {
					assert.Equal(t, payloadOf(id), payloads[i])
				}
			}
		})
	}
}

func TestBinding(t *testing.T) {
	for name, corrupt := range map[string]func(helper *round.Helper) (hash.Commitment, opening){
		"payload": func(helper *round.Helper) (hash.Commitment, opening) {
			c, d, _ := helper.HashForID(helper.SelfID()).Commit(payloadOf(helper.SelfID()))
			return c, opening{Payload: []byte("changed my mind"), Decommitment: d}
		},
		"randomness": func(helper *round.Helper) (hash.Commitment, opening) {
			c, d, _ := helper.HashForID(helper.SelfID()).Commit(payloadOf(helper.SelfID()))
			d[0] ^= 1
			return c, opening{Payload: payloadOf(helper.SelfID()), Decommitment: d}
		},
		"other party's commitment": func(helper *round.Helper) (hash.Commitment, opening) {
			c, d, _ := helper.HashForID(1).Commit(payloadOf(helper.SelfID()))
			return c, opening{Payload: payloadOf(helper.SelfID()), Decommitment: d}
		},
		"short commitment": func(helper *round.Helper) (hash.Commitment, opening) {
			c, d, _ := helper.HashForID(helper.SelfID()).Commit(payloadOf(helper.SelfID()))
			return c[:16], opening{Payload: payloadOf(helper.SelfID()), Decommitment: d}
		},
	} {
		t.Run(name, func(t *testing.T) {
			configs, _ := test.GenerateConfig(ring.Z2k, 3, rand.Reader)
			rounds, err := test.Sessions(configs, "test/commit", cheat(2, corrupt))
			require.NoError(t, err)

			results, err := test.RunRounds(rounds, nil)
			require.NoError(t, err)
			for _, r := range results {
				require.IsType(t, &round.Abort{}, r)
				abort := r.(*round.Abort)
				assert.ErrorIs(t, abort.Err, round.ErrCheatingDetected)
				assert.Equal(t, []party.ID{2}, abort.Culprits)
			}
		})
	}
}

func TestMalformedOpening(t *testing.T) {
	configs, _ := test.GenerateConfig(ring.Mersenne127, 3, rand.Reader)
	rounds, err := test.Sessions(configs, "test/commit", func(helper *round.Helper, c *config.Config) (round.Session, error) {
		if helper.SelfID() != 3 {
			return start(helper, c)
		}
		commitment, _, _ := helper.HashForID(3).Commit(payloadOf(3))
		return run(helper, 1, commitment, []byte("not cbor \xff"), output(helper))
	})
	require.NoError(t, err)

	results, err := test.RunRounds(rounds, nil)
	require.NoError(t, err)
	for _, r := range results {
		require.IsType(t, &round.Abort{}, r)
		assert.Equal(t, []party.ID{3}, r.(*round.Abort).Culprits)
	}
}
