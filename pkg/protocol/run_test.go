package protocol_test

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/internal/test"
	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/protocol"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/protocols/broadcast"
	"MPC_SPDZ/protocols/commit"
	"MPC_SPDZ/protocols/config"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNetwork accepts everything it is sent, and answers every receive with frames.
type fakeNetwork struct {
	sendErr error
	frames  func() map[party.ID][]byte
}

func (n *fakeNetwork) Send(context.Context, party.ID, []byte) error { return n.sendErr }
func (n *fakeNetwork) SendToAll(context.Context, []byte) error      { return n.sendErr }
func (n *fakeNetwork) Receive(_ context.Context, from party.ID) ([]byte, error) {
	return n.frames()[from], nil
}
func (n *fakeNetwork) ReceiveFromAll(context.Context) (map[party.ID][]byte, error) {
	return n.frames(), nil
}

func broadcastStart(c *config.Config) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		helper, err := c.NewSession("test/run", sessionID)
		if err != nil {
			return nil, err
		}
		return broadcast.Start(helper, 1, []byte{byte(c.ID)}, func(_ round.Number, payloads [][]byte) (round.Session, error) {
			return helper.ResultRound(payloads), nil
		})
	}
}

func setup(n int) (map[party.ID]*config.Config, party.IDSlice) {
	return test.GenerateConfig(ring.Z2k, n, rand.Reader)
}

func TestRunTransportError(t *testing.T) {
	configs, _ := setup(3)
	_, err := protocol.Run(context.Background(), broadcastStart(configs[1]), nil, &fakeNetwork{sendErr: errors.New("connection reset")})
	assert.ErrorIs(t, err, protocol.ErrTransport)
}

func TestRunCancelled(t *testing.T) {
	configs, _ := setup(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := protocol.Run(ctx, broadcastStart(configs[1]), nil, &fakeNetwork{})
	assert.ErrorIs(t, err, protocol.ErrTransport)
}

func TestRunMalformedMessage(t *testing.T) {
	configs, _ := setup(3)
	network := &fakeNetwork{frames: func() map[party.ID][]byte {
		return map[party.ID][]byte{2: []byte("garbage"), 3: []byte("garbage")}
	}}
	_, err := protocol.Run(context.Background(), broadcastStart(configs[1]), nil, network)
	require.ErrorIs(t, err, protocol.ErrCheatingDetected)
	var protocolErr protocol.Error
	require.True(t, errors.As(err, &protocolErr))
	assert.Equal(t, []party.ID{2}, protocolErr.Culprits)
}

func TestRunMissingParty(t *testing.T) {
	configs, _ := setup(3)
	network := &fakeNetwork{frames: func() map[party.ID][]byte { return map[party.ID][]byte{} }}
	_, err := protocol.Run(context.Background(), broadcastStart(configs[1]), nil, network)
	assert.ErrorIs(t, err, protocol.ErrTransport)
}

func TestRunWrongSession(t *testing.T) {
	configs, partyIDs := setup(2)
	network := test.Pipes(partyIDs)

	errs := make(chan error, 2)
	for _, id := range partyIDs {
		go func(id party.ID) {
			// each party uses a different session ID
			_, err := protocol.Run(context.Background(), broadcastStart(configs[id]), []byte{byte(id)}, network[id])
			errs <- err
		}(id)
	}
	for range partyIDs {
		err := <-errs
		assert.ErrorIs(t, err, protocol.ErrCheatingDetected)
	}
}

func TestRun(t *testing.T) {
	configs, partyIDs := setup(3)
	network := test.Pipes(partyIDs)

	type outcome struct {
		id  party.ID
		res interface{}
		err error
	}
	outcomes := make(chan outcome, len(partyIDs))
	for _, id := range partyIDs {
		go func(id party.ID) {
			res, err := protocol.Run(context.Background(), broadcastStart(configs[id]), []byte("session"), network[id])
			outcomes <- outcome{id, res, err}
		}(id)
	}
	for range partyIDs {
		o := <-outcomes
		require.NoError(t, o.err, "party %v", o.id)
		assert.Equal(t, [][]byte{{1}, {2}, {3}}, o.res)
	}
}

func runParties(ctx context.Context, partyIDs party.IDSlice, networks map[party.ID]protocol.Network, start func(id party.ID) protocol.StartFunc) map[party.ID]error {
	type outcome struct {
		id  party.ID
		err error
	}
	outcomes := make(chan outcome, len(partyIDs))
	for _, id := range partyIDs {
		go func(id party.ID) {
			_, err := protocol.Run(ctx, start(id), []byte("session"), networks[id])
			outcomes <- outcome{id, err}
		}(id)
	}
	errs := make(map[party.ID]error, len(partyIDs))
	for range partyIDs {
		o := <-outcomes
		errs[o.id] = o.err
	}
	return errs
}

func TestRunFinalizeError(t *testing.T) {
	configs, partyIDs := setup(2)
	start := func(id party.ID) protocol.StartFunc {
		return func(sessionID []byte) (round.Session, error) {
			helper, err := configs[id].NewSession("test/run", sessionID)
			if err != nil {
				return nil, err
			}
			return broadcast.Start(helper, 1, []byte{byte(id)}, func(round.Number, [][]byte) (round.Session, error) {
				return nil, errors.New("store is closed")
			})
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for id, err := range runParties(ctx, partyIDs, test.Pipes(partyIDs), start) {
		assert.ErrorIs(t, err, protocol.ErrProtocolUsage, "party %v", id)
		assert.ErrorContains(t, err, "store is closed")
	}
}

// echoTamperer corrupts the first echo digest its party sends to victim.
type echoTamperer struct {
	protocol.Network
	others party.IDSlice
	victim party.ID
	done   bool
}

func (n *echoTamperer) SendToAll(ctx context.Context, data []byte) error {
	msg := &protocol.Message{}
	var body struct{ Digest []byte }
	if n.done || msg.UnmarshalBinary(data) != nil || cbor.Unmarshal(msg.Data, &body) != nil || len(body.Digest) == 0 {
		return n.Network.SendToAll(ctx, data)
	}
	n.done = true
	body.Digest[0] ^= 1
	var err error
	if msg.Data, err = cbor.Marshal(body); err != nil {
		return err
	}
	tampered, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	for _, id := range n.others {
		frame := data
		if id == n.victim {
			frame = tampered
		}
		if err = n.Network.Send(ctx, id, frame); err != nil {
			return err
		}
	}
	return nil
}

// TestRunAbortNotice has party 3 send an inconsistent echo to party 1 only. Party 1 detects it
// and aborts, and the other parties must learn about it instead of waiting for party 1.
func TestRunAbortNotice(t *testing.T) {
	configs, partyIDs := setup(3)
	networks := test.Pipes(partyIDs)
	networks[3] = &echoTamperer{Network: networks[3], others: partyIDs.Remove(3), victim: 1}
	start := func(id party.ID) protocol.StartFunc {
		return func(sessionID []byte) (round.Session, error) {
			helper, err := configs[id].NewSession("test/commit", sessionID)
			if err != nil {
				return nil, err
			}
			return commit.Start(helper, 1, []byte{byte(id)}, func(_ round.Number, payloads [][]byte) (round.Session, error) {
				return helper.ResultRound(payloads), nil
			})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errs := runParties(ctx, partyIDs, networks, start)
	for _, id := range partyIDs {
		require.Error(t, errs[id], "party %v", id)
		assert.ErrorIs(t, errs[id], protocol.ErrCheatingDetected, "party %v", id)
		assert.NotErrorIs(t, errs[id], protocol.ErrTransport, "party %v timed out", id)
	}
	assert.ErrorContains(t, errs[2], "aborted by party")
}
