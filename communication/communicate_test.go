package communication

import (
	"context"
	"crypto/rand"
	"net"
	"sync"
	"testing"
	"time"

	"MPC_SPDZ/internal/test"
	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/protocol"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/pkg/share"
	"MPC_SPDZ/protocols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddress(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// localConfigs lets every party dial the parties with a smaller ID, and accept the larger ones.
func localConfigs(t *testing.T, partyIDs party.IDSlice) map[party.ID]*LocalConfig {
	addrs := map[party.ID]string{}
	for _, id := range partyIDs {
		addrs[id] = freeAddress(t)
	}
	configs := map[party.ID]*LocalConfig{}
	for _, id := range partyIDs {
		c := &LocalConfig{
			LocalID:          id,
			LocalAddr:        addrs[id],
			LocalCanBeServer: true,
			TimeOutSecond:    10,
			Ring:             ring.Z2k.Name(),
		}
		for _, other := range partyIDs.Remove(id) {
			role := RoleClient
			if other < id {
				role = RoleServer
			}
			c.OtherPartyInfo = append(c.OtherPartyInfo, Party{ID: other, Address: addrs[other], ConnRole: role})
		}
		configs[id] = c
	}
	return configs
}

func connectAll(t *testing.T, partyIDs party.IDSlice) map[party.ID]*LocalConn {
	configs := localConfigs(t, partyIDs)
	conns := map[party.ID]*LocalConn{}
	for _, id := range partyIDs {
		c, err := NewLocalConn(configs[id])
		require.NoError(t, err)
		conns[id] = c
	}
	var wg sync.WaitGroup
	errs := make(map[party.ID]error, len(partyIDs))
	var mtx sync.Mutex
	for _, id := range partyIDs {
		wg.Add(1)
		go func(id party.ID) {
			defer wg.Done()
			err := conns[id].Connect(context.Background())
			mtx.Lock()
			errs[id] = err
			mtx.Unlock()
		}(id)
	}
	wg.Wait()
	for _, id := range partyIDs {
		require.NoError(t, errs[id], "party %v", id)
	}
	t.Cleanup(func() {
		for _, c := range conns {
			c.Close()
		}
	})
	return conns
}

func TestSendReceive(t *testing.T) {
	partyIDs := party.Sequential(3)
	conns := connectAll(t, partyIDs)
	ctx := context.Background()

	require.NoError(t, conns[1].SendToAll(ctx, []byte("hello")))
	require.NoError(t, conns[2].Send(ctx, 3, []byte{}))
	require.NoError(t, conns[2].Send(ctx, 1, []byte("from 2")))
	require.NoError(t, conns[3].Send(ctx, 1, []byte("from 3")))

	for _, id := range []party.ID{2, 3} {
		data, err := conns[id].Receive(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	}
	data, err := conns[3].Receive(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, data)

	all, err := conns[1].ReceiveFromAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[party.ID][]byte{2: []byte("from 2"), 3: []byte("from 3")}, all)

	_, err = conns[1].Receive(ctx, 7)
	assert.ErrorIs(t, err, ErrUnknownParty)
}

func TestReceiveCancelled(t *testing.T) {
	conns := connectAll(t, party.Sequential(2))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := conns[1].Receive(ctx, 2)
	assert.Error(t, err)
}

func TestConnectTimeout(t *testing.T) {
	c := &LocalConfig{
		LocalID:        1,
		TimeOutSecond:  1,
		OtherPartyInfo: []Party{{ID: 2, Address: freeAddress(t), ConnRole: RoleServer}},
	}
	conn, err := NewLocalConn(c)
	require.NoError(t, err)
	assert.Error(t, conn.Connect(context.Background()))
}

// TestOpenAndCheckOverTCP runs the full open and MAC-Check over real connections.
func TestOpenAndCheckOverTCP(t *testing.T) {
	r := ring.Z2k
	configs, partyIDs := test.GenerateConfig(r, 3, rand.Reader)
	d := test.Dealer(configs, rand.Reader)
	values := d.ShareAll([]ring.Element{r.FromUint64(5), r.FromUint64(12), r.FromUint64(9)})
	masks := d.Masks(3)
	conns := connectAll(t, partyIDs)

	var (
		wg      sync.WaitGroup
		mtx     sync.Mutex
		results = map[party.ID]interface{}{}
		errs    = map[party.ID]error{}
	)
	for _, id := range partyIDs {
		wg.Add(1)
		go func(id party.ID) {
			defer wg.Done()
			store := share.NewOpenedValueStore()
			res, err := protocol.Run(context.Background(), protocols.OpenAndCheck(configs[id], values[id], masks[id], store), []byte("tcp"), conns[id])
			mtx.Lock()
			defer mtx.Unlock()
			results[id] = res
			errs[id] = err
		}(id)
	}
	wg.Wait()

	for _, id := range partyIDs {
		require.NoError(t, errs[id], "party %v", id)
		res := results[id].(*protocols.OpenResult)
		require.Len(t, res.Opened, 3)
		assert.True(t, res.Opened[1].Equal(r.FromUint64(12)))
		assert.Equal(t, 3, res.Checked)
	}
}
