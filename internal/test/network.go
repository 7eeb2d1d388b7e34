package test

import (
	"context"
	"fmt"
	"sync"

	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/protocol"
)

// Network simulates a point-to-point network between different parties using Go channels.
// The same network is used by all processes, and can be reused for different protocols.
// When used with test.Handler, no interaction from the user is required beyond creating the network.
type Network struct {
	parties          party.IDSlice
	listenChannels   map[party.ID]chan *protocol.Message
	done             chan struct{}
	closedListenChan chan *protocol.Message
	mtx              sync.Mutex
}

func NewNetwork(parties party.IDSlice) *Network {
	closed := make(chan *protocol.Message)
	close(closed)
	c := &Network{
		parties:          parties,
		listenChannels:   make(map[party.ID]chan *protocol.Message, 2*len(parties)),
		closedListenChan: closed,
	}
	return c
}

func (n *Network) init() {
	N := len(n.parties)
	for _, id := range n.parties {
		n.listenChannels[id] = make(chan *protocol.Message, N*N)
	}
	n.done = make(chan struct{})
}

// Next returns the listen channel for the specified party ID.
func (n *Network) Next(id party.ID) <-chan *protocol.Message {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if len(n.listenChannels) == 0 {
		n.init()
	}
	c, ok := n.listenChannels[id]
	if !ok {
		return n.closedListenChan
	}
	return c
}

// Send delivers msg to every party it is intended for.
func (n *Network) Send(msg *protocol.Message) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	for id, c := range n.listenChannels {
		if msg.IsFor(id) && c != nil {
			n.listenChannels[id] <- msg
		}
	}
}

// Done closes the listen channel of id. The returned channel is closed once all parties are done.
func (n *Network) Done(id party.ID) chan struct{} {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if _, ok := n.listenChannels[id]; ok {
		close(n.listenChannels[id])
		delete(n.listenChannels, id)
	}
	if len(n.listenChannels) == 0 {
		close(n.done)
	}
	return n.done
}

// Quit method removes the specified party ID from the list of parties in the network.
func (n *Network) Quit(id party.ID) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.parties = n.parties.Remove(id)
}

// pipe is one party's end of an in-memory Pipes network.
type pipe struct {
	self  party.ID
	other party.IDSlice
	// inbox[from] carries the frames sent by from to self
	inbox map[party.ID]chan []byte
	peers map[party.ID]*pipe
}

// Pipes returns a blocking in-memory protocol.Network for every party.
func Pipes(parties party.IDSlice) map[party.ID]protocol.Network {
	pipes := make(map[party.ID]*pipe, len(parties))
	for _, id := range parties {
		p := &pipe{
			self:  id,
			other: parties.Remove(id),
			inbox: make(map[party.ID]chan []byte, len(parties)),
			peers: pipes,
		}
		for _, from := range p.other {
			p.inbox[from] = make(chan []byte, 64)
		}
		pipes[id] = p
	}
	out := make(map[party.ID]protocol.Network, len(parties))
	for id, p := range pipes {
		out[id] = p
	}
	return out
}

func (p *pipe) Send(ctx context.Context, to party.ID, data []byte) error {
	peer, ok := p.peers[to]
	if !ok || to == p.self {
		return fmt.Errorf("pipe: unknown party %v", to)
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	select {
	case peer.inbox[p.self] <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipe) Receive(ctx context.Context, from party.ID) ([]byte, error) {
	c, ok := p.inbox[from]
	if !ok {
		return nil, fmt.Errorf("pipe: unknown party %v", from)
	}
	select {
	case data := <-c:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipe) SendToAll(ctx context.Context, data []byte) error {
	for _, id := range p.other {
		if err := p.Send(ctx, id, data); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipe) ReceiveFromAll(ctx context.Context) (map[party.ID][]byte, error) {
	out := make(map[party.ID][]byte, len(p.other))
	for _, id := range p.other {
		data, err := p.Receive(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = data
	}
	return out, nil
}
