package test

import (
	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/protocol"
)

// HandlerLoop relays the messages of party id between an asynchronous MultiHandler and the
// in-memory network until the handler closes its outgoing channel, which happens on output or
// abort. The abort notice of a failing party is relayed like any other message.
// It then waits for the other parties before returning, so results are read with h.Result().
func HandlerLoop(id party.ID, h protocol.Handler, network *Network) {
	outgoing, incoming := h.Listen(), network.Next(id)
	for {
		select {
		case msg, open := <-outgoing:
			if !open {
				<-network.Done(id)
				return
			}
			go network.Send(msg)
		case msg := <-incoming:
			h.Accept(msg)
		}
	}
}
