// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/party"
)

// Handler represents some kind of handler for a protocol.
type Handler interface {
	// Result should return the result of running the protocol, or an error
	Result() (interface{}, error)
	// Listen returns a channel which will receive new messages
	Listen() <-chan *Message
	// Stop should abort the protocol execution.
	Stop()
	// CanAccept checks whether or not a message can be accepted at the current point in the protocol.
	CanAccept(msg *Message) bool
	// Accept advances the protocol execution after receiving a message.
	Accept(msg *Message)
}

// MultiHandler represents an execution of a given protocol.
// It provides a simple interface for the user to receive/deliver protocol messages,
// for transports that are channel based rather than blocking. See Run for the blocking variant.
type MultiHandler struct {
	currentRound round.Session
	err          *Error
	result       interface{}
	// messages received ahead of time, by round and sender
	messages map[round.Number]map[party.ID]*Message
	out      chan *Message
	mtx      sync.Mutex
}

// NewMultiHandler creates a handler for a protocol based on the provided StartFunc.
func NewMultiHandler(create StartFunc, sessionID []byte) (*MultiHandler, error) {
	r, err := create(sessionID)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to create round: %w", err)
	}
	h := &MultiHandler{
		currentRound: r,
		messages:     map[round.Number]map[party.ID]*Message{},
		out:          make(chan *Message, 2*r.N()),
	}
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.finalize()
	return h, nil
}

// Result returns the protocol result if the protocol completed successfully.
func (h *MultiHandler) Result() (interface{}, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.result != nil {
		return h.result, nil
	}
	if h.err != nil {
		return nil, *h.err
	}
	return nil, errors.New("protocol: not finished")
}

// Listen returns a channel with outgoing messages that must be sent to other parties.
// The channel is closed when either an error occurs or the protocol detects an error.
func (h *MultiHandler) Listen() <-chan *Message {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.out
}

// CanAccept returns true if the message is designated for this protocol execution.
func (h *MultiHandler) CanAccept(msg *Message) bool {
	r := h.currentRound
	if msg == nil {
		return false
	}
	// are we the intended recipient
	if !msg.IsFor(r.SelfID()) {
		return false
	}
	// is the protocol ID correct
	if msg.Protocol != r.ProtocolID() {
		return false
	}
	// check for same SSID
	if !bytes.Equal(msg.SSID, r.SSID()) {
		return false
	}
	// do we know the sender
	if !r.PartyIDs().Contains(msg.From) {
		return false
	}
	// data is cannot be nil
	if msg.Data == nil {
		return false
	}
	// messages of past rounds are never needed again
	if msg.RoundNumber < r.Number() && msg.RoundNumber > 0 {
		return false
	}
	return true
}

// Accept tries to process the given message. If an abort occurs, the channel returned by Listen() is closed,
// and an error is returned by Result().
//
// This function may be called concurrently from different threads but may block until all previous calls have finished.
func (h *MultiHandler) Accept(msg *Message) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	// exit early if the message is bad, or if we are already done
	if h.err != nil || h.result != nil || !h.CanAccept(msg) || h.duplicate(msg) {
		return
	}

	// a msg with roundNumber 0 is considered an abort from another party
	if msg.RoundNumber == 0 {
		h.abort(fmt.Errorf("aborted by other party with error: %q", msg.Data), msg.From)
		return
	}

	h.store(msg)
	h.finalize()
}

// finalize advances through every round whose messages have all been received.
func (h *MultiHandler) finalize() {
	for {
		r := h.currentRound
		if !h.receivedAll() {
			return
		}

		if r.MessageContent() != nil {
			for _, id := range r.OtherPartyIDs() {
				if err := deliver(h.messages[r.Number()][id], r, id); err != nil {
					h.abort(err, id)
					return
				}
			}
			delete(h.messages, r.Number())
		}

		out := make(chan *round.Message, r.N()+1)
		next, err := r.Finalize(out)
		close(out)
		if err == nil && next == nil {
			err = fmt.Errorf("round %d returned no next round: %w", r.Number(), ErrProtocolUsage)
		}
		if err != nil {
			h.abort(err, r.SelfID())
			return
		}

		for roundMsg := range out {
			msg, err := newMessage(next, roundMsg)
			if err != nil {
				panic(err)
			}
			log.Debugf("%v", msg)
			h.out <- msg
		}

		switch R := next.(type) {
		case *round.Abort:
			h.abort(R.Err, R.Culprits...)
			return
		case *round.Output:
			h.result = R.Result
			h.abort(nil)
			return
		}

		log.Infof("party %v: switch to new round %v", r.SelfID(), next.Number())
		h.currentRound = next
	}
}

// abort records err, notifies the other parties and closes the out channel.
func (h *MultiHandler) abort(err error, culprits ...party.ID) {
	if err != nil {
		h.err = &Error{
			Culprits: culprits,
			Err:      err,
		}
		select {
		case h.out <- newAbortNotice(h.currentRound, h.err):
		default:
		}
	}
	close(h.out)
}

// Stop cancels the current execution of the protocol, and alerts the other users.
func (h *MultiHandler) Stop() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.err == nil && h.result == nil {
		h.abort(errors.New("aborted by user"), h.currentRound.SelfID())
	}
}

// receivedAll checks whether the current round has a message from every other party.
func (h *MultiHandler) receivedAll() bool {
	r := h.currentRound
	if r.MessageContent() == nil {
		return true
	}
	q := h.messages[r.Number()]
	for _, id := range r.OtherPartyIDs() {
		if q[id] == nil {
			return false
		}
	}
	return true
}

// duplicate checks whether a message from the same sender was already received for that round.
func (h *MultiHandler) duplicate(msg *Message) bool {
	q := h.messages[msg.RoundNumber]
	return q != nil && q[msg.From] != nil
}

func (h *MultiHandler) store(msg *Message) {
	q, ok := h.messages[msg.RoundNumber]
	if !ok {
		q = make(map[party.ID]*Message, h.currentRound.N())
		h.messages[msg.RoundNumber] = q
	}
	q[msg.From] = msg
}

// The String method is defined on the MultiHandler struct and returns a string
func (h *MultiHandler) String() string {
	return fmt.Sprintf("party: %s, protocol: %s", h.currentRound.SelfID(), h.currentRound.ProtocolID())
}
