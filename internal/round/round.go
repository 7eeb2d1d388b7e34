// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package round is the state machine every protocol of this module is written in.
//
// A protocol is a chain of rounds. A round stores the messages addressed to it, and
// Finalize turns them into the messages of the next round and the next round itself.
// Rounds never block and never touch the network: a driver owns all I/O.
package round

import (
	"MPC_SPDZ/pkg/hash"
	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/ring"
	"io"
)

// Number is the index of a round within a session.
// Messages sent by round r carry the number of the round that receives them.
// 0 is reserved for the terminal rounds.
type Number uint16

type Round interface {
	// VerifyMessage handles an incoming message and validates its content.
	// The content argument can be cast to the appropriate type for this round without error check.
	// This function should not modify any saved state as it may be be running concurrently.
	VerifyMessage(msg Message) error

	// StoreMessage should be called after VerifyMessage and should only store the appropriate fields from the
	// content (no verification should be done here).
	// It should not run concurrently with any other message handling.
	StoreMessage(msg Message) error

	// Finalize is called after all messages from the parties have been processed in the current round.
	// Messages for the next round are sent out through the out channel.
	// If a non-critical error occurs (like a failure to sample, hash, or send a message), the current round can be
	// returned so that the caller may try to finalize again.
	//
	// If an abort occurs, the expected behavior is to return
	//   r.AbortRound(err, culprits), nil.
	// This indicates to the caller that the protocol has aborted due to a "math" error.
	//
	// In the last round, Finalize should return
	//   r.ResultRound(result), nil
	// where result is the output of the protocol.
	Finalize(out chan<- *Message) (Session, error)

	// MessageContent returns an uninitialized message.Content for this round.
	//
	// The first round of a protocol, and rounds which do not expect a message should return nil.
	MessageContent() Content

	// Number returns the current round number.
	Number() Number
}

// Session represents the current execution of a round-based protocol.
// It embeds the current round, and provides additional information about the session.
type Session interface {
	Round

	// ProtocolID is an identifier for this protocol.
	ProtocolID() string
	// SSID the unique identifier for this protocol execution.
	SSID() []byte
	// SelfID is this party's ID.
	SelfID() party.ID
	// PartyIDs is a sorted slice of participating parties in this protocol.
	PartyIDs() party.IDSlice
	// OtherPartyIDs returns a sorted list of parties that does not contain SelfID.
	OtherPartyIDs() party.IDSlice
	// N returns the number of participants.
	N() int
	// Ring is the ring all shared values of this session live in.
	Ring() ring.Ring
	// Rand is the source of this party's local randomness.
	Rand() io.Reader
	// Hash returns a cloned hash function with the current hash state.
	Hash() *hash.Hash
}

// Continue finalizes next right away if it does not wait for any message,
// which is how a protocol hands over to the start round of a sub-protocol
// without spending an empty network round.
func Continue(next Session, out chan<- *Message) (Session, error) {
	switch next.(type) {
	case *Output, *Abort:
		return next, nil
	}
	if next.MessageContent() != nil {
		return next, nil
	}
	return next.Finalize(out)
}
