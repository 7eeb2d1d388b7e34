package round

import (
	"fmt"

	"MPC_SPDZ/pkg/party"
)

// Output is an empty round containing the output of the protocol.
type Output struct {
	*Helper
	Result interface{}
}

// VerifyMessage implements round.Round.
func (Output) VerifyMessage(Message) error { return nil }

// StoreMessage implements round.Round.
func (Output) StoreMessage(Message) error { return nil }

// Finalize implements round.Round.
func (Output) Finalize(chan<- *Message) (Session, error) {
	return nil, fmt.Errorf("round: finalize on output round: %w", ErrProtocolUsage)
}

// MessageContent implements round.Round.
func (Output) MessageContent() Content { return nil }

// Number implements round.Round.
func (Output) Number() Number { return 0 }

// Abort is an empty round containing a list of parties who misbehaved.
type Abort struct {
	*Helper
	Culprits []party.ID
	Err      error
}

// VerifyMessage implements round.Round.
func (Abort) VerifyMessage(Message) error { return nil }

// StoreMessage implements round.Round.
func (Abort) StoreMessage(Message) error { return nil }

// Finalize implements round.Round.
func (r *Abort) Finalize(chan<- *Message) (Session, error) {
	return nil, fmt.Errorf("round: finalize on aborted round (%v): %w", r.Err, ErrProtocolUsage)
}

// MessageContent implements round.Round.
func (Abort) MessageContent() Content { return nil }

// Number implements round.Round.
func (Abort) Number() Number { return 0 }
