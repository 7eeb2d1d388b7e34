package broadcast

import (
	"fmt"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/party"
)

// StartInsecure returns the first round of a broadcast without any consistency guarantee:
// a dishonest sender may send different payloads to different parties.
func StartInsecure(helper *round.Helper, number round.Number, payload []byte, next Next) (round.Session, error) {
	return &send{
		Helper:  helper,
		number:  number,
		payload: payload,
		next:    next,
	}, nil
}

type send struct {
	*round.Helper
	number  round.Number
	payload []byte
	next    Next
}

// Message is the content each party sends in an insecure broadcast.
type Message struct {
	Payload []byte
}

// VerifyMessage implements round.Round.
func (send) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (send) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round
//
// - send the payload to all parties.
func (r *send) Finalize(out chan<- *round.Message) (round.Session, error) {
	r.BroadcastMessage(out, r.number+1, &Message{Payload: r.payload})
	return &receive{
		send:     r,
		payloads: map[party.ID][]byte{r.SelfID(): r.payload},
	}, nil
}

// MessageContent implements round.Round.
func (send) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (r *send) Number() round.Number { return r.number }

type receive struct {
	*send
	payloads map[party.ID][]byte
}

// VerifyMessage implements round.Round.
func (r *receive) VerifyMessage(msg round.Message) error {
	if _, ok := msg.Content.(*Message); !ok {
		return round.ErrInvalidContent
	}
	return nil
}

// StoreMessage implements round.Round.
//
// - save the payload of the sender, only the first message counts.
func (r *receive) StoreMessage(msg round.Message) error {
	if _, ok := r.payloads[msg.From]; ok {
		return fmt.Errorf("broadcast: second payload from %v", msg.From)
	}
	r.payloads[msg.From] = msg.Content.(*Message).Payload
	return nil
}

// Finalize implements round.Round
//
// - order the payloads by party ID and continue.
func (r *receive) Finalize(out chan<- *round.Message) (round.Session, error) {
	payloads := make([][]byte, 0, r.N())
	for _, id := range r.PartyIDs() {
		payload, ok := r.payloads[id]
		if !ok {
			return r, fmt.Errorf("broadcast: missing payload from %v", id)
		}
		payloads = append(payloads, payload)
	}
	next, err := r.next(r.number+1, payloads)
	if err != nil {
		return r, err
	}
	return round.Continue(next, out)
}

// MessageContent implements round.Round.
func (receive) MessageContent() round.Content { return &Message{} }

// Number implements round.Round.
func (r *receive) Number() round.Number { return r.number + 1 }
