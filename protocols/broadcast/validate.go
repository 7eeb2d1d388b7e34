package broadcast

import (
	"bytes"
	"fmt"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/hash"
	"MPC_SPDZ/pkg/party"
)

// Validate checks that every party received the same payloads, and continues with next if so.
// A mismatch aborts with round.ErrCheatingDetected and no culprit.
//
// With two parties the check is skipped unless the session requires the echo.
func Validate(helper *round.Helper, number round.Number, payloads [][]byte, next Next) (round.Session, error) {
	if helper.N() <= 2 && !helper.EchoTwoParty() {
		return next(number, payloads)
	}
	return &echo{
		Helper:   helper,
		number:   number,
		payloads: payloads,
		next:     next,
	}, nil
}

type echo struct {
	*round.Helper
	number   round.Number
	payloads [][]byte
	next     Next
}

type echoMessage struct {
	Digest []byte
}

// VerifyMessage implements round.Round.
func (echo) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (echo) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round
//
// - send the digest of the received payloads to all parties.
func (r *echo) Finalize(out chan<- *round.Message) (round.Session, error) {
	d := digest(r.Helper, r.payloads)
	r.BroadcastMessage(out, r.number+1, &echoMessage{Digest: d})
	return &compare{
		echo:    r,
		digests: map[party.ID][]byte{r.SelfID(): d},
	}, nil
}

// MessageContent implements round.Round.
func (echo) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (r *echo) Number() round.Number { return r.number }

type compare struct {
	*echo
	digests map[party.ID][]byte
}

// VerifyMessage implements round.Round.
func (r *compare) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*echoMessage)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if len(body.Digest) != hash.DigestLengthBytes {
		return fmt.Errorf("broadcast: echo digest has length %d", len(body.Digest))
	}
	return nil
}

// StoreMessage implements round.Round.
func (r *compare) StoreMessage(msg round.Message) error {
	r.digests[msg.From] = msg.Content.(*echoMessage).Digest
	return nil
}

// Finalize implements round.Round
//
// - compare all echoed digests with our own.
func (r *compare) Finalize(out chan<- *round.Message) (round.Session, error) {
	own := r.digests[r.SelfID()]
	for _, id := range r.OtherPartyIDs() {
		d, ok := r.digests[id]
		if !ok {
			return r, fmt.Errorf("broadcast: missing echo from %v", id)
		}
		if !bytes.Equal(own, d) {
			return r.AbortRound(fmt.Errorf("broadcast: inconsistent echoes: %w", round.ErrCheatingDetected)), nil
		}
	}
	next, err := r.next(r.number+1, r.payloads)
	if err != nil {
		return r, err
	}
	return round.Continue(next, out)
}

// MessageContent implements round.Round.
func (compare) MessageContent() round.Content { return &echoMessage{} }

// Number implements round.Round.
func (r *compare) Number() round.Number { return r.number + 1 }
