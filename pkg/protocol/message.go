package protocol

import (
	"bytes"
	"fmt"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/party"

	"github.com/fxamacker/cbor/v2"
)

// Message is the envelope of a round message as it travels over the network.
type Message struct {
	// SSID is a byte string which uniquely identifies the session this message belongs to.
	SSID []byte
	// From is the party.ID of the sender
	From party.ID
	// To is the intended recipient for this message. If To == 0, then the message should be sent to all parties.
	To party.ID
	// Protocol identifies the protocol this message belongs to
	Protocol string
	// RoundNumber is the index of the round this message belongs to, 0 for an abort notice.
	RoundNumber round.Number
	// Data is the cbor encoded round content.
	Data []byte
	// Broadcast indicates whether this message should be sent to all other parties.
	Broadcast bool
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return fmt.Sprintf("message: round %d, from: %s, to %v, protocol: %s", m.RoundNumber, m.From, m.To, m.Protocol)
}

// IsFor returns true if the message is intended for the designated party.
func (m Message) IsFor(id party.ID) bool {
	if m.From == id {
		return false
	}
	return m.To == 0 || m.To == id
}

// wireMessage has the fields of Message without its methods, so that cbor encodes it as a map.
type wireMessage Message

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Message) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*wireMessage)(m))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *Message) UnmarshalBinary(data []byte) error {
	var deserialized wireMessage
	if err := cbor.Unmarshal(data, &deserialized); err != nil {
		return err
	}
	*m = Message(deserialized)
	return nil
}

// newMessage wraps an outgoing round message of session r in an envelope.
func newMessage(r round.Session, roundMsg *round.Message) (*Message, error) {
	data, err := cbor.Marshal(roundMsg.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal round message: %w", err)
	}
	return &Message{
		SSID:        r.SSID(),
		From:        r.SelfID(),
		To:          roundMsg.To,
		Protocol:    r.ProtocolID(),
		RoundNumber: roundMsg.Number,
		Data:        data,
		Broadcast:   roundMsg.Broadcast,
	}, nil
}

// newAbortNotice tells the other parties of session r that this party aborted because of err.
func newAbortNotice(r round.Session, err error) *Message {
	return &Message{
		SSID:      r.SSID(),
		From:      r.SelfID(),
		Protocol:  r.ProtocolID(),
		Data:      []byte(err.Error()),
		Broadcast: true,
	}
}

// isAbortNotice reports whether msg is the abort notice of `from` in the session of r.
func isAbortNotice(msg *Message, r round.Session, from party.ID) bool {
	return msg.RoundNumber == 0 && msg.From == from && msg.Protocol == r.ProtocolID() && bytes.Equal(msg.SSID, r.SSID())
}

// getRoundMessage checks that msg is the message `from` must send in round r,
// and unmarshals its content.
// An error means `from` sent something it should not have, and we should abort.
func getRoundMessage(msg *Message, r round.Session, from party.ID) (round.Message, error) {
	switch {
	case msg.From != from:
		return round.Message{}, fmt.Errorf("message claims to be from %v: %w", msg.From, ErrCheatingDetected)
	case msg.Protocol != r.ProtocolID(), !bytes.Equal(msg.SSID, r.SSID()):
		return round.Message{}, fmt.Errorf("message from another session: %w", ErrCheatingDetected)
	case msg.RoundNumber != r.Number():
		return round.Message{}, fmt.Errorf("message for round %d in round %d: %w", msg.RoundNumber, r.Number(), ErrCheatingDetected)
	}

	content := r.MessageContent()
	if err := cbor.Unmarshal(msg.Data, content); err != nil {
		return round.Message{}, fmt.Errorf("failed to unmarshal: %v: %w", err, ErrCheatingDetected)
	}
	return round.Message{
		From:      msg.From,
		To:        msg.To,
		Broadcast: msg.Broadcast,
		Number:    msg.RoundNumber,
		Content:   content,
	}, nil
}

// deliver decodes, verifies and stores the message of `from` in round r.
func deliver(msg *Message, r round.Session, from party.ID) error {
	roundMsg, err := getRoundMessage(msg, r, from)
	if err != nil {
		return err
	}
	if err = r.VerifyMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	if err = r.StoreMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	return nil
}
