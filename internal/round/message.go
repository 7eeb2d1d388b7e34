package round

import (
	"MPC_SPDZ/pkg/party"
)

// Content is the payload of a round message. It is always a pointer to a struct
// that cbor can encode, and is sent as-is to every other party.
type Content interface{}

// Message is a round message, before serialization or after deserialization.
//
// To is 0 and Broadcast is true for messages sent to all other parties.
type Message struct {
	From, To  party.ID
	Broadcast bool
	Number    Number
	Content   Content
}

// IsFor returns true if the message is intended for the designated party.
func (m Message) IsFor(id party.ID) bool {
	if m.From == id {
		return false
	}
	return m.To == 0 || m.To == id
}
