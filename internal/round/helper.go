package round

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"MPC_SPDZ/pkg/hash"
	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/ring"
)

// Info is the static information a session is created from.
type Info struct {
	// ProtocolID is an identifier for this protocol
	ProtocolID string
	// SelfID is this party's ID.
	SelfID party.ID
	// PartyIDs is a sorted slice of participating parties in this protocol.
	PartyIDs []party.ID
	// Ring all values are computed in.
	Ring ring.Ring
	// Rand is the local randomness source. If nil, crypto/rand is used.
	Rand io.Reader
	// EchoTwoParty forces broadcast validation when there are only two parties,
	// where it is otherwise skipped.
	EchoTwoParty bool
}

// Helper implements Session without Round, and can be embedded in any round.
type Helper struct {
	info Info

	// ssid the unique identifier for this protocol execution
	ssid []byte

	partyIDs      party.IDSlice
	otherPartyIDs party.IDSlice
}

// NewSession creates a new *Helper which can be embedded in the first Round,
// so that the full struct implements Session.
// `sessionID` is an optional byte slice that can be provided by the user.
// When used, it should be unique for each execution of the protocol.
// It could be a simple counter which is incremented after execution,  or a common random string.
func NewSession(info Info, sessionID []byte) (*Helper, error) {
	partyIDs := party.NewIDSlice(info.PartyIDs)
	if err := partyIDs.Valid(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	if !partyIDs.Contains(info.SelfID) {
		return nil, errors.New("session: selfID not included in partyIDs")
	}

	if info.Ring == nil {
		return nil, errors.New("session: ring is nil")
	}

	if info.Rand == nil {
		info.Rand = rand.Reader
	}

	h := hash.New()
	if err := h.WriteAny(&hash.BytesWithDomain{
		TheDomain: "Protocol ID",
		Bytes:     []byte(info.ProtocolID),
	}); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if err := h.WriteAny(&hash.BytesWithDomain{
		TheDomain: "Ring",
		Bytes:     []byte(info.Ring.Name()),
	}); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if err := h.WriteAny(partyIDs); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if sessionID != nil {
		if err := h.WriteAny(&hash.BytesWithDomain{
			TheDomain: "Session ID",
			Bytes:     sessionID,
		}); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}

	info.PartyIDs = partyIDs
	return &Helper{
		info:          info,
		ssid:          h.Sum(),
		partyIDs:      partyIDs,
		otherPartyIDs: partyIDs.Remove(info.SelfID),
	}, nil
}

// HashForID returns a clone of the hash.Hash for this session, initialized with the given id.
func (h *Helper) HashForID(id party.ID) *hash.Hash {
	state := h.Hash()
	if id != 0 {
		_ = state.WriteAny(id)
	}
	return state
}

// Hash returns a hash state bound to this session.
func (h *Helper) Hash() *hash.Hash {
	return hash.New(&hash.BytesWithDomain{TheDomain: "SSID", Bytes: h.ssid})
}

// BroadcastMessage sends content to every other party, for the round with the given number.
func (h *Helper) BroadcastMessage(out chan<- *Message, number Number, content Content) {
	out <- &Message{
		From:      h.info.SelfID,
		Broadcast: true,
		Number:    number,
		Content:   content,
	}
}

// ResultRound returns a round that contains only the result of the protocol.
// This indicates to the used that the protocol is finished.
func (h *Helper) ResultRound(result interface{}) Session {
	return &Output{
		Helper: h,
		Result: result,
	}
}

// AbortRound returns a round that contains only the culprits that were able to be identified during
// a faulty execution of the protocol. The error returned by Round.Finalize() in this case should still be nil.
func (h *Helper) AbortRound(err error, culprits ...party.ID) Session {
	return &Abort{
		Helper:   h,
		Culprits: culprits,
		Err:      err,
	}
}

// ProtocolID is an identifier for this protocol.
func (h *Helper) ProtocolID() string { return h.info.ProtocolID }

// SSID the unique identifier for this protocol execution.
func (h *Helper) SSID() []byte { return h.ssid }

// SelfID is this party's ID.
func (h *Helper) SelfID() party.ID { return h.info.SelfID }

// PartyIDs is a sorted slice of participating parties in this protocol.
func (h *Helper) PartyIDs() party.IDSlice { return h.partyIDs }

// OtherPartyIDs returns a sorted list of parties that does not contain SelfID.
func (h *Helper) OtherPartyIDs() party.IDSlice { return h.otherPartyIDs }

// N returns the number of participants.
func (h *Helper) N() int { return len(h.info.PartyIDs) }

// Ring is the ring values of this session live in.
func (h *Helper) Ring() ring.Ring { return h.info.Ring }

// Rand is the local randomness source.
func (h *Helper) Rand() io.Reader { return h.info.Rand }

// EchoTwoParty reports whether broadcast validation runs even with two parties.
func (h *Helper) EchoTwoParty() bool { return h.info.EchoTwoParty }
