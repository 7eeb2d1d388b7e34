package protocol

import (
	"errors"
	"fmt"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/party"
)

// The three categories every failure of a protocol falls into. Use errors.Is to classify.
var (
	// ErrCheatingDetected is fatal and security relevant: the session must be torn down
	// and nothing computed in it may be trusted.
	ErrCheatingDetected = round.ErrCheatingDetected
	// ErrProtocolUsage indicates a programming error by the caller.
	ErrProtocolUsage = round.ErrProtocolUsage
	// ErrTransport wraps a failure of the Network.
	ErrTransport = round.ErrTransport
)

// Error is a custom error for protocols which contains information about the responsible round in which it occurred,
// and the party responsible.
type Error struct {
	// Culprits is empty if the identity of the misbehaving party cannot be known.
	Culprits []party.ID
	// Err is the underlying error.
	Err error
}

// Error implement error.
func (e Error) Error() string {
	if e.Culprits == nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("culprits: %v: %s", e.Culprits, e.Err)
}

// Unwrap implement errors.Wrapper.
func (e Error) Unwrap() error {
	return e.Err
}

// categorize wraps err in category, unless it already falls into one of the three categories.
func categorize(err, category error) error {
	for _, c := range []error{ErrCheatingDetected, ErrProtocolUsage, ErrTransport} {
		if errors.Is(err, c) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", category, err)
}

// peerAbort is returned when another party announced that it aborted the session.
// Nothing computed in the session may be trusted afterwards, so it counts as detected cheating.
type peerAbort struct {
	from   party.ID
	reason string
}

func (e peerAbort) Error() string {
	return fmt.Sprintf("aborted by party %v: %s", e.from, e.reason)
}

func (peerAbort) Unwrap() error {
	return ErrCheatingDetected
}
