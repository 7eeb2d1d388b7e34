package round

import "errors"

var (
	// ErrCheatingDetected is fatal: some party deviated from the protocol and no
	// output of the session may be trusted.
	ErrCheatingDetected = errors.New("cheating detected")

	// ErrProtocolUsage indicates a programming error in the caller, such as running
	// a MAC check without opened values or finalizing a terminal round.
	ErrProtocolUsage = errors.New("protocol misuse")

	// ErrTransport wraps failures of the underlying network.
	ErrTransport = errors.New("transport failure")

	// ErrInvalidContent is returned by VerifyMessage for content of the wrong type.
	ErrInvalidContent = errors.New("invalid content")
)
