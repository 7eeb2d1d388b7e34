package protocol

import (
	"context"
	"errors"
	"fmt"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/party"

	log "github.com/sirupsen/logrus"
)

// StartFunc is function that creates the first round of a protocol.
// It returns the first round initialized with the session information.
// If the creation fails (likely due to misconfiguration), and error is returned.
//
// An optional sessionID can be provided, which should unique among all protocol executions.
type StartFunc func(sessionID []byte) (round.Session, error)

// Run drives a protocol to completion over a blocking Network, one round at a time.
// It returns the Result of the final round, or an Error whose Err falls into one of
// ErrCheatingDetected, ErrProtocolUsage or ErrTransport.
//
// When this party aborts, it sends an abort notice to the others, so that they stop waiting
// for it. A notice received from another party ends the session with ErrCheatingDetected.
//
// ctx is only checked between rounds and passed to the network.
func Run(ctx context.Context, create StartFunc, sessionID []byte, network Network) (interface{}, error) {
	r, err := create(sessionID)
	if err != nil {
		return nil, Error{Err: categorize(fmt.Errorf("protocol: failed to create round: %w", err), ErrProtocolUsage)}
	}
	logger := log.WithFields(log.Fields{
		"party":    r.SelfID(),
		"protocol": r.ProtocolID(),
	})

	result, err := run(ctx, r, network, logger)
	if err != nil {
		var notice peerAbort
		if !errors.As(err, &notice) {
			notifyAbort(ctx, r, network, err, logger)
		}
		return nil, err
	}
	return result, nil
}

func run(ctx context.Context, r round.Session, network Network, logger log.FieldLogger) (interface{}, error) {
	for {
		switch R := r.(type) {
		case *round.Output:
			logger.Infoln("protocol done")
			return R.Result, nil
		case *round.Abort:
			logger.Errorf("protocol aborted: %v", R.Err)
			return nil, Error{Culprits: R.Culprits, Err: R.Err}
		}

		if err := ctx.Err(); err != nil {
			return nil, Error{Err: fmt.Errorf("%w: %v", ErrTransport, err)}
		}

		if r.MessageContent() != nil {
			if err := receiveRound(ctx, r, network); err != nil {
				return nil, err
			}
		}

		out := make(chan *round.Message, r.N()+1)
		next, err := r.Finalize(out)
		close(out)
		if err == nil && next == nil {
			err = fmt.Errorf("round %d returned no next round", r.Number())
		}
		if err != nil {
			logger.Errorf("failed to finalize round %d: %v", r.Number(), err)
			return nil, Error{Err: categorize(err, ErrProtocolUsage)}
		}

		for roundMsg := range out {
			msg, err := newMessage(next, roundMsg)
			if err != nil {
				return nil, Error{Err: categorize(err, ErrTransport)}
			}
			data, err := msg.MarshalBinary()
			if err != nil {
				return nil, Error{Err: categorize(err, ErrTransport)}
			}
			logger.WithField("round", msg.RoundNumber).Debugf("sending %v", msg)
			if msg.Broadcast {
				err = network.SendToAll(ctx, data)
			} else {
				err = network.Send(ctx, msg.To, data)
			}
			if err != nil {
				logger.Errorf("failed to send round %d message: %v", msg.RoundNumber, err)
				return nil, Error{Err: fmt.Errorf("%w: %v", ErrTransport, err)}
			}
		}

		if next.Number() != 0 {
			logger.Infof("switch to new round %v", next.Number())
		}
		r = next
	}
}

// notifyAbort sends the abort notice of session r to every other party. Failures are only logged,
// the session already failed.
func notifyAbort(ctx context.Context, r round.Session, network Network, err error, logger log.FieldLogger) {
	data, e := newAbortNotice(r, err).MarshalBinary()
	if e == nil {
		e = network.SendToAll(ctx, data)
	}
	if e != nil {
		logger.Warnf("failed to send abort notice: %v", e)
	}
}

// receiveRound waits for the message of every other party in round r and stores them.
func receiveRound(ctx context.Context, r round.Session, network Network) error {
	frames, err := network.ReceiveFromAll(ctx)
	if err != nil {
		log.Errorln("fail ReceiveFromAll")
		return Error{Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	for _, id := range r.OtherPartyIDs() {
		data, ok := frames[id]
		if !ok {
			return Error{Err: fmt.Errorf("%w: no message from %v in round %d", ErrTransport, id, r.Number())}
		}
		msg := &Message{}
		if err = msg.UnmarshalBinary(data); err != nil {
			return Error{Culprits: []party.ID{id}, Err: fmt.Errorf("malformed message: %v: %w", err, ErrCheatingDetected)}
		}
		if isAbortNotice(msg, r, id) {
			return Error{Err: peerAbort{from: id, reason: string(msg.Data)}}
		}
		if err = deliver(msg, r, id); err != nil {
			if !errors.Is(err, ErrCheatingDetected) {
				err = fmt.Errorf("%v: %w", err, ErrCheatingDetected)
			}
			return Error{Culprits: []party.ID{id}, Err: err}
		}
	}
	return nil
}
