package test

import (
	"fmt"
	"reflect"

	"MPC_SPDZ/internal/round"
	"MPC_SPDZ/pkg/party"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sync/errgroup"
)

// Rule describes various hooks that can be applied to a protocol execution.
type Rule interface {
	// ModifyBefore modifies r before r.Finalize() is called.
	ModifyBefore(r round.Session)
	// ModifyAfter modifies rNext, which is the round returned by r.Finalize().
	ModifyAfter(rNext round.Session)
	// ModifyContent modifies the copy of msg that is delivered to the party `to`.
	// Modifying the content differently for different recipients simulates an equivocating sender.
	ModifyContent(msg *round.Message, to party.ID)
}

// ContentRule is a Rule which only modifies delivered content.
type ContentRule func(msg *round.Message, to party.ID)

func (ContentRule) ModifyBefore(round.Session) {}
func (ContentRule) ModifyAfter(round.Session)  {}
func (f ContentRule) ModifyContent(msg *round.Message, to party.ID) {
	f(msg, to)
}

// Rounds finalizes every round in lock step and delivers the resulting messages to the next rounds.
// rounds is updated in place. It returns true once all parties reached a terminal round.
func Rounds(rounds []round.Session, rule Rule) (error, bool) {
	var (
		err      error
		errGroup errgroup.Group
		N        = len(rounds)
		out      = make(chan *round.Message, N*(N+1))
	)

	if _, err = checkAllRoundsSame(rounds); err != nil {
		return err, false
	}

	for id := range rounds {
		idx := id
		r := rounds[idx]
		errGroup.Go(func() error {
			if rule != nil {
				rule.ModifyBefore(r)
			}
			rNew, err := r.Finalize(out)
			if err != nil {
				return err
			}
			if rule != nil {
				rule.ModifyAfter(rNew)
			}
			rounds[idx] = rNew
			return nil
		})
	}
	if err = errGroup.Wait(); err != nil {
		return err, false
	}
	close(out)

	roundType, err := checkAllRoundsSame(rounds)
	if err != nil {
		return err, false
	}
	switch roundType {
	case reflect.TypeOf(&round.Output{}):
		return nil, true
	}

	for msg := range out {
		msgBytes, err := cbor.Marshal(msg.Content)
		if err != nil {
			return err, false
		}
		for _, r := range rounds {
			m := *msg
			r := r
			if !m.IsFor(r.SelfID()) || m.Number != r.Number() || r.MessageContent() == nil {
				continue
			}
			errGroup.Go(func() error {
				m.Content = r.MessageContent()
				if err := cbor.Unmarshal(msgBytes, m.Content); err != nil {
					return err
				}
				if rule != nil {
					rule.ModifyContent(&m, r.SelfID())
				}
				if err := r.VerifyMessage(m); err != nil {
					return err
				}
				return r.StoreMessage(m)
			})
		}
		if err = errGroup.Wait(); err != nil {
			return err, false
		}
	}
	return nil, false
}

// RunRounds calls Rounds until all parties reached a terminal round, and returns these.
func RunRounds(rounds []round.Session, rule Rule) (map[party.ID]round.Session, error) {
	for {
		err, done := Rounds(rounds, rule)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	out := make(map[party.ID]round.Session, len(rounds))
	for _, r := range rounds {
		out[r.SelfID()] = r
	}
	return out, nil
}

// checkAllRoundsSame is used to check if all rounds in the given slice have the same type and returns that type.
// Output and Abort count as the same type, since only some parties may detect a cheater.
func checkAllRoundsSame(rounds []round.Session) (reflect.Type, error) {
	var t reflect.Type
	for _, r := range rounds {
		t2 := reflect.TypeOf(r)
		switch r.(type) {
		case *round.Output, *round.Abort:
			t2 = reflect.TypeOf(&round.Output{})
		}
		if t == nil {
			t = t2
		} else if t != t2 {
			return t, fmt.Errorf("two different rounds: %s %s", t, t2)
		}
	}
	return t, nil
}
