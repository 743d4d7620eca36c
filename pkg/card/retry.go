package card

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/samber/lo"
)

// PIN reference lifecycle states.
const (
	StateUnverified = "unverified"
	StateVerified   = "verified"
	StateBlocked    = "blocked"
)

const (
	eventSucceed = "succeed"
	eventFail    = "fail"
	eventExhaust = "exhaust"
)

// Outcome is the result of a verify attempt, before encoding.
type Outcome int

const (
	OutcomeOk Outcome = iota
	OutcomeFailed
	OutcomeNoInformation
	OutcomeBlocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOk:
		return "ok"
	case OutcomeFailed:
		return "failed"
	case OutcomeNoInformation:
		return "no_information"
	case OutcomeBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// VerifyResult carries an Outcome and the counter left after the attempt.
// Matched is only meaningful for OutcomeBlocked: it records whether the
// presented data was the right PIN.
type VerifyResult struct {
	Outcome   Outcome
	Remaining int
	Matched   bool
}

// PinReference is one stored PIN with its retry counter.
type PinReference struct {
	ID        ReferenceID
	secret    []byte
	remaining int
	max       int
	lifecycle *fsm.FSM
}

func newPinReference(id ReferenceID, secret []byte, maxRetries int) *PinReference {
	return &PinReference{
		ID:        id,
		secret:    append([]byte(nil), secret...),
		remaining: maxRetries,
		max:       maxRetries,
		lifecycle: fsm.NewFSM(
			StateUnverified,
			fsm.Events{
				{Name: eventSucceed, Src: []string{StateUnverified, StateVerified}, Dst: StateVerified},
				{Name: eventFail, Src: []string{StateUnverified, StateVerified}, Dst: StateUnverified},
				{Name: eventExhaust, Src: []string{StateUnverified, StateVerified}, Dst: StateBlocked},
			},
			fsm.Callbacks{},
		),
	}
}

// Remaining returns the number of attempts left.
func (r *PinReference) Remaining() int {
	return r.remaining
}

// State returns the lifecycle state name.
func (r *PinReference) State() string {
	return r.lifecycle.Current()
}

// IsBlocked reports whether the counter reached zero.
func (r *PinReference) IsBlocked() bool {
	return r.lifecycle.Is(StateBlocked)
}

// IsVerified reports whether the last attempt succeeded.
func (r *PinReference) IsVerified() bool {
	return r.lifecycle.Is(StateVerified)
}

func (r *PinReference) matches(data []byte) bool {
	return subtle.ConstantTimeCompare(r.secret, data) == 1
}

func (r *PinReference) succeed() error {
	r.remaining = r.max
	return r.fire(eventSucceed)
}

func (r *PinReference) fail() error {
	if r.remaining > 0 {
		r.remaining--
	}
	if r.remaining == 0 {
		return r.fire(eventExhaust)
	}
	return r.fire(eventFail)
}

func (r *PinReference) fire(event string) error {
	err := r.lifecycle.Event(context.Background(), event)

	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		return fmt.Errorf("reference %s: %w", r.ID, err)
	}
	return nil
}

// RetryStateMachine tracks one PinReference per defined reference id.
// It is not safe for concurrent use.
type RetryStateMachine struct {
	maxRetries int
	refs       map[ReferenceID]*PinReference
}

// NewRetryStateMachine creates the state machine with every reference at
// maxRetries. pins must hold a non-empty secret for each defined reference.
func NewRetryStateMachine(maxRetries int, pins map[ReferenceID][]byte) (*RetryStateMachine, error) {
	if maxRetries < 1 || maxRetries > MaxRetriesLimit {
		return nil, fmt.Errorf("%w: max retries %d out of range [1, %d]", ErrInvalidConfig, maxRetries, MaxRetriesLimit)
	}

	m := &RetryStateMachine{
		maxRetries: maxRetries,
		refs:       make(map[ReferenceID]*PinReference, len(References)),
	}

	for id := range pins {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownReference, byte(id))
		}
	}

	for _, id := range References {
		secret, ok := pins[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotProvisioned, id)
		}
		if len(secret) == 0 || len(secret) > maxPINLength {
			return nil, fmt.Errorf("%w: %s pin length %d", ErrInvalidPIN, id, len(secret))
		}
		m.refs[id] = newPinReference(id, secret, maxRetries)
	}

	return m, nil
}

// MaxRetries returns the counter ceiling.
func (m *RetryStateMachine) MaxRetries() int {
	return m.maxRetries
}

// Reference returns the state of reference id.
func (m *RetryStateMachine) Reference(id ReferenceID) (*PinReference, error) {
	ref, ok := m.refs[id]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownReference, byte(id))
	}
	return ref, nil
}

// Inquire returns the remaining attempts of reference id. It never changes
// state.
func (m *RetryStateMachine) Inquire(id ReferenceID) (int, error) {
	ref, err := m.Reference(id)
	if err != nil {
		return 0, err
	}
	return ref.Remaining(), nil
}

// Verify compares data with reference id.
//
// A blocked reference answers OutcomeBlocked and keeps its counter. Empty
// data is a failed attempt reported as OutcomeNoInformation. Otherwise a
// match resets the counter and a mismatch decrements it.
func (m *RetryStateMachine) Verify(id ReferenceID, data []byte) (VerifyResult, error) {
	ref, err := m.Reference(id)
	if err != nil {
		return VerifyResult{}, err
	}

	if ref.IsBlocked() {
		return VerifyResult{
			Outcome: OutcomeBlocked,
			Matched: len(data) > 0 && ref.matches(data),
		}, nil
	}

	if len(data) == 0 {
		if err := ref.fail(); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{Outcome: OutcomeNoInformation, Remaining: ref.Remaining()}, nil
	}

	if ref.matches(data) {
		if err := ref.succeed(); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{Outcome: OutcomeOk, Remaining: ref.Remaining()}, nil
	}

	if err := ref.fail(); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Outcome: OutcomeFailed, Remaining: ref.Remaining()}, nil
}

// Blocked lists the blocked references in P2 order.
func (m *RetryStateMachine) Blocked() []ReferenceID {
	return lo.Filter(References, func(id ReferenceID, _ int) bool {
		return m.refs[id].IsBlocked()
	})
}
