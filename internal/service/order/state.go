package order

import (
	"fmt"

	"go.uber.org/zap"
)

// State is a step in the life of a single submission.
type State string

const (
	StateDraft                 State = "draft"
	StateNumberRequested       State = "number_requested"
	StateNumberObtained        State = "number_obtained"
	StateOrderRowPersisted     State = "order_row_persisted"
	StateItemsPersisting       State = "items_persisting"
	StateItemsPersisted        State = "items_persisted"
	StateItemsPartiallyFailed  State = "items_partially_failed"
	StateVerifying             State = "verifying"
	StateVerified              State = "verified"
	StateAssumedSuccess        State = "assumed_success"
	StateDelivered             State = "delivered"
	StateAllocationFailed      State = "allocation_failed"
	StateOrderRowPersistFailed State = "order_row_persist_failed"
)

var transitions = map[State][]State{
	StateDraft:                {StateNumberRequested},
	StateNumberRequested:      {StateNumberObtained, StateAllocationFailed, StateOrderRowPersistFailed},
	StateNumberObtained:       {StateOrderRowPersisted},
	StateOrderRowPersisted:    {StateItemsPersisting},
	StateItemsPersisting:      {StateItemsPersisted, StateItemsPartiallyFailed},
	StateItemsPersisted:       {StateVerifying},
	StateItemsPartiallyFailed: {StateVerifying},
	StateVerifying:            {StateVerified, StateAssumedSuccess},
	StateVerified:             {StateDelivered},
	StateAssumedSuccess:       {StateDelivered},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Tracker walks one submission through its states.
type Tracker struct {
	state   State
	history []State
	logger  *zap.Logger
}

// NewTracker starts in StateDraft.
func NewTracker(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{state: StateDraft, history: []State{StateDraft}, logger: logger}
}

// Advance moves to next, rejecting transitions the lifecycle does not allow.
func (t *Tracker) Advance(next State) error {
	for _, allowed := range transitions[t.state] {
		if allowed == next {
			t.logger.Debug("submission state", zap.String("from", string(t.state)), zap.String("to", string(next)))
			t.state = next
			t.history = append(t.history, next)
			return nil
		}
	}
	return fmt.Errorf("illegal submission transition %s -> %s", t.state, next)
}

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// History returns every state visited, in order.
func (t *Tracker) History() []State {
	return append([]State(nil), t.history...)
}

// Field renders the visited states for a log line.
func (t *Tracker) Field() zap.Field {
	states := make([]string, len(t.history))
	for i, s := range t.history {
		states[i] = string(s)
	}
	return zap.Strings("states", states)
}
