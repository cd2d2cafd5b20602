package coordinator

import (
	"fmt"

	"github.com/cuemby/tableside/pkg/merge"
	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/cuemby/tableside/pkg/types"
)

// State is the lifecycle position of one mutation:
// idle -> optimistic -> committed | rolled-back
type State int

const (
	StateIdle State = iota
	StateOptimistic
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOptimistic:
		return "optimistic"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled-back"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Settled reports whether the state is terminal
func (s State) Settled() bool {
	return s == StateCommitted || s == StateRolledBack
}

// Mutation records one optimistic change and how it settled
type Mutation struct {
	Kind            merge.MutationKind
	ReservationCode string
	OrderID         types.LineID
	Entries         []types.PendingEntry
	State           State
	Err             error

	timer *metrics.Timer
}

func newMutation(kind merge.MutationKind, reservationCode string, orderID types.LineID) *Mutation {
	return &Mutation{
		Kind:            kind,
		ReservationCode: reservationCode,
		OrderID:         orderID,
		State:           StateIdle,
		timer:           metrics.NewTimer(),
	}
}

func (s State) next(to State) bool {
	switch s {
	case StateIdle:
		return to == StateOptimistic
	case StateOptimistic:
		return to == StateCommitted || to == StateRolledBack
	default:
		return false
	}
}

// transition moves the mutation forward; out-of-order moves are ignored
func (m *Mutation) transition(to State) {
	if m.State.next(to) {
		m.State = to
	}
}
