// Package operator folds an ordered list of child states into one parent
// state. Each operator has its own precedence; the differences between them
// are deliberate.
package operator

import (
	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/state"
)

// Operator is a pure fold of child states into an aggregate.
type Operator interface {
	Evaluate(states ...state.State) (state.ParentState, error)
	String() string
}

// checkOperands rejects any destroyed operand before any folding happens.
func checkOperands(op string, states []state.State) error {
	for i, s := range states {
		if s == nil {
			return serrors.Newf(serrors.ErrCodeInvalidOperand, op, "operand %d is nil", i)
		}
		if s.IsDestroyed() {
			return serrors.Newf(serrors.ErrCodeInvalidOperand, op, "operand %d is %v", i, s)
		}
	}
	return nil
}

// jobTable is a pairwise combination matrix over the non-destroyed job states.
type jobTable [5][5]state.JobState

const (
	rdy = state.JobReady
	exe = state.JobExecuting
	cmp = state.JobComplete
	inc = state.JobIncomplete
	exc = state.JobException
)

// foldJobs converts every operand to the job family and left-folds it
// through table. The empty sequence folds to READY.
func foldJobs(op string, table *jobTable, states []state.State) (state.JobState, error) {
	if err := checkOperands(op, states); err != nil {
		return 0, err
	}
	acc := state.JobReady
	for n, s := range states {
		js, err := state.ToJobState(s)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			acc = js
			continue
		}
		acc = table[acc][js]
	}
	return acc, nil
}

// Personal.AI order the ending
