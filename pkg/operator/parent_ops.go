package operator

import (
	"github.com/turtacn/Strata/pkg/consts"
	"github.com/turtacn/Strata/pkg/state"
)

// precedence ranks parent states for one operator; the higher rank wins a
// pairwise combination.
type precedence struct {
	name string
	// normalize folds variants the operator does not distinguish.
	normalize func(state.ParentState) state.ParentState
	rank      map[state.ParentState]int
}

func (p *precedence) fold(states []state.State) (state.ParentState, error) {
	if err := checkOperands(p.name, states); err != nil {
		return 0, err
	}
	acc := state.ParentReady
	for n, s := range states {
		ps, err := state.ToParentState(s)
		if err != nil {
			return 0, err
		}
		ps = p.normalize(ps)
		if n == 0 || p.rank[ps] > p.rank[acc] {
			acc = ps
		}
	}
	return acc, nil
}

func executingIsActive(s state.ParentState) state.ParentState {
	if s == state.ParentExecuting {
		return state.ParentActive
	}
	return s
}

var (
	anyActive = precedence{
		name:      consts.OperatorActive,
		normalize: executingIsActive,
		rank: map[state.ParentState]int{
			state.ParentActive:     6,
			state.ParentStarted:    5,
			state.ParentException:  4,
			state.ParentIncomplete: 3,
			state.ParentReady:      2,
			state.ParentComplete:   1,
		},
	}
	exceptionHighest = precedence{
		name:      consts.OperatorExceptionHighest,
		normalize: executingIsActive,
		rank: map[state.ParentState]int{
			state.ParentException:  6,
			state.ParentActive:     5,
			state.ParentStarted:    4,
			state.ParentIncomplete: 3,
			state.ParentReady:      2,
			state.ParentComplete:   1,
		},
	}
	// Children still running are ACTIVE; started services and complete
	// jobs are done and fold to COMPLETE.
	serviceManager = precedence{
		name: consts.OperatorServices,
		normalize: func(s state.ParentState) state.ParentState {
			switch s {
			case state.ParentExecuting:
				return state.ParentActive
			case state.ParentStarted:
				return state.ParentComplete
			}
			return s
		},
		rank: map[state.ParentState]int{
			state.ParentException:  5,
			state.ParentIncomplete: 4,
			state.ParentReady:      3,
			state.ParentActive:     2,
			state.ParentComplete:   1,
		},
	}
)

// AnyActive keeps a composite ACTIVE while any child runs, even if a
// sibling failed.
type AnyActive struct{}

func (AnyActive) String() string { return consts.OperatorActive }

func (AnyActive) Evaluate(states ...state.State) (state.ParentState, error) {
	return anyActive.fold(states)
}

// ExceptionHighest lets a failed child win over running siblings, the
// opposite of AnyActive.
type ExceptionHighest struct{}

func (ExceptionHighest) String() string { return consts.OperatorExceptionHighest }

func (ExceptionHighest) Evaluate(states ...state.State) (state.ParentState, error) {
	return exceptionHighest.fold(states)
}

// ServiceManager unifies service and job lifecycles under one parent.
type ServiceManager struct{}

func (ServiceManager) String() string { return consts.OperatorServices }

func (ServiceManager) Evaluate(states ...state.State) (state.ParentState, error) {
	return serviceManager.fold(states)
}

// Personal.AI order the ending
