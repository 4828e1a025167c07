package operator

import (
	"github.com/turtacn/Strata/pkg/consts"
	"github.com/turtacn/Strata/pkg/state"
)

// Rows are the accumulated state, columns the next operand, both in
// READY, EXECUTING, COMPLETE, INCOMPLETE, EXCEPTION order.
var (
	andTable = jobTable{
		/* READY      */ {rdy, rdy, rdy, rdy, exc},
		/* EXECUTING  */ {rdy, rdy, rdy, rdy, exc},
		/* COMPLETE   */ {rdy, rdy, cmp, rdy, exc},
		/* INCOMPLETE */ {rdy, rdy, rdy, rdy, exc},
		/* EXCEPTION  */ {exc, exc, exc, exc, exc},
	}
	orTable = jobTable{
		{rdy, exe, cmp, inc, exc},
		{exe, exe, cmp, inc, exc},
		{cmp, cmp, cmp, cmp, exc},
		{inc, inc, cmp, inc, exc},
		{exc, exc, exc, exc, exc},
	}
	worstTable = jobTable{
		{rdy, exe, rdy, inc, exc},
		{exe, exe, exe, exe, exe},
		{rdy, exe, cmp, inc, exc},
		{inc, exe, inc, inc, exc},
		{exc, exe, exc, exc, exc},
	}
	// EXCEPTION and INCOMPLETE both mean "ran but did not complete". A mix
	// of never-run and complete children is neither all nor none.
	completeOrNotTable = jobTable{
		{rdy, exe, inc, inc, inc},
		{exe, exe, exe, exe, exe},
		{inc, exe, cmp, inc, inc},
		{inc, exe, inc, inc, inc},
		{inc, exe, inc, inc, inc},
	}
)

// And is COMPLETE when every child is complete, EXCEPTION when any child
// failed, and READY otherwise.
type And struct{}

func (And) String() string { return consts.OperatorAnd }

func (And) Evaluate(states ...state.State) (state.ParentState, error) {
	js, err := foldJobs(consts.OperatorAnd, &andTable, states)
	if err != nil {
		return 0, err
	}
	return state.ToParentState(js)
}

// Or is COMPLETE as soon as any child completed, unless one failed.
type Or struct{}

func (Or) String() string { return consts.OperatorOr }

func (Or) Evaluate(states ...state.State) (state.ParentState, error) {
	js, err := foldJobs(consts.OperatorOr, &orTable, states)
	if err != nil {
		return 0, err
	}
	return state.ToParentState(js)
}

// Worst reports the worst child outcome, with a running child worst of all.
// It is the default for most composites.
type Worst struct{}

func (Worst) String() string { return consts.OperatorWorst }

func (Worst) Evaluate(states ...state.State) (state.ParentState, error) {
	js, err := foldJobs(consts.OperatorWorst, &worstTable, states)
	if err != nil {
		return 0, err
	}
	return state.ToParentState(js)
}

// CompleteOrNot classifies children as EXECUTING, COMPLETE or INCOMPLETE.
// Children that never ran are ignored, so a list where nothing ran is
// COMPLETE.
type CompleteOrNot struct{}

func (CompleteOrNot) String() string { return consts.OperatorCompleteOrNot }

func (CompleteOrNot) Evaluate(states ...state.State) (state.ParentState, error) {
	js, err := foldJobs(consts.OperatorCompleteOrNot, &completeOrNotTable, states)
	if err != nil {
		return 0, err
	}
	if len(states) == 0 {
		return state.ParentReady, nil
	}
	switch js {
	case state.JobExecuting:
		return state.ParentExecuting, nil
	case state.JobReady, state.JobComplete:
		return state.ParentComplete, nil
	default:
		return state.ParentIncomplete, nil
	}
}

// Personal.AI order the ending
