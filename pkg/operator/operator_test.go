package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/state"
)

func allOperators() []Operator {
	return []Operator{And{}, Or{}, Worst{}, AnyActive{}, ExceptionHighest{}, ServiceManager{}, CompleteOrNot{}}
}

func eval(t *testing.T, op Operator, states ...state.State) state.ParentState {
	t.Helper()
	got, err := op.Evaluate(states...)
	require.NoError(t, err, "%v%v", op, states)
	return got
}

func TestWorstScenarios(t *testing.T) {
	tests := []struct {
		name string
		in   []state.State
		want state.ParentState
	}{
		{"single complete", []state.State{state.JobComplete}, state.ParentComplete},
		{"complete incomplete", []state.State{state.JobComplete, state.JobIncomplete}, state.ParentIncomplete},
		{"complete exception", []state.State{state.JobComplete, state.JobException}, state.ParentException},
		{"executing complete", []state.State{state.JobExecuting, state.JobComplete}, state.ParentExecuting},
		{"empty", nil, state.ParentReady},
		{"ready complete", []state.State{state.JobReady, state.JobComplete}, state.ParentReady},
		{"exception executing", []state.State{state.JobException, state.JobExecuting}, state.ParentExecuting},
		{"active child", []state.State{state.JobComplete, state.ParentActive}, state.ParentExecuting},
		{"stopped service", []state.State{state.ServiceStopped, state.JobComplete}, state.ParentComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, Worst{}, tt.in...))
		})
	}
}

func TestAnd(t *testing.T) {
	assert.Equal(t, state.ParentReady, eval(t, And{}))
	assert.Equal(t, state.ParentComplete, eval(t, And{}, state.JobComplete, state.JobComplete, state.JobComplete))
	assert.Equal(t, state.ParentReady, eval(t, And{}, state.JobComplete, state.JobIncomplete))
	assert.Equal(t, state.ParentReady, eval(t, And{}, state.JobExecuting, state.JobExecuting))
	assert.Equal(t, state.ParentException, eval(t, And{}, state.JobComplete, state.JobReady, state.JobException))
	assert.Equal(t, state.ParentException, eval(t, And{}, state.JobException, state.JobComplete))
}

func TestOr(t *testing.T) {
	assert.Equal(t, state.ParentReady, eval(t, Or{}))
	assert.Equal(t, state.ParentComplete, eval(t, Or{}, state.JobIncomplete, state.JobComplete, state.JobReady))
	assert.Equal(t, state.ParentException, eval(t, Or{}, state.JobComplete, state.JobException))
	assert.Equal(t, state.ParentIncomplete, eval(t, Or{}, state.JobExecuting, state.JobIncomplete))
	assert.Equal(t, state.ParentExecuting, eval(t, Or{}, state.JobReady, state.JobExecuting))
	assert.Equal(t, state.ParentReady, eval(t, Or{}, state.JobReady, state.JobReady))
}

func TestCompleteOrNot(t *testing.T) {
	assert.Equal(t, state.ParentReady, eval(t, CompleteOrNot{}))
	assert.Equal(t, state.ParentComplete, eval(t, CompleteOrNot{}, state.JobReady, state.JobReady))
	assert.Equal(t, state.ParentComplete, eval(t, CompleteOrNot{}, state.JobComplete, state.JobComplete))
	assert.Equal(t, state.ParentIncomplete, eval(t, CompleteOrNot{}, state.JobReady, state.JobComplete))
	assert.Equal(t, state.ParentIncomplete, eval(t, CompleteOrNot{}, state.JobComplete, state.JobReady, state.JobReady))
	assert.Equal(t, state.ParentIncomplete, eval(t, CompleteOrNot{}, state.JobComplete, state.JobException))
	assert.Equal(t, state.ParentIncomplete, eval(t, CompleteOrNot{}, state.JobException))
	assert.Equal(t, state.ParentIncomplete, eval(t, CompleteOrNot{}, state.JobIncomplete, state.JobReady))
	assert.Equal(t, state.ParentExecuting, eval(t, CompleteOrNot{}, state.JobIncomplete, state.JobExecuting, state.JobComplete))
}

func TestAnyActive(t *testing.T) {
	assert.Equal(t, state.ParentReady, eval(t, AnyActive{}))
	assert.Equal(t, state.ParentComplete, eval(t, AnyActive{}, state.JobComplete, state.ServiceStopped))
	assert.Equal(t, state.ParentActive, eval(t, AnyActive{}, state.JobExecuting, state.ServiceStarted))
	assert.Equal(t, state.ParentStarted, eval(t, AnyActive{}, state.JobException, state.ServiceStarted))
	assert.Equal(t, state.ParentException, eval(t, AnyActive{}, state.JobIncomplete, state.JobException))
	assert.Equal(t, state.ParentReady, eval(t, AnyActive{}, state.JobComplete, state.JobReady))
}

func TestExceptionHighest(t *testing.T) {
	assert.Equal(t, state.ParentReady, eval(t, ExceptionHighest{}))
	assert.Equal(t, state.ParentActive, eval(t, ExceptionHighest{}, state.JobIncomplete, state.JobExecuting))
	assert.Equal(t, state.ParentIncomplete, eval(t, ExceptionHighest{}, state.JobIncomplete, state.JobReady))
	assert.Equal(t, state.ParentComplete, eval(t, ExceptionHighest{}, state.JobComplete))
}

func TestServiceManager(t *testing.T) {
	assert.Equal(t, state.ParentReady, eval(t, ServiceManager{}))
	assert.Equal(t, state.ParentComplete, eval(t, ServiceManager{}, state.ServiceStarted, state.JobComplete))
	assert.Equal(t, state.ParentActive, eval(t, ServiceManager{}, state.ServiceStarted, state.JobExecuting))
	assert.Equal(t, state.ParentActive, eval(t, ServiceManager{}, state.ServiceStarting))
	assert.Equal(t, state.ParentReady, eval(t, ServiceManager{}, state.ServiceStartable, state.JobExecuting))
	assert.Equal(t, state.ParentIncomplete, eval(t, ServiceManager{}, state.JobIncomplete, state.ServiceStartable))
	assert.Equal(t, state.ParentException, eval(t, ServiceManager{}, state.ServiceException, state.JobIncomplete))
}

// TestPrecedenceDivergence runs both operators on the identical input.
func TestPrecedenceDivergence(t *testing.T) {
	inputs := [][]state.State{
		{state.ParentActive, state.JobException},
		{state.JobException, state.ParentActive},
		{state.JobExecuting, state.ServiceException},
	}
	for _, in := range inputs {
		assert.Equal(t, state.ParentActive, eval(t, AnyActive{}, in...), "ACTIVE%v", in)
		assert.Equal(t, state.ParentException, eval(t, ExceptionHighest{}, in...), "EXCEPTION_HIGHEST%v", in)
	}
}

func TestDestroyedOperandAlwaysRejected(t *testing.T) {
	destroyed := []state.State{state.JobDestroyed, state.ParentDestroyed, state.ServiceDestroyed}
	for _, op := range allOperators() {
		for _, d := range destroyed {
			for _, in := range [][]state.State{
				{d},
				{state.JobComplete, d},
				{d, state.JobException},
				{state.JobExecuting, state.JobComplete, d},
			} {
				got, err := op.Evaluate(in...)
				assert.ErrorIs(t, err, serrors.ErrInvalidOperand, "%v%v", op, in)
				assert.Zero(t, got, "%v%v returned a value", op, in)
			}
		}
	}
}

func TestDestroyedNeverProduced(t *testing.T) {
	var live []state.State
	for _, s := range state.JobStates() {
		if !s.IsDestroyed() {
			live = append(live, s)
		}
	}
	for _, s := range state.ParentStates() {
		if !s.IsDestroyed() {
			live = append(live, s)
		}
	}
	for _, op := range allOperators() {
		for _, a := range live {
			for _, b := range live {
				got := eval(t, op, a, b)
				assert.False(t, got.IsDestroyed(), "%v(%v, %v)", op, a, b)
			}
		}
	}
}

func TestPurity(t *testing.T) {
	in := []state.State{state.JobComplete, state.ParentActive, state.ServiceStarted, state.JobIncomplete, state.JobReady}
	for _, op := range allOperators() {
		first := eval(t, op, in...)
		second := eval(t, op, in...)
		assert.Equal(t, first, second, "%v is not pure", op)
	}
}

func TestLeftFoldFollowsTable(t *testing.T) {
	tables := map[string]*jobTable{"AND": &andTable, "OR": &orTable, "WORST": &worstTable}
	ops := map[string]Operator{"AND": And{}, "OR": Or{}, "WORST": Worst{}}
	three := []state.JobState{state.JobReady, state.JobExecuting, state.JobComplete, state.JobIncomplete, state.JobException}

	for name, table := range tables {
		for _, a := range three {
			for _, b := range three {
				for _, c := range three {
					want, err := state.ToParentState(table[table[a][b]][c])
					require.NoError(t, err)
					assert.Equal(t, want, eval(t, ops[name], a, b, c), "%s(%v, %v, %v)", name, a, b, c)
				}
			}
		}
	}
}

func TestUnconvertableOperand(t *testing.T) {
	for _, op := range allOperators() {
		_, err := op.Evaluate(state.JobState(77))
		assert.ErrorIs(t, err, serrors.ErrUnconvertableState, "%v", op)
	}
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(map[string]string{"default": "WORST"})
	require.NoError(t, err)

	for _, name := range []string{"WORST", "ACTIVE", "SERVICES", "AND", "OR", "EXCEPTION_HIGHEST", "COMPLETE_OR_NOT", "default"} {
		op, err := reg.Lookup(name)
		require.NoError(t, err, name)
		assert.NotNil(t, op)
	}

	op, _ := reg.Lookup("default")
	assert.Equal(t, Worst{}, op)
	op, _ = reg.Lookup("ACTIVE")
	assert.Equal(t, AnyActive{}, op)

	_, err = reg.Lookup("MOST")
	assert.ErrorIs(t, err, serrors.ErrUnknownOperator)

	names := reg.Names()
	assert.Len(t, names, 8)
	assert.IsIncreasing(t, names)
}

func TestRegistryRejectsBadAliases(t *testing.T) {
	_, err := NewRegistry(map[string]string{"x": "NOPE"})
	assert.ErrorIs(t, err, serrors.ErrUnknownOperator)

	_, err = NewRegistry(map[string]string{"WORST": "AND"})
	assert.Error(t, err)
}
