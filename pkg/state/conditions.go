package state

// Condition is a predicate over the current state, evaluated under a
// handler's lock by WaitToWhen and TryToWhen.
type Condition func(State) bool

func IsAnyState(State) bool       { return true }
func IsReady(s State) bool        { return s.IsReady() }
func IsExecuting(s State) bool    { return s.IsExecuting() }
func IsStoppable(s State) bool    { return s.IsStoppable() }
func IsComplete(s State) bool     { return s.IsComplete() }
func IsIncomplete(s State) bool   { return s.IsIncomplete() }
func IsException(s State) bool    { return s.IsException() }
func IsDestroyed(s State) bool    { return s.IsDestroyed() }
func IsNotDestroyed(s State) bool { return !s.IsDestroyed() }

// IsFinished is true once a run produced an outcome.
func IsFinished(s State) bool {
	return s.IsComplete() || s.IsIncomplete() || s.IsException()
}

// Personal.AI order the ending
