package state

// ParentState is the lifecycle of a composite node. ACTIVE means some
// descendant is still running; STARTED means the composite's own execution
// has returned but completion is pending (typically started services).
type ParentState uint8

const (
	ParentReady ParentState = iota
	ParentExecuting
	ParentActive
	ParentStarted
	ParentIncomplete
	ParentComplete
	ParentException
	ParentDestroyed
)

var parentVariants = [...]variant{
	ParentReady:      {"READY", fReady},
	ParentExecuting:  {"EXECUTING", fExecuting | fStoppable},
	ParentActive:     {"ACTIVE", fActive | fStoppable},
	ParentStarted:    {"STARTED", fStoppable | fDone},
	ParentIncomplete: {"INCOMPLETE", fIncomplete | fDone},
	ParentComplete:   {"COMPLETE", fComplete | fDone},
	ParentException:  {"EXCEPTION", fException | fDone},
	ParentDestroyed:  {"DESTROYED", fDestroyed},
}

// ParentStates lists every parent variant in declaration order.
func ParentStates() []ParentState {
	return []ParentState{
		ParentReady, ParentExecuting, ParentActive, ParentStarted,
		ParentIncomplete, ParentComplete, ParentException, ParentDestroyed,
	}
}

func (s ParentState) flags() flags {
	if int(s) < len(parentVariants) {
		return parentVariants[s].flags
	}
	return 0
}

func (s ParentState) IsReady() bool      { return s.flags().has(fReady) }
func (s ParentState) IsExecuting() bool  { return s.flags().has(fExecuting) }
func (s ParentState) IsActive() bool     { return s.flags().has(fActive) }
func (s ParentState) IsStoppable() bool  { return s.flags().has(fStoppable) }
func (s ParentState) IsComplete() bool   { return s.flags().has(fComplete) }
func (s ParentState) IsIncomplete() bool { return s.flags().has(fIncomplete) }
func (s ParentState) IsException() bool  { return s.flags().has(fException) }
func (s ParentState) IsDestroyed() bool  { return s.flags().has(fDestroyed) }

// IsDone reports whether the node's own execution has finished, whatever
// the outcome. STARTED counts as done.
func (s ParentState) IsDone() bool { return s.flags().has(fDone) }

func (s ParentState) String() string {
	if int(s) < len(parentVariants) {
		return parentVariants[s].name
	}
	return "UNKNOWN"
}

// Personal.AI order the ending
