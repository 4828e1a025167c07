package state

// JobState is the lifecycle of a simple job.
type JobState uint8

const (
	JobReady JobState = iota
	JobExecuting
	JobComplete
	JobIncomplete
	JobException
	JobDestroyed
)

var jobVariants = [...]variant{
	JobReady:      {"READY", fReady | fPassable},
	JobExecuting:  {"EXECUTING", fExecuting | fStoppable},
	JobComplete:   {"COMPLETE", fComplete | fPassable},
	JobIncomplete: {"INCOMPLETE", fIncomplete | fPassable},
	JobException:  {"EXCEPTION", fException | fPassable},
	JobDestroyed:  {"DESTROYED", fDestroyed},
}

// JobStates lists every job variant in declaration order.
func JobStates() []JobState {
	return []JobState{JobReady, JobExecuting, JobComplete, JobIncomplete, JobException, JobDestroyed}
}

func (s JobState) flags() flags {
	if int(s) < len(jobVariants) {
		return jobVariants[s].flags
	}
	return 0
}

func (s JobState) IsReady() bool      { return s.flags().has(fReady) }
func (s JobState) IsExecuting() bool  { return s.flags().has(fExecuting) }
func (s JobState) IsActive() bool     { return s.flags().has(fActive) }
func (s JobState) IsStoppable() bool  { return s.flags().has(fStoppable) }
func (s JobState) IsComplete() bool   { return s.flags().has(fComplete) }
func (s JobState) IsIncomplete() bool { return s.flags().has(fIncomplete) }
func (s JobState) IsException() bool  { return s.flags().has(fException) }
func (s JobState) IsDestroyed() bool  { return s.flags().has(fDestroyed) }

// IsPassable reports whether the job is at rest and may be run or reset again.
func (s JobState) IsPassable() bool { return s.flags().has(fPassable) }

func (s JobState) String() string {
	if int(s) < len(jobVariants) {
		return jobVariants[s].name
	}
	return "UNKNOWN"
}

// Personal.AI order the ending
