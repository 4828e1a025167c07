package state

import (
	"fmt"

	"github.com/turtacn/Strata/pkg/consts"
	serrors "github.com/turtacn/Strata/pkg/errors"
)

// consistent reports whether s answers exactly one outcome predicate and
// its executing/active refinements sit on top of a stoppable state.
func consistent(s State) bool {
	n := 0
	for _, b := range []bool{
		s.IsReady(), s.IsStoppable(), s.IsComplete(),
		s.IsIncomplete(), s.IsException(), s.IsDestroyed(),
	} {
		if b {
			n++
		}
	}
	if n != 1 {
		return false
	}
	if (s.IsExecuting() || s.IsActive()) && !s.IsStoppable() {
		return false
	}
	return !(s.IsExecuting() && s.IsActive())
}

func unconvertable(s State, target string) error {
	return serrors.Newf(serrors.ErrCodeUnconvertable, "Convert",
		"cannot convert %v (%T) to a %s state", s, s, target)
}

// ToParentState maps any state onto the closest parent variant.
func ToParentState(s State) (ParentState, error) {
	if s == nil || !consistent(s) {
		return 0, unconvertable(s, consts.FamilyParent)
	}
	switch {
	case s.IsDestroyed():
		return ParentDestroyed, nil
	case s.IsException():
		return ParentException, nil
	case s.IsIncomplete():
		return ParentIncomplete, nil
	case s.IsComplete():
		return ParentComplete, nil
	case s.IsExecuting():
		return ParentExecuting, nil
	case s.IsActive():
		return ParentActive, nil
	case s.IsStoppable():
		return ParentStarted, nil
	default:
		return ParentReady, nil
	}
}

// ToJobState maps any state onto the closest job variant. Every stoppable
// state becomes EXECUTING.
func ToJobState(s State) (JobState, error) {
	if s == nil || !consistent(s) {
		return 0, unconvertable(s, consts.FamilyJob)
	}
	switch {
	case s.IsDestroyed():
		return JobDestroyed, nil
	case s.IsException():
		return JobException, nil
	case s.IsIncomplete():
		return JobIncomplete, nil
	case s.IsComplete():
		return JobComplete, nil
	case s.IsStoppable():
		return JobExecuting, nil
	default:
		return JobReady, nil
	}
}

// As asserts that s already belongs to family S.
func As[S State](s State) (S, error) {
	v, ok := s.(S)
	if !ok {
		var zero S
		return zero, unconvertable(s, fmt.Sprintf("%T", zero))
	}
	return v, nil
}

// FamilyOf names the family of one of this package's variants.
func FamilyOf(s State) (string, error) {
	switch s.(type) {
	case JobState:
		return consts.FamilyJob, nil
	case ParentState:
		return consts.FamilyParent, nil
	case ServiceState:
		return consts.FamilyService, nil
	default:
		return "", unconvertable(s, "known family")
	}
}

// Parse looks up a variant by family and name, e.g. ("parent", "ACTIVE").
func Parse(family, name string) (State, error) {
	switch family {
	case consts.FamilyJob:
		for _, s := range JobStates() {
			if s.String() == name {
				return s, nil
			}
		}
	case consts.FamilyParent:
		for _, s := range ParentStates() {
			if s.String() == name {
				return s, nil
			}
		}
	case consts.FamilyService:
		for _, s := range ServiceStates() {
			if s.String() == name {
				return s, nil
			}
		}
	}
	return nil, serrors.Newf(serrors.ErrCodeUnconvertable, "Parse", "no %s state named %q", family, name)
}

// Personal.AI order the ending
