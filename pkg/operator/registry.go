package operator

import (
	"sort"

	"github.com/turtacn/Strata/pkg/consts"
	serrors "github.com/turtacn/Strata/pkg/errors"
)

// Registry is an immutable name to operator mapping. Build one at startup
// and pass it to whatever selects operators by name.
type Registry struct {
	ops map[string]Operator
}

func builtins() map[string]Operator {
	return map[string]Operator{
		consts.OperatorAnd:              And{},
		consts.OperatorOr:               Or{},
		consts.OperatorWorst:            Worst{},
		consts.OperatorActive:           AnyActive{},
		consts.OperatorExceptionHighest: ExceptionHighest{},
		consts.OperatorServices:         ServiceManager{},
		consts.OperatorCompleteOrNot:    CompleteOrNot{},
	}
}

// NewRegistry returns the built-in operators plus aliases, each alias
// naming an existing built-in.
func NewRegistry(aliases map[string]string) (*Registry, error) {
	base := builtins()
	ops := builtins()
	for alias, target := range aliases {
		op, ok := base[target]
		if !ok {
			return nil, serrors.Newf(serrors.ErrCodeUnknownOperator, "NewRegistry",
				"alias %q refers to unknown operator %q", alias, target)
		}
		if _, clash := ops[alias]; clash {
			return nil, serrors.Newf(serrors.ErrCodeConfigInvalid, "NewRegistry",
				"alias %q shadows an existing operator", alias)
		}
		ops[alias] = op
	}
	return &Registry{ops: ops}, nil
}

// Lookup returns the operator registered under name.
func (r *Registry) Lookup(name string) (Operator, error) {
	op, ok := r.ops[name]
	if !ok {
		return nil, serrors.Newf(serrors.ErrCodeUnknownOperator, "Lookup", "no operator named %q", name)
	}
	return op, nil
}

// Names lists registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for n := range r.ops {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Personal.AI order the ending
