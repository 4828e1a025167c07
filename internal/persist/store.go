// Package persist keeps the last state event of named entities across
// process restarts.
package persist

import (
	"context"
	"fmt"

	"github.com/turtacn/Strata/pkg/consts"
	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/state"
)

// Store saves one persisted event per name. A later Save replaces the
// earlier one.
type Store interface {
	Save(ctx context.Context, name string, p state.Persisted) error
	Load(ctx context.Context, name string) (state.Persisted, bool, error)
	Close() error
}

// Open returns the store for driver. The none driver keeps nothing.
func Open(driver, path string) (Store, error) {
	switch driver {
	case consts.DriverFile:
		return NewFileStore(path)
	case consts.DriverSQLite:
		return NewSQLiteStore(path)
	case consts.DriverNone, "":
		return discard{}, nil
	default:
		return nil, serrors.New(serrors.ErrCodeConfigInvalid, "persist.Open",
			fmt.Sprintf("unknown persistence driver %q", driver), nil)
	}
}

type discard struct{}

func (discard) Save(context.Context, string, state.Persisted) error { return nil }
func (discard) Load(context.Context, string) (state.Persisted, bool, error) {
	return state.Persisted{}, false, nil
}
func (discard) Close() error { return nil }

// Personal.AI order the ending
