package main

import (
	"fmt"
	"os"

	"github.com/turtacn/Strata/internal/cli"
	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/logger"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			if logger.Log != nil {
				logger.Log.Error("Panic recovered", "panic", r, "version", cli.Version)
			} else {
				fmt.Fprintf(os.Stderr, "Panic recovered: %v\n", r)
			}
			os.Exit(1)
		}
	}()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "strata:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for a bad config or operator name and 1 for anything else.
func exitCode(err error) int {
	switch serrors.CodeOf(err) {
	case serrors.ErrCodeConfigInvalid, serrors.ErrCodeUnknownOperator:
		return 2
	default:
		return 1
	}
}

// Personal.AI order the ending
