package consts

import "time"

// Family names used in persisted events and on the command line.
const (
	FamilyJob     = "job"
	FamilyParent  = "parent"
	FamilyService = "service"
)

// Named operator keys exposed by the operator registry.
const (
	OperatorAnd              = "AND"
	OperatorOr               = "OR"
	OperatorWorst            = "WORST"
	OperatorActive           = "ACTIVE"
	OperatorExceptionHighest = "EXCEPTION_HIGHEST"
	OperatorServices         = "SERVICES"
	OperatorCompleteOrNot    = "COMPLETE_OR_NOT"
)

// Node kinds accepted in a tree definition.
const (
	KindSequential = "sequential"
	KindParallel   = "parallel"
	KindServices   = "services"
	KindExec       = "exec"
	KindService    = "service"
)

// Persistence drivers.
const (
	DriverNone   = "none"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Environment and defaults
const (
	EnvLogLevel        = "STRATA_LOG_LEVEL"
	DefaultMetricsPort = ":9090"
	DefaultStopTimeout = 5 * time.Second
	DefaultSocketPath  = "/tmp/strata-relay.sock"
)

// Personal.AI order the ending
