package state

// ServiceState is the lifecycle of a long running service.
type ServiceState uint8

const (
	ServiceStartable ServiceState = iota
	ServiceStarting
	ServiceStarted
	ServiceStopped
	ServiceException
	ServiceDestroyed
)

// A stopped service has run its course, so it reads as complete.
var serviceVariants = [...]variant{
	ServiceStartable: {"STARTABLE", fReady},
	ServiceStarting:  {"STARTING", fExecuting | fStoppable},
	ServiceStarted:   {"STARTED", fStoppable},
	ServiceStopped:   {"STOPPED", fComplete},
	ServiceException: {"EXCEPTION", fException},
	ServiceDestroyed: {"DESTROYED", fDestroyed},
}

// ServiceStates lists every service variant in declaration order.
func ServiceStates() []ServiceState {
	return []ServiceState{
		ServiceStartable, ServiceStarting, ServiceStarted,
		ServiceStopped, ServiceException, ServiceDestroyed,
	}
}

func (s ServiceState) flags() flags {
	if int(s) < len(serviceVariants) {
		return serviceVariants[s].flags
	}
	return 0
}

func (s ServiceState) IsReady() bool      { return s.flags().has(fReady) }
func (s ServiceState) IsExecuting() bool  { return s.flags().has(fExecuting) }
func (s ServiceState) IsActive() bool     { return s.flags().has(fActive) }
func (s ServiceState) IsStoppable() bool  { return s.flags().has(fStoppable) }
func (s ServiceState) IsComplete() bool   { return s.flags().has(fComplete) }
func (s ServiceState) IsIncomplete() bool { return s.flags().has(fIncomplete) }
func (s ServiceState) IsException() bool  { return s.flags().has(fException) }
func (s ServiceState) IsDestroyed() bool  { return s.flags().has(fDestroyed) }

func (s ServiceState) String() string {
	if int(s) < len(serviceVariants) {
		return serviceVariants[s].name
	}
	return "UNKNOWN"
}

// Personal.AI order the ending
