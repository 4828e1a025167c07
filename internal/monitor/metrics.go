package monitor

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/turtacn/Strata/pkg/logger"
)

// Recompute outcomes for AggregateRecomputes.
const (
	OutcomePublished = "published"
	OutcomeUnchanged = "unchanged"
	OutcomeAborted   = "aborted"
)

var (
	// StateTransitions counts every state set on a handler, partitioned by family and state.
	StateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_state_transitions_total",
		Help: "Total number of state transitions",
	}, []string{"family", "state"})
	// ListenerFailures counts listeners that panicked during event delivery.
	ListenerFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strata_listener_failures_total",
		Help: "Total number of state listeners that failed during delivery",
	})
	// AggregateRecomputes counts structural recomputes by outcome.
	AggregateRecomputes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_aggregate_recomputes_total",
		Help: "Total number of aggregate state recomputes",
	}, []string{"outcome"})
	// RestoredStates counts restored events; normalized is "true" when an in-flight state was reset.
	RestoredStates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_restored_states_total",
		Help: "Total number of state events restored from persistence",
	}, []string{"normalized"})
)

var registerOnce sync.Once

// Register adds the collectors to reg. Only the first call has any effect.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(StateTransitions, ListenerFailures, AggregateRecomputes, RestoredStates)
	})
}

// InitMetrics registers Prometheus metrics and starts an HTTP server to expose them.
// It takes an address string (e.g., ":9090") on which to listen for requests.
func InitMetrics(addr string) {
	Register(prometheus.DefaultRegisterer)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Log.Info("Metrics server starting", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Log.Error("Metrics server failed", "err", err)
		}
	}()
}

// Personal.AI order the ending
