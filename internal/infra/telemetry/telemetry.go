package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// LockoutMetrics exposes Prometheus collectors for the brute-force protector.
type LockoutMetrics struct {
	// EventsProcessed counts applied login outcome events by outcome.
	EventsProcessed *prometheus.CounterVec
	// ProcessingErrors counts events whose apply step failed.
	ProcessingErrors prometheus.Counter
	// EventsDropped counts events rejected because the queue was full.
	EventsDropped prometheus.Counter
	// QueueDepth tracks the number of events waiting for the worker.
	QueueDepth prometheus.Gauge
	// Lockouts counts lockout decisions by type (temporary, permanent).
	Lockouts *prometheus.CounterVec
}

// NewLockoutMetrics constructs collectors and registers them with the
// provided registerer (prometheus.DefaultRegisterer when nil).
func NewLockoutMetrics(reg prometheus.Registerer) (*LockoutMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	eventsProcessed, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lockout",
		Name:      "events_processed_total",
		Help:      "Total number of login outcome events applied by the worker, partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	processingErrors, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lockout",
		Name:      "processing_errors_total",
		Help:      "Total number of login outcome events whose apply step failed.",
	}))
	if err != nil {
		return nil, err
	}

	eventsDropped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lockout",
		Name:      "events_dropped_total",
		Help:      "Total number of login outcome events dropped because the queue was full.",
	}))
	if err != nil {
		return nil, err
	}

	queueDepth, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lockout",
		Name:      "queue_depth",
		Help:      "Number of login outcome events waiting to be applied.",
	}))
	if err != nil {
		return nil, err
	}

	lockouts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lockout",
		Name:      "lockouts_total",
		Help:      "Total number of lockout decisions, partitioned by type.",
	}, []string{"type"}))
	if err != nil {
		return nil, err
	}

	return &LockoutMetrics{
		EventsProcessed:  eventsProcessed,
		ProcessingErrors: processingErrors,
		EventsDropped:    eventsDropped,
		QueueDepth:       queueDepth,
		Lockouts:         lockouts,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return nil, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return nil, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return nil, fmt.Errorf("register collector: %w", err)
	}
	return g, nil
}
