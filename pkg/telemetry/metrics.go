package telemetry

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for openkerb.
type Metrics struct {
	config MetricsConfig

	// Request lifecycle metrics
	requestsCreated  prometheus.Counter
	transitionsTotal *prometheus.CounterVec

	// Allocation metrics
	allocationsTotal *prometheus.CounterVec

	// Rollback metrics
	rollbacksTotal        prometheus.Counter
	rollbackRecordsUndone prometheus.Counter
	rollbackStaleFrees    prometheus.Counter
	journalDepth          prometheus.Gauge

	// Capacity metrics
	slotsAvailable *prometheus.GaugeVec
	slotsOccupied  *prometheus.GaugeVec

	// Occupancy metrics
	occupancyDuration prometheus.Histogram

	// Scenario metrics
	scenarioOps *prometheus.CounterVec

	// Error metrics
	errorsByCode *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// When metrics are disabled a no-op instance is returned.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		requestsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_created_total",
				Help:      "Total number of parking requests created",
			},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of request state transitions",
			},
			[]string{"from", "to", "status"},
		),
		allocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "allocations_total",
				Help:      "Total number of allocation attempts",
			},
			[]string{"outcome", "cross_zone"},
		),
		rollbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rollbacks_total",
				Help:      "Total number of rollback operations",
			},
		),
		rollbackRecordsUndone: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rollback_records_undone_total",
				Help:      "Total number of allocation checkpoints undone",
			},
		),
		rollbackStaleFrees: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rollback_stale_frees_total",
				Help:      "Rollbacks that freed a slot held by a different request",
			},
		),
		journalDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "journal_depth",
				Help:      "Current number of records in the rollback journal",
			},
		),
		slotsAvailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "slots_available",
				Help:      "Current number of available slots per zone",
			},
			[]string{"zone"},
		),
		slotsOccupied: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "slots_occupied",
				Help:      "Current number of occupied slots per zone",
			},
			[]string{"zone"},
		),
		occupancyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "occupancy_duration_seconds",
				Help:      "Duration of completed occupancies in seconds",
				Buckets:   buckets,
			},
		),
		scenarioOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scenario_ops_total",
				Help:      "Total number of scenario operations executed",
			},
			[]string{"op", "status"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by classification code",
			},
			[]string{"code"},
		),
	}

	registry.MustRegister(
		m.requestsCreated,
		m.transitionsTotal,
		m.allocationsTotal,
		m.rollbacksTotal,
		m.rollbackRecordsUndone,
		m.rollbackStaleFrees,
		m.journalDepth,
		m.slotsAvailable,
		m.slotsOccupied,
		m.occupancyDuration,
		m.scenarioOps,
		m.errorsByCode,
	)

	return m, nil
}

// RecordRequestCreated increments the created-requests counter.
func (m *Metrics) RecordRequestCreated() {
	if m.requestsCreated == nil {
		return
	}
	m.requestsCreated.Inc()
}

// RecordTransition records a state transition attempt.
func (m *Metrics) RecordTransition(from, to, status string) {
	if m.transitionsTotal == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to, status).Inc()
}

// RecordAllocation records an allocation attempt. Outcome is one of
// "allocated", "no_capacity", or "error".
func (m *Metrics) RecordAllocation(outcome string, crossZone bool) {
	if m.allocationsTotal == nil {
		return
	}
	m.allocationsTotal.WithLabelValues(outcome, strconv.FormatBool(crossZone)).Inc()
}

// RecordRollback records a rollback operation and its effects.
func (m *Metrics) RecordRollback(undone, staleFrees int) {
	if m.rollbacksTotal == nil {
		return
	}
	m.rollbacksTotal.Inc()
	m.rollbackRecordsUndone.Add(float64(undone))
	m.rollbackStaleFrees.Add(float64(staleFrees))
}

// SetJournalDepth sets the current rollback journal depth.
func (m *Metrics) SetJournalDepth(depth int) {
	if m.journalDepth == nil {
		return
	}
	m.journalDepth.Set(float64(depth))
}

// SetZoneSlots sets the per-zone slot gauges.
func (m *Metrics) SetZoneSlots(zone string, available, occupied int) {
	if m.slotsAvailable == nil {
		return
	}
	m.slotsAvailable.WithLabelValues(zone).Set(float64(available))
	m.slotsOccupied.WithLabelValues(zone).Set(float64(occupied))
}

// RecordOccupancyDuration records the duration of a completed occupancy.
func (m *Metrics) RecordOccupancyDuration(d time.Duration) {
	if m.occupancyDuration == nil {
		return
	}
	m.occupancyDuration.Observe(d.Seconds())
}

// RecordScenarioOp records a scenario operation execution.
func (m *Metrics) RecordScenarioOp(op, status string) {
	if m.scenarioOps == nil {
		return
	}
	m.scenarioOps.WithLabelValues(op, status).Inc()
}

// RecordError records an error by classification code.
func (m *Metrics) RecordError(code string) {
	if m.errorsByCode == nil {
		return
	}
	m.errorsByCode.WithLabelValues(code).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
