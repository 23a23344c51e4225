// Package telemetry provides the observability surface for openkerb:
// structured logging (zerolog), Prometheus metrics, OpenTelemetry
// tracing, and an in-process event bus.
//
// The Telemetry bundle wires all four together from a single Config
// and travels through context.Context so the engine, scenario runner,
// and CLI share one instance.
//
// Metrics are exported under the "kerb" namespace. The interesting
// ones are allocations_total (labelled by outcome and cross_zone),
// transitions_total (from, to, status), rollback counters including
// stale slot frees, and per-zone slot gauges.
package telemetry
