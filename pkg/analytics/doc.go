// Package analytics derives usage statistics from the engine's
// request ledger: occupancy durations, per-zone utilization, cross-zone
// allocation rates, and completion versus cancellation counts.
//
// The Analyzer reads point-in-time snapshots through the Source
// interface and never mutates engine state.
package analytics
