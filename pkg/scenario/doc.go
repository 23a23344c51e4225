// Package scenario executes operation scripts against the allocation
// engine.
//
// A run drives a loaded scenario op by op, records each outcome, and
// keeps going when an op fails so a single bad operation does not hide
// the rest of the script. Runs get a UUID, and when a store is
// attached the run, its operation timeline, and the final request
// snapshots are persisted for later reporting.
package scenario
