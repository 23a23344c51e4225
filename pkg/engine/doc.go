// Package engine orchestrates the allocation of parking slots to
// vehicle requests.
//
// The Engine owns the request ledger and composes the capacity map,
// the lifecycle machine, and the rollback journal behind one mutex, so
// every operation observes a consistent arena. Allocation scans the
// requested zone first and falls back to directly adjacent zones, one
// hop only. Running out of capacity is an ordinary result, not an
// error.
//
// All iteration orders are deterministic: slots are scanned in
// declared order, zones sorted by ID, and request IDs are sequential.
// Replaying the same operations against the same topology yields the
// same allocations.
package engine
