// Package rollback keeps a bounded, in-memory journal of allocation
// checkpoints and undoes the most recent ones on demand.
//
// Each time the engine binds a slot it pushes a Record capturing the
// request, the slot, and the state the request was in before the
// allocation. Rollback pops records most-recent-first, frees the
// recorded slot, and forces the request back to its prior state. The
// journal is bounded; by default the oldest record is evicted when a
// push would exceed the capacity.
//
// The journal is not safe for concurrent use on its own. The engine
// serializes access under its own lock.
package rollback
