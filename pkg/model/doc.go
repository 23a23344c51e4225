// Package model defines the shared data model for the OpenKerb allocation
// core: parking slots, areas, zones, vehicles, and parking requests with
// their lifecycle state machine.
//
// # Identity and Ownership
//
// All cross-references between objects are string IDs, never pointers. The
// capacity map (pkg/capacity) owns slot/zone/area state, the engine's ledger
// (pkg/engine) owns requests, and the rollback journal (pkg/rollback) holds
// only IDs plus the prior-state snapshot needed to undo an allocation. This
// keeps aliasing out of the data model: there is exactly one writer per
// object kind.
//
// # Lifecycle
//
// A request is created in StateRequested and moves through the transition
// table:
//
//	REQUESTED -> ALLOCATED | CANCELLED
//	ALLOCATED -> OCCUPIED  | CANCELLED
//	OCCUPIED  -> RELEASED
//	RELEASED  -> (terminal)
//	CANCELLED -> (terminal)
//
// The table is data (AllowedTransitions), not scattered conditionals, so it
// can be unit-tested in isolation. Validated transitions are performed by
// pkg/lifecycle; only rollback (pkg/rollback) may bypass the table.
//
// # Errors
//
// The package defines the classified Error type used across the core. The
// classification mirrors how callers are expected to react:
//
//   - CodeInvalidTransition: transition not in the table; request unchanged
//   - CodeInvalidState: operation precondition violated (programming error)
//   - CodeInvalidArgument: malformed caller input (e.g. rollback k <= 0)
//   - CodeHistoryFull: journal rejected a push (reject overflow policy only)
//   - CodeNotFound: unknown request/slot/zone ID
//
// A failed allocation due to exhausted capacity is not an error at all; it
// is reported as a negative AllocationResult by pkg/engine.
package model
