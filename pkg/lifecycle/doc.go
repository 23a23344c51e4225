// Package lifecycle implements the request lifecycle state machine.
//
// The Machine owns the validity of state transitions and their side effects
// (timestamps, slot linkage). A transition either fully succeeds, applying
// the state change and its side effects together, or fails with an
// invalid-transition error and leaves the request untouched. No transition
// is retried automatically; callers decide whether to retry with different
// parameters.
//
// Rollback deliberately does not go through the Machine: restoring a
// recorded prior state is a privileged operation handled by pkg/rollback.
package lifecycle
