// Package policy evaluates Rego policies against parking topologies.
//
// Policies inspect a topology before the engine is built from it and
// report violations: errors block the run, warnings are surfaced but
// do not. A set of built-in policies covers naming conventions,
// adjacency symmetry, and capacity floors; operators add their own as
// .rego or .json files, optionally watched for changes so edits take
// effect without a restart.
//
// Each policy contributes a `deny` set. Members are either plain
// strings or objects with message, severity, and zone fields. The
// evaluation input carries the topology under input.topology and an
// evaluation context under input.context.
package policy
