// Package config loads topology and scenario definitions.
//
// Topologies describe zones, their parking areas and slot counts, and
// zone adjacency. They are written in YAML or CUE; both decode into
// the same Topology type and go through the same semantic checks
// before a capacity map is built from them.
//
// Scenarios are sequences of operations to drive the engine: create,
// allocate, occupy, release, cancel, rollback. They are written in
// YAML, or generated procedurally with a Starlark script that assigns
// an `ops` list.
package config
