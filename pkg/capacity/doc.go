// Package capacity implements the queryable capacity model: an in-memory
// arena of zones, parking areas, and slots keyed by ID.
//
// The Map is the single owner of slot state. The allocation engine and the
// lifecycle machine read availability and bind/free slots exclusively
// through it, which keeps the invariant "a slot is available iff it has no
// occupant" in one place.
//
// All scans are deterministic: areas and slots are visited in their
// declared order, adjacency in its declared order, and Zones() iterates in
// sorted ID order. Given identical capacity state, identical queries return
// identical results.
//
// The Map itself is not synchronized; the engine serializes access (see
// pkg/engine).
package capacity
