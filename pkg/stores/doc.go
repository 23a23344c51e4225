// Package stores provides the persistence layer for scenario run
// history: runs, the per-request event timeline, and final request
// snapshots. The engine itself is in-memory; the store exists so that
// runs can be inspected after the fact.
package stores
