// Package stepstate holds the per-identifier UI state of a pipeline diagram:
// collapse and rollback toggles of step groups, and whether a node matches the
// last persisted version of the tree.
//
// The state map lives next to the tree and is keyed by tree identifier. It is
// rebuilt incrementally: collecting never clobbers a toggle the user already
// made.
package stepstate
