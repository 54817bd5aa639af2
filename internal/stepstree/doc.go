// Package stepstree locates and mutates nodes of a pipeline step tree.
//
// Every lookup works on pointers into the tree so that a Location can splice
// its parent list in place. Lookups never fail loudly: a missing identifier
// yields a zero Location and mutators report false. Only Move, which serves
// drag-and-drop, returns errors.
//
// Parallel nodes never survive with fewer than two branches once a mutation
// completes. Remove flattens the wrapper it touched and Move runs Normalize
// over the whole tree.
package stepstree
