// Package diagram is the graph model a pipeline is rendered into: nodes with
// positions, edges between them and the layers step groups open.
//
// A Model is owned by whoever renders into it. It is mutated only inside
// Rebuild, which unlocks it for the duration of the callback and locks it
// again afterwards, so a reader never sees a half-built graph. A nested
// Rebuild is rejected with ErrRebuildInProgress.
//
// User interaction comes back through Dispatch. Listeners holds one callback
// per EventKind; events aimed at nodes or edges the model does not hold are
// dropped.
package diagram
