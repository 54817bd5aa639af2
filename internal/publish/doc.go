// Package publish pushes laid-out diagrams to a rendering surface over
// socket.io. Every render becomes one "graph:update" event carrying a
// Snapshot of the model.
package publish
