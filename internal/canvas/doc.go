// Package canvas wires user interaction on a rendered diagram back into the
// step tree and its state map.
//
// ExecutionGraph drives the editable diagram: every event resolves the graph
// entity through package stepstree, applies one mutation or toggle, updates
// the state map, re-renders and tells the host through Callbacks. The host
// persists the tree; canvas never does.
//
// StageDiagram drives the execution-status diagram: selection, group toggles
// and the camera.
package canvas
