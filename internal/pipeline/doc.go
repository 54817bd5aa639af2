// Package pipeline defines the nested step tree that every other package in
// stagegraph reads or mutates.
//
// A pipeline is a Tree holding two independent lists, the forward steps and
// the rollback steps. Each list entry is a StepNode, a tagged union with
// exactly one populated variant:
//
//   - Step: a leaf execution unit.
//   - Parallel: a group of branches that run concurrently. A parallel with a
//     single branch is never kept; the mutator flattens it.
//   - StepGroup: a named, collapsible container with its own forward and
//     rollback lists.
//
// The JSON and YAML encodings keep the wire names used by the persistence
// layer: {"step": {...}}, {"parallel": [...]}, {"stepGroup": {...}}.
//
// Parent lists are plain slices of *StepNode. Packages that splice the tree
// hold a *[]*StepNode to the owning slice, so a node's slot can be rewritten in
// place without rebuilding its ancestors.
package pipeline
