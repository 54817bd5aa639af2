// Package layout turns a step tree, or an execution of one, into positioned
// nodes and edges of a diagram.Model.
//
// Both variants walk their tree left to right with a running X cursor and a
// frontier: the nodes the next node draws its incoming edges from. Parallels
// fan out from an empty node and rejoin at another; expanded step groups open
// a layer of their own bracketed by boundary nodes. Synthetic nodes get
// identifiers from package nodeid so a drop on any edge can be mapped back to
// a tree position.
//
// StepModel rebuilds the model from scratch on every render. StageModel
// updates nodes that survive between renders in place and only adds or
// removes the difference.
package layout
