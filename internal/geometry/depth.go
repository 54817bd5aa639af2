package geometry

import (
	"github.com/vk/stagegraph/internal/execution"
	"github.com/vk/stagegraph/internal/pipeline"
	"github.com/vk/stagegraph/internal/stepstate"
)

// Row units.
const (
	// LeafDepth is the height of a lone step outside any group.
	LeafDepth = 0.7
	// GroupDepth is the height of a collapsed or empty group, and the header
	// every expanded group adds on top of its content.
	GroupDepth = 1.0
	// BranchDepth is the extra height of every parallel branch after the
	// first one inside a group.
	BranchDepth = 0.5
)

type shapeKind int

const (
	shapeLeaf shapeKind = iota
	shapeParallel
	shapeGroup
)

// shape is the part of a node that matters for measuring: its kind, whether
// a group is open, and the children on display.
type shape struct {
	kind     shapeKind
	open     bool
	children []shape
}

func (s shape) depth() float64 {
	switch s.kind {
	case shapeParallel:
		sum := 0.0
		for _, c := range s.children {
			sum += c.depth()
		}
		return sum
	case shapeGroup:
		if !s.open || len(s.children) == 0 {
			return GroupDepth
		}
		most := 0.0
		for _, c := range s.children {
			most = max(most, c.extra())
		}
		return GroupDepth + most
	}
	return LeafDepth
}

// extra is the height a child adds to its enclosing group beyond one row.
func (s shape) extra() float64 {
	switch s.kind {
	case shapeParallel:
		sum := 0.0
		for i, c := range s.children {
			if i > 0 {
				sum += BranchDepth
			}
			sum += c.extra()
		}
		return sum
	case shapeGroup:
		return s.depth()
	}
	return 0
}

func (s shape) headers() float64 {
	switch s.kind {
	case shapeParallel:
		most := 0.0
		for _, c := range s.children {
			most = max(most, c.headers())
		}
		return most
	case shapeGroup:
		if !s.open {
			return 0
		}
		most := 0.0
		for _, c := range s.children {
			most = max(most, c.headers())
		}
		return 1 + most
	}
	return 0
}

func stepShape(n *pipeline.StepNode, states *stepstate.Map) shape {
	if n == nil {
		return shape{}
	}
	switch n.Kind {
	case pipeline.KindParallel:
		return shape{kind: shapeParallel, children: stepShapes(n.Parallel, states)}
	case pipeline.KindStepGroup:
		g := n.StepGroup
		if g == nil {
			return shape{kind: shapeGroup}
		}
		open := !states.Collapsed(g.Identifier)
		s := shape{kind: shapeGroup, open: open}
		if open {
			s.children = stepShapes(*g.List(states.Rollback(g.Identifier)), states)
		}
		return s
	}
	return shape{}
}

func stepShapes(nodes []*pipeline.StepNode, states *stepstate.Map) []shape {
	out := make([]shape, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, stepShape(n, states))
		}
	}
	return out
}

func execShape(n *execution.Node) shape {
	if n == nil {
		return shape{}
	}
	switch n.Kind {
	case execution.KindParallel:
		return shape{kind: shapeParallel, children: execShapes(n.Parallel)}
	case execution.KindGroup:
		if n.Group == nil {
			return shape{kind: shapeGroup}
		}
		s := shape{kind: shapeGroup, open: n.Group.IsOpen}
		if s.open {
			s.children = execShapes(n.Group.Items)
		}
		return s
	}
	return shape{}
}

func execShapes(nodes []*execution.Node) []shape {
	out := make([]shape, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, execShape(n))
		}
	}
	return out
}

// Depth returns the height of n in row units, honouring the collapse and
// rollback toggles in states. A nil states map treats every group as open
// and showing its forward list.
func Depth(n *pipeline.StepNode, states *stepstate.Map) float64 {
	return stepShape(n, states).depth()
}

// GroupHeaderDepth returns the number of group header rows stacked above n
// along its deepest chain of open groups.
func GroupHeaderDepth(n *pipeline.StepNode, states *stepstate.Map) float64 {
	return stepShape(n, states).headers()
}

// PipelineDepth is Depth for an execution node. Groups use their own IsOpen
// flag.
func PipelineDepth(n *execution.Node) float64 {
	return execShape(n).depth()
}

// PipelineHeaderDepth is GroupHeaderDepth for an execution node.
func PipelineHeaderDepth(n *execution.Node) float64 {
	return execShape(n).headers()
}
