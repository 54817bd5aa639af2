package layout

import (
	"math"

	"github.com/vk/stagegraph/internal/execution"
	"github.com/vk/stagegraph/internal/geometry"
	"github.com/vk/stagegraph/internal/pipeline"
	"github.com/vk/stagegraph/internal/stepstate"
)

type vkind int

const (
	vStep vkind = iota
	vParallel
	vGroup
)

// vnode is what the walker needs to know about a tree node, whichever tree
// it comes from. Group children are the list on display; a collapsed group
// has none.
type vnode struct {
	kind      vkind
	id        string
	name      string
	approval  bool
	status    execution.Status
	unsaved   bool
	collapsed bool
	rollback  bool
	children  []*vnode
	// size counts the steps and groups hidden behind a collapsed group.
	size    int
	rows    float64
	headers float64
}

// firstID is the identifier synthetic fan nodes are named after.
func (v *vnode) firstID() string {
	if v.kind == vParallel {
		if len(v.children) == 0 {
			return ""
		}
		return v.children[0].firstID()
	}
	return v.id
}

// band is the vertical room the node takes as a parallel branch.
func (v *vnode) band(s Style) float64 {
	return math.Ceil(max(v.rows, 1))*s.RowHeight() + v.headers*s.GroupHeaderHeight
}

func fromSteps(list []*pipeline.StepNode, states *stepstate.Map) []*vnode {
	out := make([]*vnode, 0, len(list))
	for _, n := range list {
		if v := fromStep(n, states); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func fromStep(n *pipeline.StepNode, states *stepstate.Map) *vnode {
	if n == nil {
		return nil
	}
	v := &vnode{
		rows:    geometry.Depth(n, states),
		headers: geometry.GroupHeaderDepth(n, states),
	}
	switch n.Kind {
	case pipeline.KindStep:
		if n.Step == nil {
			return nil
		}
		v.kind = vStep
		v.id, v.name = n.Step.Identifier, n.Step.Name
		v.approval = n.Step.Type == execution.ApprovalType
		v.unsaved = !saved(states, v.id)
	case pipeline.KindParallel:
		v.kind = vParallel
		v.children = fromSteps(n.Parallel, states)
		switch len(v.children) {
		case 0:
			return nil
		case 1:
			return v.children[0]
		}
	case pipeline.KindStepGroup:
		g := n.StepGroup
		if g == nil {
			return nil
		}
		v.kind = vGroup
		v.id, v.name = g.Identifier, g.Name
		v.unsaved = !saved(states, v.id)
		v.collapsed = states.Collapsed(g.Identifier)
		v.rollback = states.Rollback(g.Identifier)
		active := *g.List(v.rollback)
		v.size = len(pipeline.Identifiers(&pipeline.Tree{Steps: active}))
		if !v.collapsed {
			v.children = fromSteps(active, states)
		}
	default:
		return nil
	}
	return v
}

func saved(states *stepstate.Map, id string) bool {
	s, _ := states.Get(id)
	return s.IsSaved
}

func fromExecution(list []*execution.Node) []*vnode {
	out := make([]*vnode, 0, len(list))
	for _, n := range list {
		if v := fromExec(n); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func fromExec(n *execution.Node) *vnode {
	if n == nil {
		return nil
	}
	v := &vnode{
		status:  n.Status(),
		rows:    geometry.PipelineDepth(n),
		headers: geometry.PipelineHeaderDepth(n),
	}
	switch n.Kind {
	case execution.KindItem:
		if n.Item == nil {
			return nil
		}
		v.kind = vStep
		v.id, v.name = n.Item.Identifier, n.Item.Name
		v.approval = n.Item.Type == execution.ApprovalType
	case execution.KindParallel:
		v.kind = vParallel
		v.children = fromExecution(n.Parallel)
		switch len(v.children) {
		case 0:
			return nil
		case 1:
			return v.children[0]
		}
	case execution.KindGroup:
		g := n.Group
		if g == nil {
			return nil
		}
		v.kind = vGroup
		v.id, v.name = g.Identifier, g.Name
		v.collapsed = !g.IsOpen
		execution.Walk(g.Items, func(c *execution.Node) bool {
			if c.Identifier() != "" {
				v.size++
			}
			return true
		})
		if g.IsOpen {
			v.children = fromExecution(g.Items)
		}
	default:
		return nil
	}
	return v
}
