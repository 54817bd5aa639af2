package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/stagegraph/internal/execution"
	"github.com/vk/stagegraph/internal/geometry"
	"github.com/vk/stagegraph/internal/pipeline"
	"github.com/vk/stagegraph/internal/stepstate"
	tu "github.com/vk/stagegraph/internal/testutil"
)

func TestDepth(t *testing.T) {
	collapsed := stepstate.NewMap()
	collapsed.Set("g", stepstate.State{StepType: stepstate.TypeStepGroup, IsStepGroupCollapsed: true})

	testCases := []struct {
		name   string
		node   *pipeline.StepNode
		states *stepstate.Map
		want   float64
	}{
		{name: "leaf step", node: tu.S("a"), want: 0.7},
		{name: "group with one step", node: tu.G("g", tu.S("a")), want: 1},
		{name: "group with three parallel steps", node: tu.G("g", tu.P(tu.S("a"), tu.S("b"), tu.S("c"))), want: 2},
		{name: "empty group", node: tu.G("g"), want: 1},
		{name: "collapsed group", node: tu.G("g", tu.P(tu.S("a"), tu.S("b"))), states: collapsed, want: 1},
		{name: "nested group", node: tu.G("outer", tu.S("x"), tu.G("g", tu.S("a"))), want: 2},
		{name: "nested collapsed group", node: tu.G("outer", tu.G("g", tu.P(tu.S("a"), tu.S("b")))), states: collapsed, want: 2},
		{name: "top-level parallel sums branches", node: tu.P(tu.S("a"), tu.G("g", tu.S("b"))), want: 1.7},
		{name: "nil", node: nil, want: 0.7},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, geometry.Depth(tc.node, tc.states), 1e-9)
		})
	}
}

func TestDepth_UsesActiveList(t *testing.T) {
	node := tu.GR("g", tu.L(tu.S("a")), tu.L(tu.P(tu.S("r1"), tu.S("r2"))))
	states := stepstate.NewMap()
	states.Set("g", stepstate.State{StepType: stepstate.TypeStepGroup})

	assert.InDelta(t, 1.0, geometry.Depth(node, states), 1e-9)
	states.ToggleRollback("g")
	assert.InDelta(t, 1.5, geometry.Depth(node, states), 1e-9)
}

// Adding a branch or a nested level never makes a group shallower.
func TestDepth_Monotonic(t *testing.T) {
	steps := []*pipeline.StepNode{tu.S("a")}
	prev := geometry.Depth(tu.G("g", steps...), nil)
	for _, next := range []*pipeline.StepNode{
		tu.P(tu.S("b"), tu.S("c")),
		tu.G("inner", tu.S("d")),
		tu.P(tu.S("e"), tu.S("f"), tu.S("h")),
		tu.G("deeper", tu.G("deepest", tu.P(tu.S("i"), tu.S("j")))),
	} {
		steps = append(steps, next)
		cur := geometry.Depth(tu.G("g", steps...), nil)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}

	par := tu.P(tu.S("a"), tu.S("b"))
	before := geometry.Depth(par, nil)
	par.Parallel = append(par.Parallel, tu.S("c"))
	assert.Greater(t, geometry.Depth(par, nil), before)
}

func TestDepth_CollapsedNeverDeeper(t *testing.T) {
	testCases := []struct {
		name         string
		node         *pipeline.StepNode
		collapse     []string
		wantExpanded float64
		wantCollapse float64
	}{
		{name: "one step", node: tu.G("g", tu.S("a")), collapse: []string{"g"}, wantExpanded: 1, wantCollapse: 1},
		{name: "parallel inside", node: tu.G("g", tu.P(tu.S("a"), tu.S("b"), tu.S("c"))), collapse: []string{"g"}, wantExpanded: 2, wantCollapse: 1},
		{
			name:         "inner group of nested pair",
			node:         tu.G("outer", tu.S("x"), tu.G("g", tu.P(tu.S("a"), tu.S("b")))),
			collapse:     []string{"g"},
			wantExpanded: 2.5,
			wantCollapse: 2,
		},
		{
			name:         "outer group of nested pair",
			node:         tu.G("outer", tu.S("x"), tu.G("g", tu.P(tu.S("a"), tu.S("b")))),
			collapse:     []string{"outer"},
			wantExpanded: 2.5,
			wantCollapse: 1,
		},
		{
			name:         "group as parallel branch",
			node:         tu.P(tu.G("g", tu.P(tu.S("a"), tu.S("b"))), tu.S("c")),
			collapse:     []string{"g"},
			wantExpanded: 2.2,
			wantCollapse: 1.7,
		},
		{
			name:         "one of two groups in a parallel",
			node:         tu.G("outer", tu.P(tu.G("a", tu.P(tu.S("x"), tu.S("y"))), tu.G("b", tu.S("z")))),
			collapse:     []string{"a"},
			wantExpanded: 4,
			wantCollapse: 3.5,
		},
		{
			name:         "both groups in a parallel",
			node:         tu.G("outer", tu.P(tu.G("a", tu.P(tu.S("x"), tu.S("y"))), tu.G("b", tu.S("z")))),
			collapse:     []string{"a", "b"},
			wantExpanded: 4,
			wantCollapse: 3.5,
		},
		{
			name:         "innermost of three levels",
			node:         tu.G("o", tu.G("m", tu.G("i", tu.P(tu.S("a"), tu.S("b"), tu.S("c"))))),
			collapse:     []string{"i"},
			wantExpanded: 4,
			wantCollapse: 3,
		},
		{
			name:         "middle of three levels",
			node:         tu.G("o", tu.G("m", tu.G("i", tu.P(tu.S("a"), tu.S("b"), tu.S("c"))))),
			collapse:     []string{"m"},
			wantExpanded: 4,
			wantCollapse: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			open := stepstate.NewMap()
			closed := stepstate.NewMap()
			pipeline.Walk([]*pipeline.StepNode{tc.node}, func(n *pipeline.StepNode, _ int) bool {
				if n.Kind == pipeline.KindStepGroup {
					open.Set(n.StepGroup.Identifier, stepstate.State{StepType: stepstate.TypeStepGroup})
					closed.Set(n.StepGroup.Identifier, stepstate.State{StepType: stepstate.TypeStepGroup})
				}
				return true
			})
			for _, id := range tc.collapse {
				closed.Set(id, stepstate.State{StepType: stepstate.TypeStepGroup, IsStepGroupCollapsed: true})
			}

			expanded := geometry.Depth(tc.node, open)
			collapsed := geometry.Depth(tc.node, closed)

			assert.InDelta(t, tc.wantExpanded, expanded, 1e-9)
			assert.InDelta(t, tc.wantCollapse, collapsed, 1e-9)
			assert.LessOrEqual(t, collapsed, expanded)
		})
	}
}

func TestGroupHeaderDepth(t *testing.T) {
	collapsed := stepstate.NewMap()
	collapsed.Set("inner", stepstate.State{StepType: stepstate.TypeStepGroup, IsStepGroupCollapsed: true})

	node := tu.G("outer", tu.S("a"), tu.P(tu.S("b"), tu.G("inner", tu.G("innermost", tu.S("c")))))

	assert.InDelta(t, 0.0, geometry.GroupHeaderDepth(tu.S("a"), nil), 1e-9)
	assert.InDelta(t, 3.0, geometry.GroupHeaderDepth(node, nil), 1e-9)
	assert.InDelta(t, 1.0, geometry.GroupHeaderDepth(node, collapsed), 1e-9)
}

func TestPipelineDepth(t *testing.T) {
	item := func(id string) *execution.Node {
		return execution.NewItem(&execution.Item{Identifier: id, Name: id})
	}
	group := func(open bool, items ...*execution.Node) *execution.Node {
		return execution.NewGroup(&execution.Group{Identifier: "g", IsOpen: open, Items: items})
	}

	assert.InDelta(t, 0.7, geometry.PipelineDepth(item("a")), 1e-9)
	assert.InDelta(t, 1.0, geometry.PipelineDepth(group(false, execution.NewParallel(item("a"), item("b")))), 1e-9)
	assert.InDelta(t, 1.5, geometry.PipelineDepth(group(true, execution.NewParallel(item("a"), item("b")))), 1e-9)
	assert.InDelta(t, 2.0, geometry.PipelineHeaderDepth(group(true, group(true, item("a")))), 1e-9)
	assert.InDelta(t, 1.0, geometry.PipelineHeaderDepth(group(true, group(false, item("a")))), 1e-9)
}
