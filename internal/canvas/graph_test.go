package canvas_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegraph/internal/canvas"
	"github.com/vk/stagegraph/internal/diagram"
	"github.com/vk/stagegraph/internal/layout"
	"github.com/vk/stagegraph/internal/nodeid"
	"github.com/vk/stagegraph/internal/pipeline"
	"github.com/vk/stagegraph/internal/stepstate"
	"github.com/vk/stagegraph/internal/stepstree"
	tu "github.com/vk/stagegraph/internal/testutil"
	"github.com/vk/stagegraph/internal/yamlconfig"
)

type recorder struct {
	adds      []canvas.AddEvent
	edits     []canvas.EditEvent
	changes   []pipeline.Tree
	conflicts []error
}

func (r *recorder) callbacks() canvas.Callbacks {
	return canvas.Callbacks{
		OnAdd:      func(e canvas.AddEvent) { r.adds = append(r.adds, e) },
		OnEdit:     func(e canvas.EditEvent) { r.edits = append(r.edits, e) },
		OnChange:   func(t pipeline.Tree) { r.changes = append(r.changes, t) },
		OnConflict: func(err error) { r.conflicts = append(r.conflicts, err) },
	}
}

func newGraph(t *testing.T, tree *pipeline.Tree, opts canvas.GraphOptions) (*canvas.ExecutionGraph, *diagram.Model, *recorder) {
	t.Helper()
	m := diagram.NewModel()
	rec := &recorder{}
	opts.Style = layout.DefaultStyle()
	g := canvas.NewExecutionGraph(context.Background(), m, rec.callbacks(), opts)
	require.NoError(t, g.SetTree(tree, nil, tree.Clone(), nil))
	return g, m, rec
}

func TestExecutionGraph_SetTreeRendersAndMarksSaved(t *testing.T) {
	original := tu.T(tu.S("A"))
	current := tu.T(tu.S("A"), tu.S("B"))
	m := diagram.NewModel()
	g := canvas.NewExecutionGraph(context.Background(), m, canvas.Callbacks{}, canvas.GraphOptions{})

	require.NoError(t, g.SetTree(current, nil, original, nil))

	a, _ := m.Node("A")
	b, _ := m.Node("B")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.False(t, a.Unsaved)
	assert.True(t, b.Unsaved)

	require.NoError(t, g.MarkPersisted())
	b, _ = m.Node("B")
	assert.False(t, b.Unsaved)
}

func TestExecutionGraph_SetTreeKeepsToggles(t *testing.T) {
	tree := tu.T(tu.G("G", tu.S("X")))
	g, m, _ := newGraph(t, tree, canvas.GraphOptions{})

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventCollapse, NodeID: nodeid.GroupStart("G")}))
	require.True(t, g.States().Collapsed("G"))

	require.NoError(t, g.SetTree(tu.T(tu.G("G", tu.S("X"), tu.S("Y"))), nil, tree, nil))

	assert.True(t, g.States().Collapsed("G"))
	n, ok := m.Node("G")
	require.True(t, ok)
	assert.Equal(t, diagram.KindCollapsedGroup, n.Kind)
}

func TestExecutionGraph_CreateNewThenAdd(t *testing.T) {
	g, m, rec := newGraph(t, tu.T(tu.S("A")), canvas.GraphOptions{})

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeClick, NodeID: nodeid.CreateNewID}))
	require.Len(t, rec.adds, 1)
	ev := rec.adds[0]
	assert.Equal(t, stepstree.CreateNewAnchor{}, ev.Entity)
	assert.Same(t, g.States(), ev.StepsMap)

	require.NoError(t, g.Add(ev, tu.S("NEW")))

	assert.Equal(t, []string{"A", "NEW"}, pipeline.Identifiers(g.Tree()))
	require.Len(t, rec.changes, 1)
	st, ok := g.States().Get("NEW")
	require.True(t, ok)
	assert.Equal(t, stepstate.TypeStep, st.StepType)
	_, ok = m.Node("NEW")
	assert.True(t, ok)
}

func TestExecutionGraph_GroupCreateUsesGroupRollback(t *testing.T) {
	tree := tu.T(tu.GR("G", nil, nil))
	g, m, rec := newGraph(t, tree, canvas.GraphOptions{})
	g.States().ToggleRollback("G")
	require.NoError(t, g.Render())

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeClick, NodeID: nodeid.GroupCreate("G")}))

	require.Len(t, rec.adds, 1)
	ev := rec.adds[0]
	assert.Equal(t, stepstree.CreateNewAnchor{GroupIdentifier: "G"}, ev.Entity)
	assert.True(t, ev.IsRollback)
	assert.Equal(t, "G", ev.ParentIdentifier)

	require.NoError(t, g.Add(ev, tu.S("undo")))
	grp := g.Tree().Steps[0].StepGroup
	assert.Empty(t, grp.Steps)
	require.Len(t, grp.RollbackSteps, 1)
}

func TestExecutionGraph_NodeClickEdits(t *testing.T) {
	_, m, rec := newGraph(t, tu.T(tu.S("A"), tu.G("G", tu.S("X"))), canvas.GraphOptions{})

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeClick, NodeID: "A"}))
	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeClick, NodeID: nodeid.GroupStart("G")}))

	require.Len(t, rec.edits, 2)
	assert.Equal(t, "A", rec.edits[0].Node.ID)
	assert.False(t, rec.edits[0].IsStepGroup)
	assert.Equal(t, stepstate.TypeStep, rec.edits[0].StepType)
	assert.True(t, rec.edits[1].IsStepGroup)

	a, _ := m.Node("A")
	assert.False(t, a.Selected)
	x, _ := m.Node(nodeid.GroupStart("G"))
	assert.True(t, x.Selected)
}

func TestExecutionGraph_LinkClickAndAdd(t *testing.T) {
	g, m, rec := newGraph(t, tu.T(tu.S("A"), tu.G("G", tu.S("X"))), canvas.GraphOptions{})

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventLinkClick, From: "X", To: nodeid.GroupEnd("G")}))

	require.Len(t, rec.adds, 1)
	ev := rec.adds[0]
	assert.Equal(t, stepstree.LinkAnchor{Source: "X", Target: nodeid.GroupEnd("G")}, ev.Entity)
	assert.Equal(t, "G", ev.ParentIdentifier)

	require.NoError(t, g.Add(ev, tu.S("NEW")))
	assert.Equal(t, []string{"A", "G", "X", "NEW"}, pipeline.Identifiers(g.Tree()))
	st, _ := g.States().Get("NEW")
	assert.Equal(t, 1, st.InheritedSG)
}

func TestExecutionGraph_LinkClickIntoEmptyRollbackList(t *testing.T) {
	g, m, rec := newGraph(t, tu.T(tu.GR("G", tu.L(tu.S("X")), nil)), canvas.GraphOptions{})

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventRollbackToggle, NodeID: nodeid.GroupStart("G")}))
	require.True(t, g.States().Rollback("G"))
	assert.False(t, g.RollbackView())

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventLinkClick, From: nodeid.GroupCreate("G"), To: nodeid.GroupEnd("G")}))
	require.Len(t, rec.adds, 1)
	assert.True(t, rec.adds[0].IsRollback)

	require.NoError(t, g.Add(rec.adds[0], tu.S("NEW")))
	want := tu.T(tu.GR("G", tu.L(tu.S("X")), tu.L(tu.S("NEW"))))
	assert.JSONEq(t, tu.MustJSON(t, want), tu.MustJSON(t, g.Tree()))
}

func TestExecutionGraph_AddParallel(t *testing.T) {
	g, m, rec := newGraph(t, tu.T(tu.S("A")), canvas.GraphOptions{})

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventAddParallel, NodeID: "A"}))
	require.Len(t, rec.adds, 1)
	assert.True(t, rec.adds[0].IsParallel)

	require.NoError(t, g.Add(rec.adds[0], tu.S("B")))
	assert.JSONEq(t, tu.MustJSON(t, tu.T(tu.P(tu.S("A"), tu.S("B")))), tu.MustJSON(t, g.Tree()))
}

func TestExecutionGraph_AddUnresolvedAnchor(t *testing.T) {
	g, _, rec := newGraph(t, tu.T(tu.S("A")), canvas.GraphOptions{})

	err := g.Add(canvas.AddEvent{Entity: stepstree.NodeAnchor{Identifier: "ghost"}, IsParallel: true}, tu.S("B"))

	assert.ErrorIs(t, err, stepstree.ErrNotFound)
	assert.Empty(t, rec.changes)
}

func TestExecutionGraph_RemovePrunesState(t *testing.T) {
	g, m, rec := newGraph(t, tu.T(tu.P(tu.S("A"), tu.S("B"))), canvas.GraphOptions{})

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeRemove, NodeID: "B"}))

	assert.JSONEq(t, tu.MustJSON(t, tu.T(tu.S("A"))), tu.MustJSON(t, g.Tree()))
	assert.False(t, g.States().Has("B"))
	assert.Len(t, rec.changes, 1)
	_, ok := m.Node("B")
	assert.False(t, ok)
}

func TestExecutionGraph_RemoveService(t *testing.T) {
	m := diagram.NewModel()
	g := canvas.NewExecutionGraph(context.Background(), m, canvas.Callbacks{}, canvas.GraphOptions{})
	services := []*pipeline.Service{tu.Svc("db")}
	require.NoError(t, g.SetTree(tu.T(tu.S("A")), services, nil, nil))
	require.True(t, g.States().Has(stepstate.StaticServiceGroupName))

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeRemove, NodeID: "db"}))

	assert.Empty(t, g.Services())
	assert.False(t, g.States().Has("db"))
	assert.False(t, g.States().Has(stepstate.StaticServiceGroupName))
	_, ok := m.Node(nodeid.ServiceGroupID)
	assert.False(t, ok)
}

func TestExecutionGraph_NullServiceEntries(t *testing.T) {
	doc, err := yamlconfig.Parse([]byte(`{
  "services": [null, {"identifier": "db", "name": "Postgres", "type": "postgres"}],
  "steps": [{"step": {"identifier": "A", "name": "A", "type": "ShellScript"}}]
}`), yamlconfig.FormatJSON)
	require.NoError(t, err)
	require.Len(t, doc.Services, 2)

	m := diagram.NewModel()
	g := canvas.NewExecutionGraph(context.Background(), m, canvas.Callbacks{}, canvas.GraphOptions{})

	assert.NotPanics(t, func() {
		require.NoError(t, g.SetTree(&doc.Tree, doc.Services, &doc.Tree, doc.Services))
	})
	_, ok := m.Node("db")
	assert.True(t, ok)

	assert.NotPanics(t, func() {
		require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeRemove, NodeID: "A"}))
	})
	assert.True(t, g.States().Has("db"))
	assert.False(t, g.States().Has("A"))
}

func TestExecutionGraph_NestedParallelRenders(t *testing.T) {
	tree := tu.T(tu.P(tu.P(tu.S("A"), tu.S("B")), tu.S("C")))

	_, m, _ := newGraph(t, tree, canvas.GraphOptions{})

	for _, id := range []string{"A", "B", "C", nodeid.FanOut("A"), nodeid.FanIn("A")} {
		_, ok := m.Node(id)
		assert.True(t, ok, id)
	}
	require.Len(t, tree.Steps, 1)
	assert.Len(t, tree.Steps[0].Parallel, 3)
}

func TestExecutionGraph_LinkDropMoves(t *testing.T) {
	g, m, rec := newGraph(t, tu.T(tu.S("A"), tu.S("B"), tu.S("C")), canvas.GraphOptions{})

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventLinkDrop, From: "B", To: "C", Dragged: "A"}))

	assert.Equal(t, []string{"B", "A", "C"}, pipeline.Identifiers(g.Tree()))
	assert.Len(t, rec.changes, 1)
	assert.Empty(t, rec.conflicts)
}

func TestExecutionGraph_DropConflict(t *testing.T) {
	tree := tu.T(tu.S("A"), tu.G("G1", tu.S("X"), tu.S("Y")), tu.G("G2", tu.S("Z")))
	g, m, rec := newGraph(t, tree, canvas.GraphOptions{})
	before := tu.MustJSON(t, g.Tree())

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventLinkDrop, From: "X", To: "Y", Dragged: nodeid.GroupStart("G2")}))

	require.Len(t, rec.conflicts, 1)
	assert.ErrorIs(t, rec.conflicts[0], stepstree.ErrStructuralConflict)
	assert.Empty(t, rec.changes)
	assert.Equal(t, before, tu.MustJSON(t, g.Tree()))
}

func TestExecutionGraph_NodeDropMakesParallel(t *testing.T) {
	g, m, _ := newGraph(t, tu.T(tu.S("A"), tu.S("B")), canvas.GraphOptions{})

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeDrop, NodeID: "A", Dragged: "B"}))

	assert.JSONEq(t, tu.MustJSON(t, tu.T(tu.P(tu.S("A"), tu.S("B")))), tu.MustJSON(t, g.Tree()))
}

func TestExecutionGraph_ReadOnlyIgnoresEdits(t *testing.T) {
	g, m, rec := newGraph(t, tu.T(tu.S("A"), tu.S("B")), canvas.GraphOptions{ReadOnly: true})

	assert.False(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeRemove, NodeID: "A"}))
	assert.False(t, m.Dispatch(diagram.Event{Kind: diagram.EventLinkClick, From: "A", To: "B"}))
	assert.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeClick, NodeID: "A"}))

	assert.Equal(t, []string{"A", "B"}, pipeline.Identifiers(g.Tree()))
	assert.Empty(t, rec.adds)
	assert.Len(t, rec.edits, 1)
	_, ok := m.Node(nodeid.CreateNewID)
	assert.False(t, ok)
}

func TestExecutionGraph_RollbackView(t *testing.T) {
	tree := tu.T(tu.S("fwd"))
	tree.RollbackSteps = tu.L(tu.S("back"))
	g, m, rec := newGraph(t, tree, canvas.GraphOptions{})

	require.NoError(t, g.ToggleRollbackView())
	_, ok := m.Node("back")
	assert.True(t, ok)

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeClick, NodeID: nodeid.CreateNewID}))
	require.Len(t, rec.adds, 1)
	assert.True(t, rec.adds[0].IsRollback)
	require.NoError(t, g.Add(rec.adds[0], tu.S("back2")))
	assert.Len(t, g.Tree().RollbackSteps, 2)
}

func TestExecutionGraph_HoverTracking(t *testing.T) {
	g, m, _ := newGraph(t, tu.T(tu.S("A")), canvas.GraphOptions{})

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventMouseEnter, NodeID: "A"}))
	assert.Equal(t, "A", g.Hovered())
	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventMouseLeave, NodeID: "A"}))
	assert.Empty(t, g.Hovered())
}

func TestExecutionGraph_CameraIsDebounced(t *testing.T) {
	cam := &fakeCamera{}
	g, m, _ := newGraph(t, tu.T(tu.S("A")), canvas.GraphOptions{Camera: cam, DebounceDelay: time.Hour})

	for i := 1; i <= 3; i++ {
		m.Dispatch(diagram.Event{Kind: diagram.EventOffsetChange, Offset: diagram.Point{X: float64(i)}})
	}
	m.Dispatch(diagram.Event{Kind: diagram.EventZoomChange, Zoom: 1.5})

	offsets, zooms := cam.snapshot()
	assert.Empty(t, offsets)
	assert.Empty(t, zooms)

	g.FlushCamera()

	offsets, zooms = cam.snapshot()
	assert.Equal(t, []diagram.Point{{X: 3}}, offsets)
	assert.Equal(t, []float64{1.5}, zooms)
}
