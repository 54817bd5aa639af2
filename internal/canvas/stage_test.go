package canvas_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegraph/internal/canvas"
	"github.com/vk/stagegraph/internal/diagram"
	"github.com/vk/stagegraph/internal/execution"
)

func execItem(id string, status execution.Status) *execution.Node {
	return execution.NewItem(&execution.Item{Identifier: id, Name: id, Status: status})
}

func TestStageDiagram_FocusesRunningItemOnce(t *testing.T) {
	cam := &fakeCamera{}
	m := diagram.NewModel()
	d := canvas.NewStageDiagram(context.Background(), m, canvas.StageOptions{Camera: cam, DebounceDelay: time.Hour})
	p := &execution.Pipeline{Identifier: "run-1", Items: []*execution.Node{
		execItem("a", execution.StatusSuccess),
		execItem("b", execution.StatusRunning),
	}}

	require.NoError(t, d.Render(p))
	require.NoError(t, d.Render(p))

	offsets, _ := cam.snapshot()
	require.Len(t, offsets, 1)
	b, _ := m.Node("b")
	assert.Equal(t, diagram.Point{X: b.Position.X + b.Width/2, Y: b.Position.Y + b.Height/2}, offsets[0])
}

func TestStageDiagram_ManualPanStopsAutoFocus(t *testing.T) {
	cam := &fakeCamera{}
	m := diagram.NewModel()
	d := canvas.NewStageDiagram(context.Background(), m, canvas.StageOptions{Camera: cam, DebounceDelay: time.Hour})
	p := &execution.Pipeline{Identifier: "run-1", Items: []*execution.Node{execItem("a", execution.StatusNotStarted)}}
	require.NoError(t, d.Render(p))

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventOffsetChange, Offset: diagram.Point{X: 9, Y: 9}}))
	p.Items[0].Item.Status = execution.StatusRunning
	require.NoError(t, d.Render(p))

	offsets, _ := cam.snapshot()
	assert.Empty(t, offsets)

	d.FlushCamera()
	offsets, _ = cam.snapshot()
	assert.Equal(t, []diagram.Point{{X: 9, Y: 9}}, offsets)
}

func TestStageDiagram_SelectAndOpenGroup(t *testing.T) {
	var picked []string
	m := diagram.NewModel()
	d := canvas.NewStageDiagram(context.Background(), m, canvas.StageOptions{
		OnSelect: func(id string) { picked = append(picked, id) },
	})
	grp := &execution.Group{Identifier: "G", Name: "G", Status: execution.StatusSuccess, Items: []*execution.Node{
		execItem("x", execution.StatusSuccess),
	}}
	p := &execution.Pipeline{Identifier: "run-1", Items: []*execution.Node{
		execItem("a", execution.StatusSuccess),
		execution.NewGroup(grp),
	}}
	require.NoError(t, d.Render(p))

	n, ok := m.Node("G")
	require.True(t, ok)
	assert.Equal(t, diagram.KindCollapsedGroup, n.Kind)

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventCollapse, NodeID: "G"}))
	assert.True(t, grp.IsOpen)
	_, ok = m.Node("x")
	assert.True(t, ok)
	assert.NotNil(t, m.Layer("G"))

	require.True(t, m.Dispatch(diagram.Event{Kind: diagram.EventNodeClick, NodeID: "x"}))
	assert.Equal(t, []string{"x"}, picked)
	assert.Equal(t, "x", d.Selected())
	x, _ := m.Node("x")
	assert.True(t, x.Selected)
}
