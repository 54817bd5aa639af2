package layout

import (
	"fmt"
	"strings"

	"github.com/vk/stagegraph/internal/diagram"
	"github.com/vk/stagegraph/internal/execution"
	"github.com/vk/stagegraph/internal/nodeid"
)

// plan is the output of a walk, applied to a model afterwards.
type plan struct {
	layers []*diagram.Layer
	nodes  []*diagram.Node
	edges  []*diagram.Edge
	byID   map[string]*diagram.Node
}

type walker struct {
	style    Style
	readOnly bool
	selected string
	// collapseParallels replaces parallels taller than Style.AvailableHeight
	// by a single grouped node.
	collapseParallels bool
	plan              plan
}

func newWalker(style Style) *walker {
	return &walker{
		style: style.WithDefaults(),
		plan: plan{
			layers: []*diagram.Layer{{ID: diagram.RootLayer}},
			byID:   map[string]*diagram.Node{},
		},
	}
}

func (w *walker) add(n *diagram.Node) {
	n.Position.X = w.style.snap(n.Position.X)
	n.Position.Y = w.style.snap(n.Position.Y)
	w.plan.nodes = append(w.plan.nodes, n)
	w.plan.byID[n.ID] = n
}

// box adds a node of the given size centred vertically on y.
func (w *walker) box(id string, kind diagram.NodeKind, layer string, x, y, width, height float64) *diagram.Node {
	n := &diagram.Node{
		ID:       id,
		Kind:     kind,
		Ref:      nodeid.Ref(id),
		Layer:    layer,
		Position: diagram.Point{X: x, Y: y - height/2},
		Width:    width,
		Height:   height,
	}
	w.add(n)
	return n
}

func (w *walker) link(frontier []string, to, layer string) {
	for _, from := range frontier {
		w.edge(from, to, layer)
	}
}

func (w *walker) edge(from, to, layer string) {
	src, _ := nodeid.Parse(from)
	dst, _ := nodeid.Parse(to)

	e := &diagram.Edge{From: from, To: to, Layer: layer}
	if n, ok := w.plan.byID[from]; ok {
		e.Status = n.Status
	}
	e.Color = e.Status.EdgeColor()
	e.Dimmed = src.Role == nodeid.RoleFanOut || dst.Role == nodeid.RoleFanIn
	e.Hidden = (src.Role == nodeid.RoleGroupStart && src.Ref == layer) ||
		(dst.Role == nodeid.RoleGroupEnd && dst.Ref == layer)
	e.AllowAdd = !w.readOnly && !e.Dimmed &&
		src.Role != nodeid.RoleGroupCreate && src.Role != nodeid.RoleCreateNew &&
		dst.Role != nodeid.RoleServiceGroup && dst.Role != nodeid.RoleGroupCreate
	w.plan.edges = append(w.plan.edges, e)
}

func (w *walker) list(nodes []*vnode, layer string, frontier []string, x, y float64) ([]string, float64) {
	for _, v := range nodes {
		frontier, x = w.node(v, layer, frontier, x, y)
	}
	return frontier, x
}

func (w *walker) node(v *vnode, layer string, frontier []string, x, y float64) ([]string, float64) {
	switch v.kind {
	case vParallel:
		return w.parallel(v, layer, frontier, x, y)
	case vGroup:
		if v.collapsed {
			return w.collapsedGroup(v, layer, frontier, x, y)
		}
		return w.group(v, layer, frontier, x, y)
	}

	s := w.style
	kind := diagram.KindStep
	if v.approval {
		kind = diagram.KindApproval
	}
	n := w.box(v.id, kind, layer, x, y, s.NodeWidth, s.NodeHeight)
	w.decorate(n, v)
	w.link(frontier, n.ID, layer)
	return []string{n.ID}, x + s.NodeWidth + s.Gap
}

func (w *walker) decorate(n *diagram.Node, v *vnode) {
	n.Name = v.name
	n.Status = v.status
	n.Unsaved = v.unsaved
	n.Rollback = v.rollback
	n.Selected = w.selected != "" && w.selected == v.id
}

func (w *walker) parallel(v *vnode, layer string, frontier []string, x, y float64) ([]string, float64) {
	s := w.style
	first := v.firstID()

	total := 0.0
	for _, b := range v.children {
		total += b.band(s)
	}
	if w.collapseParallels && s.AvailableHeight > 0 && total > s.AvailableHeight {
		n := w.box(nodeid.FanOut(first), diagram.KindGrouped, layer, x, y, s.NodeWidth, s.NodeHeight)
		n.Status = v.status
		n.Name, n.Badge = groupedLabel(v.children, w.selected)
		n.Selected = w.selected != "" && containsID(v.children, w.selected)
		w.link(frontier, n.ID, layer)
		return []string{n.ID}, x + s.NodeWidth + s.Gap
	}

	fanOut := w.box(nodeid.FanOut(first), diagram.KindEmpty, layer, x, y, s.SmallNodeSize, s.SmallNodeSize)
	fanOut.Status = v.status
	w.link(frontier, fanOut.ID, layer)

	bx := x + s.SmallNodeSize + s.Gap
	right := bx
	var ends []string

	// The first branch stays on the incoming centre line; the others stack
	// below it, each in a band tall enough for its own content.
	top := y - s.NodeHeight/2 - v.children[0].headers*s.GroupHeaderHeight
	for _, b := range v.children {
		cy := top + b.headers*s.GroupHeaderHeight + s.NodeHeight/2
		f, bx2 := w.node(b, layer, []string{fanOut.ID}, bx, cy)
		ends = append(ends, f...)
		right = max(right, bx2)
		top += b.band(s)
	}

	fanIn := w.box(nodeid.FanIn(first), diagram.KindEmpty, layer, right, y, s.SmallNodeSize, s.SmallNodeSize)
	fanIn.Status = v.status
	w.link(ends, fanIn.ID, layer)
	return []string{fanIn.ID}, right + s.SmallNodeSize + s.Gap
}

// groupedLabel names up to two branches, the selected one first, and counts
// the rest.
func groupedLabel(branches []*vnode, selected string) (string, string) {
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		if selected != "" && containsID([]*vnode{b}, selected) {
			names = append([]string{nameOf(b)}, names...)
			continue
		}
		names = append(names, nameOf(b))
	}
	if len(names) <= 2 {
		return strings.Join(names, ", "), ""
	}
	return strings.Join(names[:2], ", "), fmt.Sprintf("+%d", len(names)-2)
}

func nameOf(v *vnode) string {
	if v.kind == vParallel && len(v.children) > 0 {
		return nameOf(v.children[0])
	}
	if v.name != "" {
		return v.name
	}
	return v.id
}

func containsID(nodes []*vnode, id string) bool {
	for _, v := range nodes {
		if v.id == id || containsID(v.children, id) {
			return true
		}
	}
	return false
}

func (w *walker) collapsedGroup(v *vnode, layer string, frontier []string, x, y float64) ([]string, float64) {
	s := w.style
	n := w.box(v.id, diagram.KindCollapsedGroup, layer, x, y, s.NodeWidth, s.NodeHeight)
	w.decorate(n, v)
	n.Collapsed = true
	if v.size > 0 {
		n.Badge = fmt.Sprintf("+%d", v.size)
	}
	w.link(frontier, n.ID, layer)
	return []string{n.ID}, x + s.NodeWidth + s.Gap
}

func (w *walker) group(v *vnode, layer string, frontier []string, x, y float64) ([]string, float64) {
	s := w.style
	l := &diagram.Layer{ID: v.id, Parent: layer}
	w.plan.layers = append(w.plan.layers, l)
	firstNode := len(w.plan.nodes)

	start := w.box(nodeid.GroupStart(v.id), diagram.KindGroupStart, v.id, x, y, s.SmallNodeSize, s.SmallNodeSize)
	w.decorate(start, v)
	w.link(frontier, start.ID, layer)
	cx := x + s.SmallNodeSize + s.Gap

	inner := []string{start.ID}
	switch {
	case len(v.children) > 0:
		inner, cx = w.list(v.children, v.id, inner, cx, y)
	case !w.readOnly:
		create := w.box(nodeid.GroupCreate(v.id), diagram.KindCreateNew, v.id, cx, y, s.SentinelSize(), s.SentinelSize())
		create.Ref = v.id
		w.link(inner, create.ID, v.id)
		inner = []string{create.ID}
		cx += s.SentinelSize() + s.Gap
	}

	end := w.box(nodeid.GroupEnd(v.id), diagram.KindGroupEnd, v.id, cx, y, s.SmallNodeSize, s.SmallNodeSize)
	end.Status = v.status
	w.link(inner, end.ID, v.id)

	w.bound(l, w.plan.nodes[firstNode:])
	return []string{end.ID}, cx + s.SmallNodeSize + s.Gap
}

// bound sizes l around nodes with half a gap of padding and room for the
// group header on top.
func (w *walker) bound(l *diagram.Layer, nodes []*diagram.Node) {
	if len(nodes) == 0 {
		return
	}
	s := w.style
	minX, minY := nodes[0].Position.X, nodes[0].Position.Y
	maxX, maxY := minX+nodes[0].Width, minY+nodes[0].Height
	for _, n := range nodes[1:] {
		minX = min(minX, n.Position.X)
		minY = min(minY, n.Position.Y)
		maxX = max(maxX, n.Position.X+n.Width)
		maxY = max(maxY, n.Position.Y+n.Height)
	}
	pad := s.Gap / 2
	l.Origin = diagram.Point{X: minX - pad, Y: minY - pad - s.GroupHeaderHeight}
	l.Width = maxX - minX + 2*pad
	l.Height = maxY - minY + 2*pad + s.GroupHeaderHeight
}

// sentinel adds a start, stop or create-new node.
func (w *walker) sentinel(id string, kind diagram.NodeKind, frontier []string, x, y float64, status execution.Status) ([]string, float64) {
	s := w.style
	n := w.box(id, kind, diagram.RootLayer, x, y, s.SentinelSize(), s.SentinelSize())
	n.Status = status
	w.link(frontier, id, diagram.RootLayer)
	return []string{id}, x + s.SentinelSize() + s.Gap
}
