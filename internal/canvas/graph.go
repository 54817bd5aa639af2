package canvas

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vk/stagegraph/internal/ctxlog"
	"github.com/vk/stagegraph/internal/diagram"
	"github.com/vk/stagegraph/internal/layout"
	"github.com/vk/stagegraph/internal/nodeid"
	"github.com/vk/stagegraph/internal/pipeline"
	"github.com/vk/stagegraph/internal/stepstate"
	"github.com/vk/stagegraph/internal/stepstree"
)

// AddEvent asks the host for a new step to insert at Entity. The host
// answers by calling ExecutionGraph.Add with the same event.
type AddEvent struct {
	Entity     stepstree.Anchor
	IsParallel bool
	IsRollback bool
	StepsMap   *stepstate.Map
	// ParentIdentifier is the step group the new step lands in, or "".
	ParentIdentifier string
}

// EditEvent asks the host to open the editor of an existing node.
type EditEvent struct {
	Node        *diagram.Node
	IsStepGroup bool
	StepsMap    *stepstate.Map
	StepType    stepstate.StepType
}

// Callbacks are the host's hooks. Any of them may be nil.
type Callbacks struct {
	OnAdd  func(AddEvent)
	OnEdit func(EditEvent)
	// OnChange receives the tree after every structural change; the host
	// persists it.
	OnChange   func(pipeline.Tree)
	OnConflict func(error)
}

// GraphOptions configures an ExecutionGraph.
type GraphOptions struct {
	ReadOnly      bool
	Style         layout.Style
	Camera        Camera
	DebounceDelay time.Duration
}

// ExecutionGraph is the controller of the editable diagram. It is driven
// from a single event loop and is not safe for concurrent use.
type ExecutionGraph struct {
	logger    *slog.Logger
	model     *diagram.Model
	layout    *layout.StepModel
	callbacks Callbacks
	camera    *debouncedCamera
	readOnly  bool

	tree             *pipeline.Tree
	services         []*pipeline.Service
	original         *pipeline.Tree
	originalServices []*pipeline.Service
	states           *stepstate.Map

	rollbackView bool
	selected     string
	hovered      string
}

// NewExecutionGraph returns a controller rendering into model. The logger is
// taken from ctx.
func NewExecutionGraph(ctx context.Context, model *diagram.Model, cb Callbacks, opts GraphOptions) *ExecutionGraph {
	return &ExecutionGraph{
		logger:    ctxlog.FromContext(ctx).With("component", "execution_graph", "model", model.ID()),
		model:     model,
		layout:    layout.NewStepModel(opts.Style),
		callbacks: cb,
		camera:    newDebouncedCamera(opts.Camera, opts.DebounceDelay),
		readOnly:  opts.ReadOnly,
		tree:      &pipeline.Tree{},
		original:  &pipeline.Tree{},
		states:    stepstate.NewMap(),
	}
}

// SetTree loads a new tree, with original as the last persisted version.
// Collapse and rollback toggles of identifiers that survive are kept. tree is
// normalized in place before it is drawn.
func (g *ExecutionGraph) SetTree(tree *pipeline.Tree, services []*pipeline.Service, original *pipeline.Tree, originalServices []*pipeline.Service) error {
	if tree == nil {
		tree = &pipeline.Tree{}
	}
	if original == nil {
		original = &pipeline.Tree{}
	}
	if n := stepstree.Normalize(tree); n > 0 {
		g.logger.Debug("Normalized parallels.", "count", n)
	}
	g.tree, g.services = tree, services
	g.original, g.originalServices = original.Clone(), pipeline.CloneServices(originalServices)

	next := stepstate.NewMap()
	stepstate.Collect(g.tree, next)
	if len(g.services) > 0 {
		stepstate.CollectDependencies(g.services, next)
	}
	stepstate.Reconcile(next, g.states)
	g.states = next
	g.markSaved()

	g.logger.Debug("Tree loaded.", "nodes", g.states.Len())
	return g.Render()
}

func (g *ExecutionGraph) markSaved() {
	stepstate.MarkSaved(g.original, g.states)
	stepstate.MarkDependenciesSaved(g.originalServices, g.states)
}

// MarkPersisted records the current tree as saved.
func (g *ExecutionGraph) MarkPersisted() error {
	g.original = g.tree.Clone()
	g.originalServices = pipeline.CloneServices(g.services)
	g.markSaved()
	return g.Render()
}

// Tree returns the tree being edited.
func (g *ExecutionGraph) Tree() *pipeline.Tree { return g.tree }

// Services returns the service dependencies being edited.
func (g *ExecutionGraph) Services() []*pipeline.Service { return g.services }

// States returns the state map.
func (g *ExecutionGraph) States() *stepstate.Map { return g.states }

// Hovered returns the node under the pointer, or "".
func (g *ExecutionGraph) Hovered() string { return g.hovered }

// RollbackView reports whether the root rollback list is on display.
func (g *ExecutionGraph) RollbackView() bool { return g.rollbackView }

// Render redraws the diagram from the current tree.
func (g *ExecutionGraph) Render() error {
	listeners := g.listeners()
	return g.layout.Render(g.model, g.tree, g.services, g.states, layout.StepOptions{
		ReadOnly:  g.readOnly,
		Rollback:  g.rollbackView,
		Selected:  g.selected,
		Listeners: &listeners,
	})
}

func (g *ExecutionGraph) listeners() diagram.Listeners {
	l := diagram.Listeners{
		OnNodeClick:      g.HandleNodeClick,
		OnCollapse:       g.HandleCollapse,
		OnRollbackToggle: g.HandleRollbackToggle,
		OnMouseEnter:     g.HandleMouseEnter,
		OnMouseLeave:     g.HandleMouseLeave,
		OnOffsetChange:   func(e diagram.Event) { g.camera.offset(e.Offset) },
		OnZoomChange:     func(e diagram.Event) { g.camera.zoom(e.Zoom) },
	}
	if !g.readOnly {
		l.OnNodeRemove = g.HandleNodeRemove
		l.OnAddParallel = g.HandleAddParallel
		l.OnLinkClick = g.HandleLinkClick
		l.OnLinkDrop = g.HandleLinkDrop
		l.OnNodeDrop = g.HandleNodeDrop
	}
	return l
}

// ToggleRollbackView switches the root between forward and rollback steps.
func (g *ExecutionGraph) ToggleRollbackView() error {
	g.rollbackView = !g.rollbackView
	return g.Render()
}

// HandleNodeClick opens the add flow on placeholders and the edit flow on
// everything else.
func (g *ExecutionGraph) HandleNodeClick(e diagram.Event) {
	id, _ := nodeid.Parse(e.NodeID)
	switch id.Role {
	case nodeid.RoleCreateNew:
		g.add(AddEvent{Entity: stepstree.CreateNewAnchor{}, IsRollback: g.rollbackView})
		return
	case nodeid.RoleGroupCreate:
		g.add(AddEvent{
			Entity:           stepstree.CreateNewAnchor{GroupIdentifier: id.Ref},
			IsRollback:       g.states.Rollback(id.Ref),
			ParentIdentifier: id.Ref,
		})
		return
	case nodeid.RoleNone, nodeid.RoleGroupStart:
	default:
		return
	}

	node, ok := g.model.Node(e.NodeID)
	if !ok {
		return
	}
	state, ok := g.states.Get(id.Ref)
	if !ok {
		g.logger.Warn("Clicked node has no state entry.", "id", id.Ref)
		return
	}
	g.selected = id.Ref
	if g.callbacks.OnEdit != nil {
		g.callbacks.OnEdit(EditEvent{
			Node:        node,
			IsStepGroup: state.StepType == stepstate.TypeStepGroup,
			StepsMap:    g.states,
			StepType:    state.StepType,
		})
	}
	g.render()
}

// HandleNodeRemove deletes the clicked node from the tree or the services.
func (g *ExecutionGraph) HandleNodeRemove(e diagram.Event) {
	id := stepstree.RealIdentifier(e.NodeID)
	if !stepstree.Remove(g.tree, &g.services, id, false) {
		g.logger.Warn("Nothing to remove.", "id", e.NodeID)
		return
	}
	g.logger.Info("Node removed.", "id", id)
	if g.selected == id {
		g.selected = ""
	}
	g.changed()
}

// HandleAddParallel asks the host for a step to run next to the clicked one.
func (g *ExecutionGraph) HandleAddParallel(e diagram.Event) {
	id := stepstree.RealIdentifier(e.NodeID)
	if id == "" {
		return
	}
	g.add(AddEvent{
		Entity:           stepstree.NodeAnchor{Identifier: id},
		IsParallel:       true,
		IsRollback:       g.rollbackView,
		ParentIdentifier: g.parentGroup(e.NodeID),
	})
}

// HandleLinkClick asks the host for a step to insert on the clicked edge.
func (g *ExecutionGraph) HandleLinkClick(e diagram.Event) {
	layer := g.edgeGroup(e.From, e.To)
	g.add(AddEvent{
		Entity:           stepstree.LinkAnchor{Source: e.From, Target: e.To},
		IsRollback:       g.layerRollback(layer),
		ParentIdentifier: layer,
	})
}

func (g *ExecutionGraph) add(ev AddEvent) {
	ev.StepsMap = g.states
	if g.callbacks.OnAdd != nil {
		g.callbacks.OnAdd(ev)
	}
}

// Add inserts node where ev points; ev is what OnAdd received.
func (g *ExecutionGraph) Add(ev AddEvent, node *pipeline.StepNode) error {
	if !stepstree.Insert(ev.Entity, g.tree, node, ev.IsParallel, ev.IsRollback) {
		return stepstree.ErrNotFound
	}
	g.logger.Info("Node added.", "id", node.Identifier(), "parallel", ev.IsParallel)
	g.changed()
	return nil
}

// AddService appends a service dependency.
func (g *ExecutionGraph) AddService(s *pipeline.Service) {
	g.services = append(g.services, s)
	g.changed()
}

// HandleLinkDrop moves the dragged node onto an edge.
func (g *ExecutionGraph) HandleLinkDrop(e diagram.Event) {
	anchor := stepstree.LinkAnchor{Source: e.From, Target: e.To}
	g.move(e.Dragged, anchor, g.layerRollback(g.edgeGroup(e.From, e.To)))
}

// HandleNodeDrop moves the dragged node next to the target in a parallel.
func (g *ExecutionGraph) HandleNodeDrop(e diagram.Event) {
	g.move(e.Dragged, stepstree.NodeAnchor{Identifier: e.NodeID}, g.rollbackView)
}

func (g *ExecutionGraph) move(dragged string, anchor stepstree.Anchor, rollback bool) {
	id := stepstree.RealIdentifier(dragged)
	err := stepstree.Move(g.tree, g.services, id, anchor, rollback)
	switch {
	case errors.Is(err, stepstree.ErrStructuralConflict):
		g.logger.Warn("Drop rejected.", "dragged", id, "error", err)
		if g.callbacks.OnConflict != nil {
			g.callbacks.OnConflict(err)
		}
		return
	case err != nil:
		g.logger.Warn("Drop ignored.", "dragged", id, "error", err)
		return
	}
	g.logger.Info("Node moved.", "id", id)
	g.changed()
}

// HandleCollapse toggles a step group between collapsed and expanded.
func (g *ExecutionGraph) HandleCollapse(e diagram.Event) {
	id := stepstree.RealIdentifier(e.NodeID)
	if !g.states.Has(id) {
		return
	}
	g.states.ToggleCollapsed(id)
	g.render()
}

// HandleRollbackToggle switches a step group between its forward and
// rollback lists.
func (g *ExecutionGraph) HandleRollbackToggle(e diagram.Event) {
	id := stepstree.RealIdentifier(e.NodeID)
	if !g.states.Has(id) {
		return
	}
	g.states.ToggleRollback(id)
	g.render()
}

// HandleMouseEnter tracks the hovered node.
func (g *ExecutionGraph) HandleMouseEnter(e diagram.Event) { g.hovered = e.NodeID }

// HandleMouseLeave clears the hovered node.
func (g *ExecutionGraph) HandleMouseLeave(e diagram.Event) {
	if g.hovered == e.NodeID {
		g.hovered = ""
	}
}

// FlushCamera delivers pending camera updates now.
func (g *ExecutionGraph) FlushCamera() { g.camera.flush() }

// changed refreshes the state map after a structural change, tells the host
// and redraws.
func (g *ExecutionGraph) changed() {
	stepstate.Collect(g.tree, g.states)
	if len(g.services) > 0 && !g.states.Has(stepstate.StaticServiceGroupName) {
		stepstate.CollectDependencies(g.services, g.states)
		stepstate.MarkDependenciesSaved(g.originalServices, g.states)
	}
	for _, s := range g.services {
		if s != nil && !g.states.Has(s.Identifier) {
			g.states.Set(s.Identifier, stepstate.State{StepType: stepstate.TypeService})
		}
	}
	stepstate.Prune(g.tree, g.services, g.states)

	if g.callbacks.OnChange != nil {
		g.callbacks.OnChange(*g.tree)
	}
	g.render()
}

func (g *ExecutionGraph) render() {
	if err := g.Render(); err != nil {
		g.logger.Error("Render failed.", "error", err)
	}
}

// parentGroup returns the step group whose layer holds the graph node.
func (g *ExecutionGraph) parentGroup(graphID string) string {
	n, ok := g.model.Node(graphID)
	if !ok || n.Layer == nodeid.ServiceGroupID {
		return ""
	}
	return n.Layer
}

// layerRollback reports whether layer shows rollback steps.
func (g *ExecutionGraph) layerRollback(layer string) bool {
	if layer == diagram.RootLayer {
		return g.rollbackView
	}
	return g.states.Rollback(layer)
}

func (g *ExecutionGraph) edgeGroup(from, to string) string {
	e, ok := g.model.Edge(from, to)
	if !ok {
		return ""
	}
	return e.Layer
}
