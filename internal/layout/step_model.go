package layout

import (
	"github.com/vk/stagegraph/internal/diagram"
	"github.com/vk/stagegraph/internal/nodeid"
	"github.com/vk/stagegraph/internal/pipeline"
	"github.com/vk/stagegraph/internal/stepstate"
)

// StepOptions tunes a StepModel render.
type StepOptions struct {
	// ReadOnly drops create-new placeholders and marks every edge as not
	// accepting drops.
	ReadOnly  bool
	HideStart bool
	HideStop  bool
	// Rollback renders the tree's rollback list instead of its steps.
	Rollback bool
	Selected string
	// Listeners, when set, replace the model's listeners once the graph is
	// built.
	Listeners *diagram.Listeners
}

// StepModel lays out an editable step tree.
type StepModel struct {
	Style Style
}

// NewStepModel returns a StepModel using style.
func NewStepModel(style Style) *StepModel {
	return &StepModel{Style: style}
}

// Render rebuilds m from tree. Services, if any, are drawn in a container
// right after the start sentinel. states supplies collapse and rollback
// toggles and saved flags; it is read, never written.
func (sm *StepModel) Render(m *diagram.Model, tree *pipeline.Tree, services []*pipeline.Service, states *stepstate.Map, opts StepOptions) error {
	w := newWalker(sm.Style)
	w.readOnly = opts.ReadOnly
	w.selected = opts.Selected
	s := w.style

	x, y := s.StartX, s.StartY
	var frontier []string
	if !opts.HideStart {
		frontier, x = w.sentinel(nodeid.StartID, diagram.KindStart, frontier, x, y, 0)
	}
	if len(services) > 0 {
		frontier, x = w.services(services, states, frontier, x, y)
	}
	if tree != nil {
		frontier, x = w.list(fromSteps(*tree.List(opts.Rollback), states), diagram.RootLayer, frontier, x, y)
	}
	if !opts.ReadOnly {
		frontier, x = w.sentinel(nodeid.CreateNewID, diagram.KindCreateNew, frontier, x, y, 0)
	}
	if !opts.HideStop {
		w.sentinel(nodeid.StopID, diagram.KindStop, frontier, x, y, 0)
	}

	return m.Rebuild(func(m *diagram.Model) error {
		if err := w.plan.replace(m); err != nil {
			return err
		}
		if opts.Listeners != nil {
			m.RegisterListeners(*opts.Listeners)
		}
		return nil
	})
}

// services draws the service container in the root layer and its services
// stacked below it in a layer of their own.
func (w *walker) services(services []*pipeline.Service, states *stepstate.Map, frontier []string, x, y float64) ([]string, float64) {
	s := w.style
	sg := w.box(nodeid.ServiceGroupID, diagram.KindServiceGroup, diagram.RootLayer, x, y, s.NodeWidth, s.NodeHeight)
	sg.Name = "Services"
	sg.Unsaved = !saved(states, nodeid.ServiceGroupID)
	w.link(frontier, sg.ID, diagram.RootLayer)

	l := &diagram.Layer{ID: nodeid.ServiceGroupID, Parent: diagram.RootLayer}
	w.plan.layers = append(w.plan.layers, l)
	first := len(w.plan.nodes)
	cy := y + s.RowHeight()
	for _, svc := range services {
		if svc == nil {
			continue
		}
		n := w.box(svc.Identifier, diagram.KindService, l.ID, x, cy, s.NodeWidth, s.NodeHeight)
		n.Name = svc.Name
		n.Unsaved = !saved(states, svc.Identifier)
		n.Selected = w.selected != "" && w.selected == svc.Identifier
		cy += s.RowHeight()
	}
	w.bound(l, w.plan.nodes[first:])
	return []string{sg.ID}, x + s.NodeWidth + s.Gap
}
