package layout

import (
	"github.com/vk/stagegraph/internal/diagram"
	"github.com/vk/stagegraph/internal/execution"
	"github.com/vk/stagegraph/internal/nodeid"
)

// StageOptions tunes a StageModel render.
type StageOptions struct {
	HideStart bool
	HideStop  bool
	// Selected is the item the user picked. While it is empty the first
	// running item may be auto-focused.
	Selected  string
	Listeners *diagram.Listeners
}

// StageResult reports what a render wants from its host.
type StageResult struct {
	// Focus is the node the camera should move to, or nil.
	Focus *diagram.Node
}

// StageModel lays out an execution. It remembers which execution it already
// auto-focused so it does so once per execution.
type StageModel struct {
	Style Style

	focusSpent string
}

// NewStageModel returns a StageModel using style.
func NewStageModel(style Style) *StageModel {
	return &StageModel{Style: style}
}

// Render updates m to show p. Nodes whose identifier survives keep their
// *diagram.Node.
func (sm *StageModel) Render(m *diagram.Model, p *execution.Pipeline, opts StageOptions) (StageResult, error) {
	w := newWalker(sm.Style)
	w.readOnly = true
	w.collapseParallels = true
	w.selected = opts.Selected
	s := w.style

	var items []*execution.Node
	if p != nil {
		items = p.Items
	}
	started := execution.StatusNotStarted
	if len(items) > 0 && items[0].Status() != execution.StatusNotStarted {
		started = execution.StatusSuccess
	}

	x, y := s.StartX, s.StartY
	var frontier []string
	if !opts.HideStart {
		frontier, x = w.sentinel(nodeid.StartID, diagram.KindStart, frontier, x, y, started)
	}
	frontier, x = w.list(fromExecution(items), diagram.RootLayer, frontier, x, y)
	if !opts.HideStop {
		w.sentinel(nodeid.StopID, diagram.KindStop, frontier, x, y, execution.StatusNotStarted)
	}

	var res StageResult
	err := m.Rebuild(func(m *diagram.Model) error {
		if err := w.plan.update(m); err != nil {
			return err
		}
		if opts.Listeners != nil {
			m.RegisterListeners(*opts.Listeners)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	if opts.Selected == "" && p != nil && p.Identifier != sm.focusSpent {
		if it := p.FirstRunning(); it != nil {
			if n := focusTarget(m, it.Identifier); n != nil {
				res.Focus = n
				sm.focusSpent = p.Identifier
			}
		}
	}
	return res, nil
}

// DisableAutoFocus stops auto-focus for the execution identity until a
// different one is rendered. Hosts call it on a manual pan or zoom.
func (sm *StageModel) DisableAutoFocus(identity string) {
	sm.focusSpent = identity
}

// focusTarget finds the node showing id: its own node, or the grouped node
// or collapsed group hiding it.
func focusTarget(m *diagram.Model, id string) *diagram.Node {
	if n, ok := m.Node(id); ok {
		return n
	}
	for _, n := range m.Nodes() {
		if (n.Kind == diagram.KindGrouped || n.Kind == diagram.KindCollapsedGroup) && n.Status.IsRunning() {
			return n
		}
	}
	return nil
}
