package canvas

import (
	"context"
	"log/slog"
	"time"

	"github.com/vk/stagegraph/internal/ctxlog"
	"github.com/vk/stagegraph/internal/diagram"
	"github.com/vk/stagegraph/internal/execution"
	"github.com/vk/stagegraph/internal/layout"
	"github.com/vk/stagegraph/internal/nodeid"
)

// StageOptions configures a StageDiagram.
type StageOptions struct {
	Style         layout.Style
	Camera        Camera
	DebounceDelay time.Duration
	HideStart     bool
	HideStop      bool
	// OnSelect receives the identifier of the item the user clicked.
	OnSelect func(id string)
}

// StageDiagram shows a running or finished execution. It is read only apart
// from selection and opening step groups.
type StageDiagram struct {
	logger   *slog.Logger
	model    *diagram.Model
	layout   *layout.StageModel
	camera   *debouncedCamera
	opts     StageOptions
	pipeline *execution.Pipeline
	selected string
}

// NewStageDiagram returns a diagram rendering into model.
func NewStageDiagram(ctx context.Context, model *diagram.Model, opts StageOptions) *StageDiagram {
	return &StageDiagram{
		logger: ctxlog.FromContext(ctx).With("component", "stage_diagram", "model", model.ID()),
		model:  model,
		layout: layout.NewStageModel(opts.Style),
		camera: newDebouncedCamera(opts.Camera, opts.DebounceDelay),
		opts:   opts,
	}
}

// Selected returns the selected item identifier, or "".
func (d *StageDiagram) Selected() string { return d.selected }

// Render shows p, keeping nodes that survive from the previous render, and
// focuses the camera on the first running item the first time it is seen.
func (d *StageDiagram) Render(p *execution.Pipeline) error {
	d.pipeline = p
	listeners := diagram.Listeners{
		OnNodeClick:    d.HandleNodeClick,
		OnCollapse:     d.HandleCollapse,
		OnOffsetChange: d.HandleOffsetChange,
		OnZoomChange:   d.HandleZoomChange,
	}
	res, err := d.layout.Render(d.model, p, layout.StageOptions{
		HideStart: d.opts.HideStart,
		HideStop:  d.opts.HideStop,
		Selected:  d.selected,
		Listeners: &listeners,
	})
	if err != nil {
		return err
	}
	if res.Focus != nil {
		d.logger.Debug("Focusing running node.", "id", res.Focus.ID)
		d.camera.focus(res.Focus)
	}
	return nil
}

// HandleNodeClick selects the clicked item.
func (d *StageDiagram) HandleNodeClick(e diagram.Event) {
	id, _ := nodeid.Parse(e.NodeID)
	if id.Role != nodeid.RoleNone || id.Ref == "" {
		return
	}
	d.selected = id.Ref
	if d.opts.OnSelect != nil {
		d.opts.OnSelect(id.Ref)
	}
	d.rerender()
}

// HandleCollapse opens or closes a step group of the execution.
func (d *StageDiagram) HandleCollapse(e diagram.Event) {
	if d.pipeline == nil {
		return
	}
	ref := nodeid.Ref(e.NodeID)
	var group *execution.Group
	execution.Walk(d.pipeline.Items, func(n *execution.Node) bool {
		if group == nil && n.Kind == execution.KindGroup && n.Group != nil && n.Group.Identifier == ref {
			group = n.Group
		}
		return group == nil
	})
	if group == nil {
		return
	}
	group.IsOpen = !group.IsOpen
	d.rerender()
}

// HandleOffsetChange records a manual pan. It stops auto-focus for the
// current execution.
func (d *StageDiagram) HandleOffsetChange(e diagram.Event) {
	d.manual()
	d.camera.offset(e.Offset)
}

// HandleZoomChange records a manual zoom.
func (d *StageDiagram) HandleZoomChange(e diagram.Event) {
	d.manual()
	d.camera.zoom(e.Zoom)
}

// FlushCamera delivers pending camera updates now.
func (d *StageDiagram) FlushCamera() { d.camera.flush() }

func (d *StageDiagram) manual() {
	if d.pipeline != nil {
		d.layout.DisableAutoFocus(d.pipeline.Identifier)
	}
}

func (d *StageDiagram) rerender() {
	if err := d.Render(d.pipeline); err != nil {
		d.logger.Error("Render failed.", "error", err)
	}
}
