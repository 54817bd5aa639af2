package canvas

import (
	"time"

	"github.com/vk/stagegraph/internal/diagram"
)

// Camera is the host-owned view state of a diagram.
type Camera interface {
	SetOffset(offset diagram.Point)
	SetZoom(zoom float64)
}

// debouncedCamera forwards pans and zooms to a Camera once they settle. Pans
// and zooms are debounced separately so one never swallows the other.
type debouncedCamera struct {
	camera Camera
	pan    *Debouncer
	zoomer *Debouncer
}

func newDebouncedCamera(c Camera, delay time.Duration) *debouncedCamera {
	if c == nil {
		return nil
	}
	return &debouncedCamera{camera: c, pan: NewDebouncer(delay), zoomer: NewDebouncer(delay)}
}

func (c *debouncedCamera) offset(p diagram.Point) {
	if c == nil {
		return
	}
	c.pan.Trigger(func() { c.camera.SetOffset(p) })
}

func (c *debouncedCamera) zoom(z float64) {
	if c == nil {
		return
	}
	c.zoomer.Trigger(func() { c.camera.SetZoom(z) })
}

// focus moves the camera right away so n sits at the centre.
func (c *debouncedCamera) focus(n *diagram.Node) {
	if c == nil || n == nil {
		return
	}
	c.pan.Cancel()
	c.camera.SetOffset(diagram.Point{
		X: n.Position.X + n.Width/2,
		Y: n.Position.Y + n.Height/2,
	})
}

// flush delivers pending pans and zooms now.
func (c *debouncedCamera) flush() {
	if c == nil {
		return
	}
	c.pan.Flush()
	c.zoomer.Flush()
}
