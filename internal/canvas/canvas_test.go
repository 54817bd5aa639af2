package canvas_test

import (
	"sync"

	"github.com/vk/stagegraph/internal/diagram"
)

type fakeCamera struct {
	mu      sync.Mutex
	offsets []diagram.Point
	zooms   []float64
}

func (c *fakeCamera) SetOffset(p diagram.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offsets = append(c.offsets, p)
}

func (c *fakeCamera) SetZoom(z float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zooms = append(c.zooms, z)
}

func (c *fakeCamera) snapshot() ([]diagram.Point, []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]diagram.Point(nil), c.offsets...), append([]float64(nil), c.zooms...)
}
