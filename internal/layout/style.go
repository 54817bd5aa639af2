package layout

import "math"

// Style holds the pixel metrics of a layout. Y coordinates in the walk are the
// centre line of the row being drawn; node positions are top-left corners.
type Style struct {
	GridSize          float64 `hcl:"grid_size,optional" yaml:"gridSize,omitempty" json:"gridSize,omitempty"`
	StartX            float64 `hcl:"start_x,optional" yaml:"startX,omitempty" json:"startX,omitempty"`
	StartY            float64 `hcl:"start_y,optional" yaml:"startY,omitempty" json:"startY,omitempty"`
	Gap               float64 `hcl:"gap,optional" yaml:"gap,omitempty" json:"gap,omitempty"`
	NodeWidth         float64 `hcl:"node_width,optional" yaml:"nodeWidth,omitempty" json:"nodeWidth,omitempty"`
	NodeHeight        float64 `hcl:"node_height,optional" yaml:"nodeHeight,omitempty" json:"nodeHeight,omitempty"`
	SmallNodeSize     float64 `hcl:"small_node_size,optional" yaml:"smallNodeSize,omitempty" json:"smallNodeSize,omitempty"`
	GroupHeaderHeight float64 `hcl:"group_header_height,optional" yaml:"groupHeaderHeight,omitempty" json:"groupHeaderHeight,omitempty"`
	// AvailableHeight is the canvas height a fanned-out parallel may use in
	// the status diagram. Zero means unlimited.
	AvailableHeight float64 `hcl:"available_height,optional" yaml:"availableHeight,omitempty" json:"availableHeight,omitempty"`
}

// DefaultStyle returns the metrics used when nothing is configured.
func DefaultStyle() Style {
	return Style{
		GridSize:          8,
		StartX:            40,
		StartY:            200,
		Gap:               48,
		NodeWidth:         128,
		NodeHeight:        64,
		SmallNodeSize:     16,
		GroupHeaderHeight: 40,
	}
}

// WithDefaults fills every zero metric from DefaultStyle.
func (s Style) WithDefaults() Style {
	return s.Fill(DefaultStyle())
}

// Negative reports whether any metric is below zero.
func (s Style) Negative() bool {
	for _, v := range []float64{
		s.GridSize, s.StartX, s.StartY, s.Gap, s.NodeWidth, s.NodeHeight,
		s.SmallNodeSize, s.GroupHeaderHeight, s.AvailableHeight,
	} {
		if v < 0 {
			return true
		}
	}
	return false
}

// Fill returns s with every zero metric taken from d.
func (s Style) Fill(d Style) Style {
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&s.GridSize, d.GridSize)
	fill(&s.StartX, d.StartX)
	fill(&s.StartY, d.StartY)
	fill(&s.Gap, d.Gap)
	fill(&s.NodeWidth, d.NodeWidth)
	fill(&s.NodeHeight, d.NodeHeight)
	fill(&s.SmallNodeSize, d.SmallNodeSize)
	fill(&s.GroupHeaderHeight, d.GroupHeaderHeight)
	fill(&s.AvailableHeight, d.AvailableHeight)
	return s
}

// RowHeight is the vertical distance between two parallel branches.
func (s Style) RowHeight() float64 {
	return s.NodeHeight + s.Gap/2
}

// SentinelSize is the diameter of start, stop and create-new nodes.
func (s Style) SentinelSize() float64 {
	return s.SmallNodeSize * 2
}

func (s Style) snap(v float64) float64 {
	if s.GridSize <= 0 {
		return v
	}
	return math.Round(v/s.GridSize) * s.GridSize
}
