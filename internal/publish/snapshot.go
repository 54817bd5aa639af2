package publish

import (
	"github.com/vk/stagegraph/internal/diagram"
)

// NodeView is the wire form of a diagram node.
type NodeView struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Shape     string  `json:"shape"`
	Name      string  `json:"name,omitempty"`
	Layer     string  `json:"layer"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Status    string  `json:"status,omitempty"`
	Badge     string  `json:"badge,omitempty"`
	Selected  bool    `json:"selected,omitempty"`
	Unsaved   bool    `json:"unsaved,omitempty"`
	Collapsed bool    `json:"collapsed,omitempty"`
	Rollback  bool    `json:"rollback,omitempty"`
}

// EdgeView is the wire form of a diagram edge.
type EdgeView struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Layer    string `json:"layer"`
	Color    string `json:"color,omitempty"`
	Dimmed   bool   `json:"dimmed,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`
	AllowAdd bool   `json:"allowAdd,omitempty"`
}

// LayerView is the wire form of a diagram layer.
type LayerView struct {
	ID     string  `json:"id"`
	Parent string  `json:"parent"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Snapshot is the full state of a model at one point in time. Hidden nodes
// are left out.
type Snapshot struct {
	ModelID  string      `json:"modelId"`
	Sequence uint64      `json:"sequence"`
	Layers   []LayerView `json:"layers"`
	Nodes    []NodeView  `json:"nodes"`
	Edges    []EdgeView  `json:"edges"`
}

// NewSnapshot captures m.
func NewSnapshot(m *diagram.Model) Snapshot {
	s := Snapshot{ModelID: m.ID().String()}
	for _, l := range m.Layers() {
		s.Layers = append(s.Layers, LayerView{
			ID:     l.ID,
			Parent: l.Parent,
			X:      l.Origin.X,
			Y:      l.Origin.Y,
			Width:  l.Width,
			Height: l.Height,
		})
	}
	for _, n := range m.Nodes() {
		if n.Hidden {
			continue
		}
		v := NodeView{
			ID:        n.ID,
			Kind:      n.Kind.String(),
			Shape:     n.Kind.Shape().String(),
			Name:      n.Name,
			Layer:     n.Layer,
			X:         n.Position.X,
			Y:         n.Position.Y,
			Width:     n.Width,
			Height:    n.Height,
			Badge:     n.Badge,
			Selected:  n.Selected,
			Unsaved:   n.Unsaved,
			Collapsed: n.Collapsed,
			Rollback:  n.Rollback,
		}
		if n.Status != 0 {
			v.Status = n.Status.String()
		}
		s.Nodes = append(s.Nodes, v)
	}
	for _, e := range m.Edges() {
		s.Edges = append(s.Edges, EdgeView{
			From:     e.From,
			To:       e.To,
			Layer:    e.Layer,
			Color:    e.Color,
			Dimmed:   e.Dimmed,
			Hidden:   e.Hidden,
			AllowAdd: e.AllowAdd,
		})
	}
	return s
}
