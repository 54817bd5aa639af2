package diagram

import (
	"github.com/vk/stagegraph/internal/execution"
)

// NodeKind is the visual role of a node.
type NodeKind int

const (
	KindStart NodeKind = iota + 1
	KindStop
	KindCreateNew
	KindStep
	KindApproval
	// KindGrouped stands for a parallel too tall to fan out.
	KindGrouped
	KindCollapsedGroup
	// KindEmpty is a parallel fan-out or fan-in point.
	KindEmpty
	KindGroupStart
	KindGroupEnd
	KindService
	KindServiceGroup
)

var kindNames = map[NodeKind]string{
	KindStart:          "start",
	KindStop:           "stop",
	KindCreateNew:      "create-new",
	KindStep:           "step",
	KindApproval:       "approval",
	KindGrouped:        "grouped",
	KindCollapsedGroup: "collapsed-group",
	KindEmpty:          "empty",
	KindGroupStart:     "group-start",
	KindGroupEnd:       "group-end",
	KindService:        "service",
	KindServiceGroup:   "service-group",
}

func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Shape is how a node is drawn.
type Shape int

const (
	ShapeRectangle Shape = iota
	ShapeDiamond
	ShapeCircle
	ShapeDot
)

func (s Shape) String() string {
	switch s {
	case ShapeDiamond:
		return "diamond"
	case ShapeCircle:
		return "circle"
	case ShapeDot:
		return "dot"
	}
	return "rectangle"
}

// Shape returns the default shape of the kind.
func (k NodeKind) Shape() Shape {
	switch k {
	case KindApproval:
		return ShapeDiamond
	case KindStart, KindStop, KindCreateNew:
		return ShapeCircle
	case KindEmpty, KindGroupStart, KindGroupEnd:
		return ShapeDot
	}
	return ShapeRectangle
}

// Point is a position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one drawn entity.
type Node struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`
	Name string   `json:"name,omitempty"`
	// Ref is the tree identifier the node stands for, if any.
	Ref      string  `json:"ref,omitempty"`
	Layer    string  `json:"layer"`
	Position Point   `json:"position"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`

	Status    execution.Status `json:"status"`
	Selected  bool             `json:"selected,omitempty"`
	Unsaved   bool             `json:"unsaved,omitempty"`
	Collapsed bool             `json:"collapsed,omitempty"`
	Rollback  bool             `json:"rollback,omitempty"`
	// Badge is the overflow label of grouped and collapsed nodes, e.g. "+3".
	Badge string `json:"badge,omitempty"`
	// Hidden nodes keep their place but are not drawn.
	Hidden bool `json:"hidden,omitempty"`
}

// Shape is a shortcut for n.Kind.Shape().
func (n *Node) Shape() Shape { return n.Kind.Shape() }

// Edge is a directed link between two nodes of the same layer.
type Edge struct {
	From   string           `json:"from"`
	To     string           `json:"to"`
	Layer  string           `json:"layer"`
	Color  string           `json:"color"`
	Status execution.Status `json:"status"`
	// Dimmed edges lead into or out of a parallel fan point.
	Dimmed bool `json:"dimmed,omitempty"`
	Hidden bool `json:"hidden,omitempty"`
	// AllowAdd marks edges that accept a drop or an insert.
	AllowAdd bool `json:"allowAdd,omitempty"`
}

// ID returns a stable identifier for the edge.
func (e *Edge) ID() string { return e.From + "->" + e.To }

// RootLayer is the identifier of the top-level layer.
const RootLayer = ""

// Layer is a sub-canvas. Every expanded step group opens one; the service
// container opens one too.
type Layer struct {
	ID     string `json:"id"`
	Parent string `json:"parent"`
	// Origin is the top-left corner of the layer on the canvas.
	Origin Point   `json:"origin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Nodes  []string `json:"nodes"`
}
