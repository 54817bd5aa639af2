package diagram

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

var (
	// ErrRebuildInProgress is returned by a Rebuild started from inside
	// another Rebuild.
	ErrRebuildInProgress = errors.New("diagram rebuild already in progress")
	// ErrLocked is returned when the model is mutated outside Rebuild.
	ErrLocked = errors.New("diagram is locked")
	// ErrDuplicateNode is returned when a node identifier is added twice.
	ErrDuplicateNode = errors.New("duplicate node")
	// ErrUnknownLayer is returned when a node or edge targets a layer that
	// was never opened.
	ErrUnknownLayer = errors.New("unknown layer")
)

// Model is a rendered graph. It is not safe for concurrent use; the lock
// is a gate around rebuilds, not a mutex.
type Model struct {
	id         uuid.UUID
	locked     bool
	rebuilding bool

	layers    []*Layer
	nodes     map[string]*Node
	order     []string
	edges     []*Edge
	listeners Listeners
}

// NewModel returns an empty, locked model holding only the root layer.
func NewModel() *Model {
	m := &Model{id: uuid.New(), locked: true}
	m.reset()
	return m
}

func (m *Model) reset() {
	m.layers = []*Layer{{ID: RootLayer}}
	m.nodes = map[string]*Node{}
	m.order = nil
	m.edges = nil
}

// ID identifies the model instance.
func (m *Model) ID() uuid.UUID { return m.id }

// Lock makes the model read-only.
func (m *Model) Lock() { m.locked = true }

// Unlock allows mutation.
func (m *Model) Unlock() { m.locked = false }

// IsLocked reports whether the model is read-only.
func (m *Model) IsLocked() bool { return m.locked }

// Rebuild unlocks the model, runs fn and locks it again, even when fn fails.
func (m *Model) Rebuild(fn func(m *Model) error) error {
	if m.rebuilding {
		return ErrRebuildInProgress
	}
	m.rebuilding = true
	m.Unlock()
	defer func() {
		m.rebuilding = false
		m.Lock()
	}()
	return fn(m)
}

// Clear drops every node, edge and layer but the root layer.
func (m *Model) Clear() error {
	if m.locked {
		return ErrLocked
	}
	m.reset()
	return nil
}

// OpenLayer adds a layer nested in parent. Opening an existing layer returns
// it unchanged.
func (m *Model) OpenLayer(id, parent string) (*Layer, error) {
	if m.locked {
		return nil, ErrLocked
	}
	if l := m.Layer(id); l != nil {
		return l, nil
	}
	if m.Layer(parent) == nil {
		return nil, fmt.Errorf("parent %q: %w", parent, ErrUnknownLayer)
	}
	l := &Layer{ID: id, Parent: parent}
	m.layers = append(m.layers, l)
	return l, nil
}

// RemoveLayer deletes a layer once it holds no nodes. The root layer is
// never removed.
func (m *Model) RemoveLayer(id string) error {
	if m.locked {
		return ErrLocked
	}
	if id == RootLayer {
		return nil
	}
	l := m.Layer(id)
	if l == nil {
		return nil
	}
	if len(l.Nodes) > 0 {
		return fmt.Errorf("layer %q still holds %d nodes", id, len(l.Nodes))
	}
	m.layers = slices.DeleteFunc(m.layers, func(x *Layer) bool { return x == l })
	return nil
}

// Layer returns the layer with the given identifier, or nil.
func (m *Model) Layer(id string) *Layer {
	for _, l := range m.layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Layers returns the layers in the order they were opened. The root layer is
// always first.
func (m *Model) Layers() []*Layer {
	return slices.Clone(m.layers)
}

// AddNode appends n to its layer.
func (m *Model) AddNode(n *Node) error {
	if m.locked {
		return ErrLocked
	}
	if _, ok := m.nodes[n.ID]; ok {
		return fmt.Errorf("%q: %w", n.ID, ErrDuplicateNode)
	}
	l := m.Layer(n.Layer)
	if l == nil {
		return fmt.Errorf("node %q in layer %q: %w", n.ID, n.Layer, ErrUnknownLayer)
	}
	m.nodes[n.ID] = n
	m.order = append(m.order, n.ID)
	l.Nodes = append(l.Nodes, n.ID)
	return nil
}

// RemoveNode deletes a node and every edge touching it.
func (m *Model) RemoveNode(id string) error {
	if m.locked {
		return ErrLocked
	}
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	delete(m.nodes, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	if l := m.Layer(n.Layer); l != nil {
		l.Nodes = slices.DeleteFunc(l.Nodes, func(s string) bool { return s == id })
	}
	m.edges = slices.DeleteFunc(m.edges, func(e *Edge) bool { return e.From == id || e.To == id })
	return nil
}

// AddEdge links two nodes the model already holds.
func (m *Model) AddEdge(e *Edge) error {
	if m.locked {
		return ErrLocked
	}
	for _, id := range []string{e.From, e.To} {
		if _, ok := m.nodes[id]; !ok {
			return fmt.Errorf("edge %s: node %q not found", e.ID(), id)
		}
	}
	m.edges = append(m.edges, e)
	return nil
}

// ClearEdges drops every edge and keeps the nodes.
func (m *Model) ClearEdges() error {
	if m.locked {
		return ErrLocked
	}
	m.edges = nil
	return nil
}

// Node returns the node with the given identifier.
func (m *Model) Node(id string) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Nodes returns every node in insertion order.
func (m *Model) Nodes() []*Node {
	out := make([]*Node, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.nodes[id])
	}
	return out
}

// Edges returns every edge in insertion order.
func (m *Model) Edges() []*Edge {
	return slices.Clone(m.edges)
}

// Edge returns the edge between from and to.
func (m *Model) Edge(from, to string) (*Edge, bool) {
	for _, e := range m.edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return nil, false
}

// EdgesFrom returns the edges leaving id.
func (m *Model) EdgesFrom(id string) []*Edge {
	var out []*Edge
	for _, e := range m.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns the edges entering id.
func (m *Model) EdgesTo(id string) []*Edge {
	var out []*Edge
	for _, e := range m.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}
