package layout

import (
	"fmt"

	"github.com/vk/stagegraph/internal/diagram"
)

// replace clears m and adds everything in p. The caller holds the rebuild.
func (p *plan) replace(m *diagram.Model) error {
	if err := m.Clear(); err != nil {
		return err
	}
	if err := p.openLayers(m); err != nil {
		return err
	}
	for _, n := range p.nodes {
		if err := m.AddNode(n); err != nil {
			return err
		}
	}
	return p.addEdges(m)
}

// update brings m in line with p while keeping the *diagram.Node of every
// identifier m already holds in the same layer, so a renderer can animate
// it from its previous state.
func (p *plan) update(m *diagram.Model) error {
	if err := p.openLayers(m); err != nil {
		return err
	}
	for _, n := range p.nodes {
		cur, ok := m.Node(n.ID)
		if ok && cur.Layer == n.Layer {
			*cur = *n
			continue
		}
		if ok {
			if err := m.RemoveNode(n.ID); err != nil {
				return err
			}
		}
		if err := m.AddNode(n); err != nil {
			return err
		}
	}
	for _, cur := range m.Nodes() {
		if _, keep := p.byID[cur.ID]; !keep {
			if err := m.RemoveNode(cur.ID); err != nil {
				return err
			}
		}
	}

	live := make(map[string]bool, len(p.layers))
	for _, l := range p.layers {
		live[l.ID] = true
	}
	// Children were opened after their parents; drop them first.
	layers := m.Layers()
	for i := len(layers) - 1; i >= 0; i-- {
		if !live[layers[i].ID] {
			if err := m.RemoveLayer(layers[i].ID); err != nil {
				return err
			}
		}
	}

	if err := m.ClearEdges(); err != nil {
		return err
	}
	return p.addEdges(m)
}

func (p *plan) openLayers(m *diagram.Model) error {
	for _, l := range p.layers {
		if l.ID == diagram.RootLayer {
			continue
		}
		got, err := m.OpenLayer(l.ID, l.Parent)
		if err != nil {
			return fmt.Errorf("opening layer %q: %w", l.ID, err)
		}
		if got.Parent != l.Parent {
			// Re-parenting is only possible by reopening. The nodes follow in
			// update through their changed Layer field.
			got.Parent = l.Parent
		}
		got.Origin, got.Width, got.Height = l.Origin, l.Width, l.Height
	}
	return nil
}

func (p *plan) addEdges(m *diagram.Model) error {
	for _, e := range p.edges {
		if err := m.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}
