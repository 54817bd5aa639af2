package execution

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownNode is returned when a node carries none, or more than one, of
// the item/parallel/group keys.
var ErrUnknownNode = errors.New("execution node must hold exactly one of item, parallel or group")

// NodeKind is the discriminant of a Node.
type NodeKind int

const (
	KindItem NodeKind = iota + 1
	KindParallel
	KindGroup
)

// ApprovalType is the item type drawn as a diamond.
const ApprovalType = "Approval"

// Item is one executed step.
type Item struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Status     Status `json:"status"`
}

// Group is a step group of an execution. IsOpen is owned by the viewer.
type Group struct {
	Identifier string  `json:"identifier"`
	Name       string  `json:"name"`
	Status     Status  `json:"status"`
	IsOpen     bool    `json:"isOpen"`
	Items      []*Node `json:"items"`
}

// Node is a tagged union of Item, a parallel list of Nodes, or Group.
type Node struct {
	Kind     NodeKind
	Item     *Item
	Parallel []*Node
	Group    *Group
}

// NewItem wraps an item.
func NewItem(it *Item) *Node { return &Node{Kind: KindItem, Item: it} }

// NewParallel wraps branches.
func NewParallel(branches ...*Node) *Node { return &Node{Kind: KindParallel, Parallel: branches} }

// NewGroup wraps a group.
func NewGroup(g *Group) *Node { return &Node{Kind: KindGroup, Group: g} }

// Identifier returns the identifier of an item or group; parallels have none.
func (n *Node) Identifier() string {
	switch {
	case n == nil:
		return ""
	case n.Kind == KindItem && n.Item != nil:
		return n.Item.Identifier
	case n.Kind == KindGroup && n.Group != nil:
		return n.Group.Identifier
	}
	return ""
}

// Name returns the display name of an item or group.
func (n *Node) Name() string {
	switch {
	case n == nil:
		return ""
	case n.Kind == KindItem && n.Item != nil:
		return n.Item.Name
	case n.Kind == KindGroup && n.Group != nil:
		return n.Group.Name
	}
	return ""
}

// Status returns the status of an item or group. A parallel reports the most
// advanced status among its branches: running over failed over success.
func (n *Node) Status() Status {
	if n == nil {
		return StatusNotStarted
	}
	switch n.Kind {
	case KindItem:
		if n.Item != nil {
			return n.Item.Status
		}
	case KindGroup:
		if n.Group != nil {
			return n.Group.Status
		}
	case KindParallel:
		return mergeStatus(n.Parallel)
	}
	return StatusNotStarted
}

func mergeStatus(branches []*Node) Status {
	out := StatusNotStarted
	allDone := len(branches) > 0
	for _, b := range branches {
		s := b.Status()
		switch {
		case s.IsRunning():
			return StatusRunning
		case s == StatusFailed || s == StatusAborted:
			out = StatusFailed
		}
		if !s.IsDone() {
			allDone = false
		}
	}
	if out == StatusFailed {
		return out
	}
	if allDone {
		return StatusSuccess
	}
	return out
}

// Pipeline is one execution. Identifier changes when a different execution is
// shown, which re-arms auto-focus.
type Pipeline struct {
	Identifier string  `json:"identifier"`
	Items      []*Node `json:"items"`
}

// MarshalJSON encodes the node as its single-key envelope.
func (n Node) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindItem:
		return json.Marshal(struct {
			Item *Item `json:"item"`
		}{n.Item})
	case KindParallel:
		return json.Marshal(struct {
			Parallel []*Node `json:"parallel"`
		}{n.Parallel})
	case KindGroup:
		return json.Marshal(struct {
			Group *Group `json:"group"`
		}{n.Group})
	}
	return nil, ErrUnknownNode
}

// UnmarshalJSON decodes a single-key envelope.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("execution node: %w", err)
	}
	if len(raw) != 1 {
		return ErrUnknownNode
	}

	switch {
	case raw["item"] != nil:
		*n = Node{Kind: KindItem, Item: &Item{}}
		return json.Unmarshal(raw["item"], n.Item)
	case raw["parallel"] != nil:
		*n = Node{Kind: KindParallel}
		return json.Unmarshal(raw["parallel"], &n.Parallel)
	case raw["group"] != nil:
		*n = Node{Kind: KindGroup, Group: &Group{}}
		return json.Unmarshal(raw["group"], n.Group)
	}
	return ErrUnknownNode
}

// Walk visits every node depth-first, group items included.
func Walk(nodes []*Node, fn func(n *Node) bool) {
	for _, n := range nodes {
		if n == nil || !fn(n) {
			continue
		}
		switch n.Kind {
		case KindParallel:
			Walk(n.Parallel, fn)
		case KindGroup:
			if n.Group != nil {
				Walk(n.Group.Items, fn)
			}
		}
	}
}

// FirstRunning returns the first running item in walk order, or nil.
func (p *Pipeline) FirstRunning() *Item {
	if p == nil {
		return nil
	}
	var found *Item
	Walk(p.Items, func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Kind == KindItem && n.Item != nil && n.Item.Status.IsRunning() {
			found = n.Item
		}
		return true
	})
	return found
}
