package pipeline

import "encoding/json"

// VisitFunc is called for every node reached by Walk. groupDepth is the number
// of step groups enclosing the node. Returning false skips the node's children.
type VisitFunc func(n *StepNode, groupDepth int) bool

// Walk visits nodes depth-first in list order. Group children are visited
// forward list first, then rollback list.
func Walk(nodes []*StepNode, fn VisitFunc) {
	walk(nodes, 0, fn)
}

func walk(nodes []*StepNode, groupDepth int, fn VisitFunc) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if !fn(n, groupDepth) {
			continue
		}
		switch n.Kind {
		case KindParallel:
			walk(n.Parallel, groupDepth, fn)
		case KindStepGroup:
			if n.StepGroup != nil {
				walk(n.StepGroup.Steps, groupDepth+1, fn)
				walk(n.StepGroup.RollbackSteps, groupDepth+1, fn)
			}
		}
	}
}

// WalkTree walks the forward steps, then the rollback steps.
func WalkTree(t *Tree, fn VisitFunc) {
	if t == nil {
		return
	}
	Walk(t.Steps, fn)
	Walk(t.RollbackSteps, fn)
}

// Identifiers returns every step and step-group identifier in the tree in walk
// order. Parallel nodes contribute nothing themselves.
func Identifiers(t *Tree) []string {
	var ids []string
	WalkTree(t, func(n *StepNode, _ int) bool {
		if id := n.Identifier(); id != "" {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	return &Tree{
		Steps:         cloneList(t.Steps),
		RollbackSteps: cloneList(t.RollbackSteps),
	}
}

// Clone returns a deep copy of the node.
func (n *StepNode) Clone() *StepNode {
	if n == nil {
		return nil
	}
	out := &StepNode{Kind: n.Kind}
	if n.Step != nil {
		s := *n.Step
		if n.Step.Spec != nil {
			s.Spec = append(json.RawMessage(nil), n.Step.Spec...)
		}
		out.Step = &s
	}
	if n.Parallel != nil {
		out.Parallel = cloneList(n.Parallel)
	}
	if n.StepGroup != nil {
		out.StepGroup = &StepGroup{
			Identifier:    n.StepGroup.Identifier,
			Name:          n.StepGroup.Name,
			Steps:         cloneList(n.StepGroup.Steps),
			RollbackSteps: cloneList(n.StepGroup.RollbackSteps),
		}
	}
	return out
}

func cloneList(nodes []*StepNode) []*StepNode {
	if nodes == nil {
		return nil
	}
	out := make([]*StepNode, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// CloneServices returns a copy of the service list. Nil entries are dropped.
func CloneServices(services []*Service) []*Service {
	if services == nil {
		return nil
	}
	out := make([]*Service, 0, len(services))
	for _, s := range services {
		if s == nil {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	return out
}
