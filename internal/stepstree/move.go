package stepstree

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/stagegraph/internal/nodeid"
	"github.com/vk/stagegraph/internal/pipeline"
)

var (
	// ErrNotFound is returned when the dragged node or the drop anchor does
	// not resolve to anything in the tree.
	ErrNotFound = errors.New("node not found")
	// ErrStructuralConflict is returned when a drop would break the tree's
	// shape: a step group dropped inside another group's layer, a node dropped
	// into its own subtree, or a service dropped among steps.
	ErrStructuralConflict = errors.New("structural conflict")
)

// Move detaches the node draggedID and re-inserts it at anchor. A NodeAnchor
// drop joins the anchor node in a parallel. Every check runs before the tree
// is touched: on error the tree is unchanged.
func Move(tree *pipeline.Tree, services []*pipeline.Service, draggedID string, anchor Anchor, isRollback bool) error {
	loc := Locate(tree, draggedID, Options{})
	if !loc.Found() {
		for _, s := range services {
			if s != nil && s.Identifier == draggedID {
				return fmt.Errorf("service %q cannot join the step tree: %w", draggedID, ErrStructuralConflict)
			}
		}
		return fmt.Errorf("dragged node %q: %w", draggedID, ErrNotFound)
	}
	dragged := loc.Node

	_, isNodeDrop := anchor.(NodeAnchor)
	p, ok := resolve(anchor, tree, isNodeDrop, isRollback)
	if !ok {
		return fmt.Errorf("drop target for %q: %w", draggedID, ErrNotFound)
	}

	if p.ref == dragged {
		// Dropped onto its own edge or onto itself.
		return nil
	}
	if ownsList(dragged, p.list) {
		return fmt.Errorf("%q dropped into its own subtree: %w", draggedID, ErrStructuralConflict)
	}
	if dragged.Kind == pipeline.KindStepGroup && listGroupDepth(tree, p.list) > 0 {
		return fmt.Errorf("step group %q dropped inside a step group: %w", draggedID, ErrStructuralConflict)
	}

	// Keep the dragged node's parallel alive while the drop still points into
	// it; Normalize restores the branch invariant afterwards.
	skipFlatten := loc.ParallelParent != nil && (p.ref == loc.ParallelParent || p.list == loc.Parent)

	idx := loc.Index()
	*loc.Parent = slices.Delete(*loc.Parent, idx, idx+1)
	if !skipFlatten && loc.ParallelParent != nil && loc.ParallelParentParent != nil {
		flattenAt(loc.ParallelParentParent, loc.ParallelParentIndex, loc.ParallelParent)
	}

	if !p.apply(dragged) {
		// Unreachable once the checks above pass; put the node back rather
		// than lose it.
		*tree.List(isRollback) = append(*tree.List(isRollback), dragged)
		Normalize(tree)
		return fmt.Errorf("re-inserting %q: %w", draggedID, ErrNotFound)
	}
	Normalize(tree)
	return nil
}

// Normalize flattens every parallel with one branch, drops every empty
// parallel and splices a parallel nested directly in another parallel into its
// parent, at any depth. It returns the number of wrappers it rewrote and is
// idempotent.
func Normalize(tree *pipeline.Tree) int {
	if tree == nil {
		return 0
	}
	return normalizeList(&tree.Steps) + normalizeList(&tree.RollbackSteps)
}

func normalizeList(list *[]*pipeline.StepNode) int {
	changed := 0
	for i := 0; i < len(*list); i++ {
		n := (*list)[i]
		if n == nil {
			continue
		}
		switch n.Kind {
		case pipeline.KindParallel:
			changed += normalizeList(&n.Parallel)
			for j := 0; j < len(n.Parallel); j++ {
				b := n.Parallel[j]
				if b == nil || b.Kind != pipeline.KindParallel {
					continue
				}
				n.Parallel = slices.Replace(n.Parallel, j, j+1, b.Parallel...)
				j += len(b.Parallel) - 1
				changed++
			}
			switch len(n.Parallel) {
			case 0:
				*list = slices.Delete(*list, i, i+1)
				i--
				changed++
			case 1:
				(*list)[i] = n.Parallel[0]
				i--
				changed++
			}
		case pipeline.KindStepGroup:
			if n.StepGroup != nil {
				changed += normalizeList(&n.StepGroup.Steps)
				changed += normalizeList(&n.StepGroup.RollbackSteps)
			}
		}
	}
	return changed
}

// listGroupDepth returns how many step groups enclose list, or -1 when list
// does not belong to the tree.
func listGroupDepth(tree *pipeline.Tree, list *[]*pipeline.StepNode) int {
	if d := findList(&tree.Steps, list, 0); d >= 0 {
		return d
	}
	return findList(&tree.RollbackSteps, list, 0)
}

func findList(in, target *[]*pipeline.StepNode, depth int) int {
	if in == target {
		return depth
	}
	for _, n := range *in {
		if n == nil {
			continue
		}
		switch n.Kind {
		case pipeline.KindParallel:
			if d := findList(&n.Parallel, target, depth); d >= 0 {
				return d
			}
		case pipeline.KindStepGroup:
			if n.StepGroup == nil {
				continue
			}
			if d := findList(&n.StepGroup.Steps, target, depth+1); d >= 0 {
				return d
			}
			if d := findList(&n.StepGroup.RollbackSteps, target, depth+1); d >= 0 {
				return d
			}
		}
	}
	return -1
}

// ownsList reports whether list lives somewhere below n.
func ownsList(n *pipeline.StepNode, list *[]*pipeline.StepNode) bool {
	switch n.Kind {
	case pipeline.KindParallel:
		return findList(&n.Parallel, list, 0) >= 0
	case pipeline.KindStepGroup:
		if n.StepGroup == nil {
			return false
		}
		return findList(&n.StepGroup.Steps, list, 0) >= 0 || findList(&n.StepGroup.RollbackSteps, list, 0) >= 0
	}
	return false
}

// RealIdentifier strips synthetic wrapping from a graph node identifier and
// returns the tree identifier it stands for. Fan-out and fan-in nodes map to
// the first branch of their parallel; sentinels map to "".
func RealIdentifier(raw string) string {
	return nodeid.Ref(raw)
}
