package stepstree

import (
	"github.com/vk/stagegraph/internal/pipeline"
)

// Options tunes Locate.
type Options struct {
	// FindInParallel makes a match on a direct parallel branch return the
	// parallel wrapper itself, so the caller can append a sibling branch.
	// Without it the search descends into the branch and returns the exact
	// node.
	FindInParallel bool
}

// Location is the result of Locate. A zero Location means nothing matched.
type Location struct {
	// Node is the matched node. When Options.FindInParallel caught a branch
	// match, Node is the enclosing parallel wrapper.
	Node *pipeline.StepNode
	// Parent is the list that directly holds Node.
	Parent *[]*pipeline.StepNode

	// ParallelParent is set when Node is a direct branch of a parallel: it is
	// that parallel wrapper. ParallelParentParent is the list holding the
	// wrapper and ParallelParentIndex the wrapper's index in it.
	ParallelParent       *pipeline.StepNode
	ParallelParentIndex  int
	ParallelParentParent *[]*pipeline.StepNode
}

// Found reports whether the lookup matched a node.
func (l Location) Found() bool {
	return l.Node != nil && l.Parent != nil
}

// Index returns the position of Node in Parent, or -1.
func (l Location) Index() int {
	if !l.Found() {
		return -1
	}
	return indexOf(*l.Parent, l.Node)
}

// Step returns the matched step payload, or nil.
func (l Location) Step() *pipeline.Step {
	if l.Node == nil || l.Node.Kind != pipeline.KindStep {
		return nil
	}
	return l.Node.Step
}

// Group returns the matched step-group payload, or nil.
func (l Location) Group() *pipeline.StepGroup {
	if l.Node == nil || l.Node.Kind != pipeline.KindStepGroup {
		return nil
	}
	return l.Node.StepGroup
}

// Locate finds the node with the given identifier. Forward steps are searched
// before rollback steps and the first match wins. A missing identifier yields
// a zero Location; Locate never panics on partial trees.
func Locate(tree *pipeline.Tree, id string, opts Options) Location {
	if tree == nil || id == "" {
		return Location{}
	}
	if loc := locateIn(&tree.Steps, id, opts, nil); loc.Found() {
		return loc
	}
	return locateIn(&tree.RollbackSteps, id, opts, nil)
}

// parallelCtx carries the enclosing parallel while searching its branches.
type parallelCtx struct {
	wrapper *pipeline.StepNode
	index   int
	owner   *[]*pipeline.StepNode
}

func locateIn(list *[]*pipeline.StepNode, id string, opts Options, par *parallelCtx) Location {
	for i, n := range *list {
		if n == nil {
			continue
		}
		switch n.Kind {
		case pipeline.KindStep:
			if n.Step != nil && n.Step.Identifier == id {
				return matched(n, list, par)
			}

		case pipeline.KindParallel:
			if opts.FindInParallel {
				for _, branch := range n.Parallel {
					if branch.Identifier() == id {
						return Location{Node: n, Parent: list}
					}
				}
			}
			inner := &parallelCtx{wrapper: n, index: i, owner: list}
			if loc := locateIn(&n.Parallel, id, opts, inner); loc.Found() {
				return loc
			}

		case pipeline.KindStepGroup:
			g := n.StepGroup
			if g == nil {
				continue
			}
			if g.Identifier == id {
				return matched(n, list, par)
			}
			if loc := locateIn(&g.Steps, id, opts, nil); loc.Found() {
				return loc
			}
			if loc := locateIn(&g.RollbackSteps, id, opts, nil); loc.Found() {
				return loc
			}
		}
	}
	return Location{}
}

func matched(n *pipeline.StepNode, list *[]*pipeline.StepNode, par *parallelCtx) Location {
	loc := Location{Node: n, Parent: list}
	if par != nil {
		loc.ParallelParent = par.wrapper
		loc.ParallelParentIndex = par.index
		loc.ParallelParentParent = par.owner
	}
	return loc
}

func indexOf(list []*pipeline.StepNode, n *pipeline.StepNode) int {
	for i, c := range list {
		if c == n {
			return i
		}
	}
	return -1
}

// LocateGroup returns the step group with the given identifier, or nil.
func LocateGroup(tree *pipeline.Tree, id string) *pipeline.StepGroup {
	return Locate(tree, id, Options{}).Group()
}

// IsInsideGroup reports whether id sits anywhere below a step group.
func IsInsideGroup(tree *pipeline.Tree, id string) bool {
	inside := false
	pipeline.WalkTree(tree, func(n *pipeline.StepNode, depth int) bool {
		if inside {
			return false
		}
		if n.Identifier() == id && depth > 0 {
			inside = true
		}
		return true
	})
	return inside
}
