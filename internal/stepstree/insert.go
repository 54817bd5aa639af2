package stepstree

import (
	"slices"

	"github.com/vk/stagegraph/internal/nodeid"
	"github.com/vk/stagegraph/internal/pipeline"
)

// Anchor tells Insert where a new node goes. It is a closed set: LinkAnchor,
// CreateNewAnchor and NodeAnchor.
type Anchor interface {
	isAnchor()
}

// LinkAnchor is an edge between two graph nodes. Either end may be a
// synthetic node (fan-out, fan-in, group boundary or sentinel).
type LinkAnchor struct {
	Source string
	Target string
}

// CreateNewAnchor is a create-new placeholder. GroupIdentifier names the
// step group whose layer holds the placeholder, or "" for the root layer.
type CreateNewAnchor struct {
	GroupIdentifier string
}

// NodeAnchor is a plain graph node.
type NodeAnchor struct {
	Identifier string
}

func (LinkAnchor) isAnchor()      {}
func (CreateNewAnchor) isAnchor() {}
func (NodeAnchor) isAnchor()      {}

type planMode int

const (
	modeAfter planMode = iota
	modeBefore
	modeAppend
	modePushBranch
	modeWrapParallel
)

// plan is a resolved insertion point. It keeps the reference node rather than
// an index so it stays valid when an unrelated sibling is removed first.
type plan struct {
	mode planMode
	list *[]*pipeline.StepNode
	ref  *pipeline.StepNode
}

// Insert adds newNode at the position described by anchor and reports
// whether the anchor could be resolved. isParallel only applies to a
// NodeAnchor: it turns the anchor into a parallel with the new node as an
// extra branch. isRollback picks the rollback list wherever a list has to be
// chosen: the root list, or the list of the group a placeholder or a
// group-end edge points into.
func Insert(anchor Anchor, tree *pipeline.Tree, newNode *pipeline.StepNode, isParallel, isRollback bool) bool {
	p, ok := resolve(anchor, tree, isParallel, isRollback)
	if !ok {
		return false
	}
	return p.apply(newNode)
}

func resolve(anchor Anchor, tree *pipeline.Tree, isParallel, isRollback bool) (plan, bool) {
	if tree == nil {
		return plan{}, false
	}
	switch a := anchor.(type) {
	case LinkAnchor:
		return resolveLink(tree, a, isRollback)
	case CreateNewAnchor:
		if a.GroupIdentifier == "" {
			return plan{mode: modeAppend, list: tree.List(isRollback)}, true
		}
		g := LocateGroup(tree, a.GroupIdentifier)
		if g == nil {
			return plan{}, false
		}
		return plan{mode: modeAppend, list: g.List(isRollback)}, true
	case NodeAnchor:
		if !isParallel {
			return plan{mode: modeAppend, list: tree.List(isRollback)}, true
		}
		ref := nodeid.Ref(a.Identifier)
		loc := Locate(tree, ref, Options{FindInParallel: true})
		if !loc.Found() {
			return plan{}, false
		}
		if loc.Node.Kind == pipeline.KindParallel {
			return plan{mode: modePushBranch, list: loc.Parent, ref: loc.Node}, true
		}
		return plan{mode: modeWrapParallel, list: loc.Parent, ref: loc.Node}, true
	}
	return plan{}, false
}

func resolveLink(tree *pipeline.Tree, a LinkAnchor, isRollback bool) (plan, bool) {
	if list, ref, ok := linkEnd(tree, a.Source, true, isRollback); ok {
		if ref == nil {
			return plan{mode: modeAppend, list: list}, true
		}
		return plan{mode: modeAfter, list: list, ref: ref}, true
	}
	if list, ref, ok := linkEnd(tree, a.Target, false, isRollback); ok {
		if ref == nil {
			return plan{mode: modeAppend, list: list}, true
		}
		return plan{mode: modeBefore, list: list, ref: ref}, true
	}

	// Edges into the trailing sentinels of the root layer append to the
	// visible root list.
	if id, ok := nodeid.Parse(a.Target); ok && (id.Role == nodeid.RoleStop || id.Role == nodeid.RoleCreateNew) {
		return plan{mode: modeAppend, list: tree.List(isRollback)}, true
	}
	return plan{}, false
}

// linkEnd resolves one end of an edge to the list and sibling the new node is
// placed next to. A nil sibling with ok set means "append to list". Sources
// only resolve when they stand for a real predecessor; targets only when they
// stand for a real successor. isRollback picks the group list a group end
// appends to.
func linkEnd(tree *pipeline.Tree, raw string, isSource, isRollback bool) (*[]*pipeline.StepNode, *pipeline.StepNode, bool) {
	id, ok := nodeid.Parse(raw)
	if !ok {
		return nil, nil, false
	}

	switch id.Role {
	case nodeid.RoleNone:
		loc := Locate(tree, id.Ref, Options{})
		if !loc.Found() {
			return nil, nil, false
		}
		return loc.Parent, loc.Node, true

	case nodeid.RoleFanIn, nodeid.RoleFanOut:
		// A fan-in is the predecessor seen by the next sibling; a fan-out is
		// the successor seen by the previous one. Edges between a fan node
		// and its own branches are not droppable.
		if (isSource && id.Role != nodeid.RoleFanIn) || (!isSource && id.Role != nodeid.RoleFanOut) {
			return nil, nil, false
		}
		loc := Locate(tree, id.Ref, Options{FindInParallel: true})
		if !loc.Found() || loc.Node.Kind != pipeline.KindParallel {
			return nil, nil, false
		}
		return loc.Parent, loc.Node, true

	case nodeid.RoleGroupEnd:
		if isSource {
			loc := Locate(tree, id.Ref, Options{})
			if loc.Group() == nil {
				return nil, nil, false
			}
			return loc.Parent, loc.Node, true
		}
		// Reaching the end of a group from inside: append to the list on
		// display.
		g := LocateGroup(tree, id.Ref)
		if g == nil {
			return nil, nil, false
		}
		return g.List(isRollback), nil, true

	case nodeid.RoleGroupStart:
		if isSource {
			return nil, nil, false
		}
		loc := Locate(tree, id.Ref, Options{})
		if loc.Group() == nil {
			return nil, nil, false
		}
		return loc.Parent, loc.Node, true
	}
	return nil, nil, false
}

func (p plan) apply(n *pipeline.StepNode) bool {
	if p.list == nil || n == nil {
		return false
	}
	if p.mode == modeAppend {
		*p.list = append(*p.list, n)
		return true
	}

	idx := indexOf(*p.list, p.ref)
	if idx < 0 {
		return false
	}
	switch p.mode {
	case modeAfter:
		*p.list = slices.Insert(*p.list, idx+1, n)
	case modeBefore:
		*p.list = slices.Insert(*p.list, idx, n)
	case modePushBranch:
		p.ref.Parallel = append(p.ref.Parallel, n)
	case modeWrapParallel:
		(*p.list)[idx] = pipeline.NewParallel(p.ref, n)
	default:
		return false
	}
	return true
}
