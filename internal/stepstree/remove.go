package stepstree

import (
	"slices"

	"github.com/vk/stagegraph/internal/pipeline"
)

// Remove deletes the node with the given identifier. Services are checked
// first (exact identifier match); then the tree is searched. When the removed
// node was a branch of a parallel that is left with a single branch, the
// parallel wrapper is replaced in its own parent by that remaining branch,
// unless skipFlatten is set. It reports whether anything was removed.
func Remove(tree *pipeline.Tree, services *[]*pipeline.Service, id string, skipFlatten bool) bool {
	if services != nil {
		for i, s := range *services {
			if s != nil && s.Identifier == id {
				*services = slices.Delete(*services, i, i+1)
				return true
			}
		}
	}

	loc := Locate(tree, id, Options{})
	idx := loc.Index()
	if idx < 0 {
		return false
	}
	*loc.Parent = slices.Delete(*loc.Parent, idx, idx+1)

	if skipFlatten || loc.ParallelParent == nil || loc.ParallelParentParent == nil {
		return true
	}
	flattenAt(loc.ParallelParentParent, loc.ParallelParentIndex, loc.ParallelParent)
	return true
}

// flattenAt restores the single-branch invariant for the parallel wrapper
// stored at owner[index]: one branch replaces the wrapper, zero branches
// drop it.
func flattenAt(owner *[]*pipeline.StepNode, index int, wrapper *pipeline.StepNode) {
	if index < 0 || index >= len(*owner) || (*owner)[index] != wrapper {
		index = indexOf(*owner, wrapper)
		if index < 0 {
			return
		}
	}
	switch len(wrapper.Parallel) {
	case 0:
		*owner = slices.Delete(*owner, index, index+1)
	case 1:
		(*owner)[index] = wrapper.Parallel[0]
	}
}
