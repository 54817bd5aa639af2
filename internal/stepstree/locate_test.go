package stepstree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegraph/internal/pipeline"
	"github.com/vk/stagegraph/internal/stepstree"
	tu "github.com/vk/stagegraph/internal/testutil"
)

func TestLocate_TopLevelStep(t *testing.T) {
	tree := tu.T(tu.S("A"), tu.S("B"))

	loc := stepstree.Locate(tree, "B", stepstree.Options{})

	require.True(t, loc.Found())
	assert.Equal(t, "B", loc.Step().Identifier)
	assert.Same(t, &tree.Steps, loc.Parent)
	assert.Equal(t, 1, loc.Index())
	assert.Nil(t, loc.ParallelParent)
}

func TestLocate_ParallelBranch(t *testing.T) {
	par := tu.P(tu.S("A"), tu.S("B"))
	tree := tu.T(tu.S("first"), par)

	t.Run("exact", func(t *testing.T) {
		loc := stepstree.Locate(tree, "B", stepstree.Options{})
		require.True(t, loc.Found())
		assert.Equal(t, "B", loc.Node.Identifier())
		assert.Same(t, &par.Parallel, loc.Parent)
		assert.Same(t, par, loc.ParallelParent)
		assert.Same(t, &tree.Steps, loc.ParallelParentParent)
		assert.Equal(t, 1, loc.ParallelParentIndex)
	})

	t.Run("find in parallel returns the wrapper", func(t *testing.T) {
		loc := stepstree.Locate(tree, "B", stepstree.Options{FindInParallel: true})
		require.True(t, loc.Found())
		assert.Same(t, par, loc.Node)
		assert.Same(t, &tree.Steps, loc.Parent)
		assert.Nil(t, loc.Step())
	})
}

func TestLocate_InsideGroups(t *testing.T) {
	tree := tu.T(
		tu.GR("outer",
			tu.L(tu.S("a"), tu.G("inner", tu.S("deep"))),
			tu.L(tu.S("undo")),
		),
	)

	tests := []struct {
		id    string
		group bool
	}{
		{id: "outer", group: true},
		{id: "inner", group: true},
		{id: "deep"},
		{id: "undo"},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			loc := stepstree.Locate(tree, tc.id, stepstree.Options{})
			require.True(t, loc.Found())
			assert.Equal(t, tc.id, loc.Node.Identifier())
			assert.Equal(t, tc.group, loc.Group() != nil)
		})
	}

	assert.NotNil(t, stepstree.LocateGroup(tree, "inner"))
	assert.Nil(t, stepstree.LocateGroup(tree, "deep"))
	assert.True(t, stepstree.IsInsideGroup(tree, "deep"))
	assert.True(t, stepstree.IsInsideGroup(tree, "inner"))
	assert.False(t, stepstree.IsInsideGroup(tree, "outer"))
}

func TestLocate_MissingOrEmpty(t *testing.T) {
	tree := tu.T(tu.S("A"), pipeline.NewStepGroup(nil))

	assert.False(t, stepstree.Locate(tree, "nope", stepstree.Options{}).Found())
	assert.False(t, stepstree.Locate(tree, "", stepstree.Options{}).Found())
	assert.False(t, stepstree.Locate(nil, "A", stepstree.Options{}).Found())
	assert.Equal(t, -1, stepstree.Locate(tree, "nope", stepstree.Options{}).Index())
}

// Identifiers are not unique across the forward and rollback lists in every
// document. The forward list always wins.
func TestLocate_DuplicateIdentifierPrefersForward(t *testing.T) {
	forward := tu.Typed("dup", "Forward")
	tree := tu.T(forward)
	tree.RollbackSteps = tu.L(tu.Typed("dup", "Rollback"))

	loc := stepstree.Locate(tree, "dup", stepstree.Options{})

	require.True(t, loc.Found())
	assert.Same(t, forward, loc.Node)
	assert.Same(t, &tree.Steps, loc.Parent)
}

func TestRealIdentifier(t *testing.T) {
	assert.Equal(t, "A", stepstree.RealIdentifier("A"))
	assert.Equal(t, "A", stepstree.RealIdentifier("$node$A$node$-start"))
	assert.Equal(t, "G", stepstree.RealIdentifier("$node$G$node$-group-end"))
	assert.Empty(t, stepstree.RealIdentifier("$node$stop"))
}
