package stepstree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegraph/internal/pipeline"
	"github.com/vk/stagegraph/internal/stepstree"
	tu "github.com/vk/stagegraph/internal/testutil"
)

func TestRemove(t *testing.T) {
	tests := []struct {
		name        string
		tree        *pipeline.Tree
		id          string
		skipFlatten bool
		want        *pipeline.Tree
		removed     bool
	}{
		{
			name:    "plain step",
			tree:    tu.T(tu.S("A"), tu.S("B")),
			id:      "B",
			want:    tu.T(tu.S("A")),
			removed: true,
		},
		{
			name:    "parallel flattens to remaining branch",
			tree:    tu.T(tu.P(tu.S("A"), tu.S("B"))),
			id:      "B",
			want:    tu.T(tu.S("A")),
			removed: true,
		},
		{
			name:    "flatten keeps position",
			tree:    tu.T(tu.S("x"), tu.P(tu.S("A"), tu.S("B")), tu.S("y")),
			id:      "A",
			want:    tu.T(tu.S("x"), tu.S("B"), tu.S("y")),
			removed: true,
		},
		{
			name:    "three branches stay parallel",
			tree:    tu.T(tu.P(tu.S("A"), tu.S("B"), tu.S("C"))),
			id:      "B",
			want:    tu.T(tu.P(tu.S("A"), tu.S("C"))),
			removed: true,
		},
		{
			name:        "skip flatten",
			tree:        tu.T(tu.P(tu.S("A"), tu.S("B"))),
			id:          "B",
			skipFlatten: true,
			want:        tu.T(tu.P(tu.S("A"))),
			removed:     true,
		},
		{
			name:    "inside group",
			tree:    tu.T(tu.G("g", tu.S("A"), tu.P(tu.S("B"), tu.S("C")))),
			id:      "C",
			want:    tu.T(tu.G("g", tu.S("A"), tu.S("B"))),
			removed: true,
		},
		{
			name:    "whole group",
			tree:    tu.T(tu.G("g", tu.S("A")), tu.S("B")),
			id:      "g",
			want:    tu.T(tu.S("B")),
			removed: true,
		},
		{
			name: "missing",
			tree: tu.T(tu.S("A")),
			id:   "Z",
			want: tu.T(tu.S("A")),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := stepstree.Remove(tc.tree, nil, tc.id, tc.skipFlatten)
			assert.Equal(t, tc.removed, got)
			assert.JSONEq(t, tu.MustJSON(t, tc.want), tu.MustJSON(t, tc.tree))
		})
	}
}

func TestRemove_ServicesFirst(t *testing.T) {
	tree := tu.T(tu.S("db"))
	services := []*pipeline.Service{tu.Svc("db"), tu.Svc("cache")}

	require.True(t, stepstree.Remove(tree, &services, "db", false))

	require.Len(t, services, 1)
	assert.Equal(t, "cache", services[0].Identifier)
	assert.Len(t, tree.Steps, 1, "step with the same identifier stays")
}

func TestRemove_FlattenIsIdempotent(t *testing.T) {
	tree := tu.T(tu.P(tu.S("A"), tu.S("B")))
	require.True(t, stepstree.Remove(tree, nil, "B", false))
	once := tu.MustJSON(t, tree)

	assert.Zero(t, stepstree.Normalize(tree))
	assert.Equal(t, once, tu.MustJSON(t, tree))
}

func TestNormalize(t *testing.T) {
	tree := tu.T(
		tu.P(tu.S("A")),
		tu.P(),
		tu.G("g", tu.P(tu.P(tu.S("B")), tu.S("C"))),
	)

	assert.Equal(t, 3, stepstree.Normalize(tree))
	assert.JSONEq(t,
		tu.MustJSON(t, tu.T(tu.S("A"), tu.G("g", tu.P(tu.S("B"), tu.S("C"))))),
		tu.MustJSON(t, tree))
	assert.Zero(t, stepstree.Normalize(tree))
}

func TestNormalize_SplicesNestedParallels(t *testing.T) {
	tests := []struct {
		name    string
		tree    *pipeline.Tree
		want    *pipeline.Tree
		rewrote int
	}{
		{
			name:    "first branch",
			tree:    tu.T(tu.P(tu.P(tu.S("A"), tu.S("B")), tu.S("C"))),
			want:    tu.T(tu.P(tu.S("A"), tu.S("B"), tu.S("C"))),
			rewrote: 1,
		},
		{
			name:    "two levels deep",
			tree:    tu.T(tu.P(tu.S("x"), tu.P(tu.S("a"), tu.P(tu.S("b"), tu.S("c"))))),
			want:    tu.T(tu.P(tu.S("x"), tu.S("a"), tu.S("b"), tu.S("c"))),
			rewrote: 2,
		},
		{
			name:    "inside a group",
			tree:    tu.T(tu.G("g", tu.P(tu.S("a"), tu.P(tu.S("b"), tu.S("c"))))),
			want:    tu.T(tu.G("g", tu.P(tu.S("a"), tu.S("b"), tu.S("c")))),
			rewrote: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.rewrote, stepstree.Normalize(tc.tree))
			assert.JSONEq(t, tu.MustJSON(t, tc.want), tu.MustJSON(t, tc.tree))
			assert.Zero(t, stepstree.Normalize(tc.tree))
		})
	}
}
