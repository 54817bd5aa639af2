package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagegraph/internal/pipeline"
)

// S builds a step node whose name mirrors its identifier.
func S(id string) *pipeline.StepNode {
	return pipeline.NewStep(&pipeline.Step{Identifier: id, Name: id, Type: "ShellScript"})
}

// Typed builds a step node with an explicit step type.
func Typed(id, stepType string) *pipeline.StepNode {
	return pipeline.NewStep(&pipeline.Step{Identifier: id, Name: id, Type: stepType})
}

// P builds a parallel node.
func P(branches ...*pipeline.StepNode) *pipeline.StepNode {
	return pipeline.NewParallel(branches...)
}

// G builds a step group with forward steps only.
func G(id string, steps ...*pipeline.StepNode) *pipeline.StepNode {
	return pipeline.NewStepGroup(&pipeline.StepGroup{Identifier: id, Name: id, Steps: steps})
}

// GR builds a step group with forward and rollback steps.
func GR(id string, steps, rollback []*pipeline.StepNode) *pipeline.StepNode {
	return pipeline.NewStepGroup(&pipeline.StepGroup{Identifier: id, Name: id, Steps: steps, RollbackSteps: rollback})
}

// L is shorthand for a step list literal.
func L(nodes ...*pipeline.StepNode) []*pipeline.StepNode {
	return nodes
}

// T builds a tree with forward steps only.
func T(steps ...*pipeline.StepNode) *pipeline.Tree {
	return &pipeline.Tree{Steps: steps}
}

// Svc builds a service dependency.
func Svc(id string) *pipeline.Service {
	return &pipeline.Service{Identifier: id, Name: id, Type: "Service"}
}

// MustJSON renders a tree in its wire format, failing the test on error. It
// is the most readable way to compare two trees in a failure message.
func MustJSON(t *testing.T, tree *pipeline.Tree) string {
	t.Helper()
	b, err := json.Marshal(tree)
	require.NoError(t, err)
	return string(b)
}

// MustParse decodes a tree from its wire format.
func MustParse(t *testing.T, src string) *pipeline.Tree {
	t.Helper()
	var tree pipeline.Tree
	require.NoError(t, json.Unmarshal([]byte(src), &tree))
	return &tree
}
