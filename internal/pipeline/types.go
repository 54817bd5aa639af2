package pipeline

import (
	"encoding/json"
)

// Kind is the discriminant of a StepNode.
type Kind int

const (
	// KindStep marks a leaf step.
	KindStep Kind = iota + 1
	// KindParallel marks a group of concurrent branches.
	KindParallel
	// KindStepGroup marks a named container of steps.
	KindStepGroup
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindStep:
		return "step"
	case KindParallel:
		return "parallel"
	case KindStepGroup:
		return "stepGroup"
	default:
		return "unknown"
	}
}

// Step is a single executable unit.
type Step struct {
	Identifier string          `json:"identifier"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Spec       json.RawMessage `json:"spec,omitempty"`
}

// StepGroup is a named, collapsible container. Its rollback list is shown
// instead of Steps when the group's rollback view is active.
type StepGroup struct {
	Identifier    string      `json:"identifier"`
	Name          string      `json:"name"`
	Steps         []*StepNode `json:"steps"`
	RollbackSteps []*StepNode `json:"rollbackSteps,omitempty"`
}

// List returns a pointer to the forward or rollback list of the group.
func (g *StepGroup) List(rollback bool) *[]*StepNode {
	if rollback {
		return &g.RollbackSteps
	}
	return &g.Steps
}

// StepNode is one entry of a step list. Exactly one of Step, Parallel and
// StepGroup is populated, as told by Kind.
type StepNode struct {
	Kind      Kind
	Step      *Step
	Parallel  []*StepNode
	StepGroup *StepGroup
}

// NewStep wraps a step into a node.
func NewStep(s *Step) *StepNode {
	return &StepNode{Kind: KindStep, Step: s}
}

// NewParallel wraps branches into a parallel node.
func NewParallel(branches ...*StepNode) *StepNode {
	return &StepNode{Kind: KindParallel, Parallel: branches}
}

// NewStepGroup wraps a step group into a node.
func NewStepGroup(g *StepGroup) *StepNode {
	return &StepNode{Kind: KindStepGroup, StepGroup: g}
}

// Identifier returns the identifier of a step or step group. Parallel nodes
// have no identifier of their own and return "".
func (n *StepNode) Identifier() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindStep:
		if n.Step != nil {
			return n.Step.Identifier
		}
	case KindStepGroup:
		if n.StepGroup != nil {
			return n.StepGroup.Identifier
		}
	}
	return ""
}

// Name returns the display name of a step or step group.
func (n *StepNode) Name() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindStep:
		if n.Step != nil {
			return n.Step.Name
		}
	case KindStepGroup:
		if n.StepGroup != nil {
			return n.StepGroup.Name
		}
	}
	return ""
}

// Tree is the root of a pipeline: forward steps and rollback steps share one
// identifier space but are otherwise independent.
type Tree struct {
	Steps         []*StepNode `json:"steps" yaml:"steps"`
	RollbackSteps []*StepNode `json:"rollbackSteps,omitempty" yaml:"rollbackSteps,omitempty"`
}

// List returns a pointer to the forward or rollback list of the tree.
func (t *Tree) List(rollback bool) *[]*StepNode {
	if rollback {
		return &t.RollbackSteps
	}
	return &t.Steps
}

// Service is a background dependency. Services are never nested; they are all
// rendered inside one synthetic service group.
type Service struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
}
