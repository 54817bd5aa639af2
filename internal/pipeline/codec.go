package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownEnvelope is returned when a step list entry carries none, or more
// than one, of the step/parallel/stepGroup keys.
var ErrUnknownEnvelope = errors.New("step node must hold exactly one of step, parallel or stepGroup")

// DecodeError reports a malformed step node with its source position when one
// is known (YAML input).
type DecodeError struct {
	Line    int
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MarshalJSON encodes the node as its single-key envelope.
func (n StepNode) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindStep:
		return json.Marshal(struct {
			Step *Step `json:"step"`
		}{n.Step})
	case KindParallel:
		branches := n.Parallel
		if branches == nil {
			branches = []*StepNode{}
		}
		return json.Marshal(struct {
			Parallel []*StepNode `json:"parallel"`
		}{branches})
	case KindStepGroup:
		return json.Marshal(struct {
			StepGroup *StepGroup `json:"stepGroup"`
		}{n.StepGroup})
	}
	return nil, &DecodeError{Message: fmt.Sprintf("cannot encode step node of kind %d", n.Kind), Err: ErrUnknownEnvelope}
}

// UnmarshalJSON decodes a single-key envelope. Missing step lists inside a
// group are left empty.
func (n *StepNode) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("step node: %w", err)
	}
	kind, err := envelopeKind(keysOf(raw), 0)
	if err != nil {
		return err
	}

	*n = StepNode{Kind: kind}
	switch kind {
	case KindStep:
		n.Step = &Step{}
		if err := json.Unmarshal(raw["step"], n.Step); err != nil {
			return fmt.Errorf("step: %w", err)
		}
	case KindParallel:
		if err := json.Unmarshal(raw["parallel"], &n.Parallel); err != nil {
			return fmt.Errorf("parallel: %w", err)
		}
	case KindStepGroup:
		n.StepGroup = &StepGroup{}
		if err := json.Unmarshal(raw["stepGroup"], n.StepGroup); err != nil {
			return fmt.Errorf("stepGroup: %w", err)
		}
	}
	return nil
}

// yamlStep mirrors Step with a free-form spec so YAML documents can carry
// nested mappings that end up as raw JSON.
type yamlStep struct {
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Spec       any    `yaml:"spec,omitempty"`
}

type yamlStepGroup struct {
	Identifier    string      `yaml:"identifier"`
	Name          string      `yaml:"name"`
	Steps         []*StepNode `yaml:"steps"`
	RollbackSteps []*StepNode `yaml:"rollbackSteps,omitempty"`
}

// UnmarshalYAML decodes the same envelope shape as UnmarshalJSON.
func (n *StepNode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return &DecodeError{Line: value.Line, Message: "step node must be a mapping", Err: ErrUnknownEnvelope}
	}
	entries := make(map[string]*yaml.Node, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		entries[value.Content[i].Value] = value.Content[i+1]
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	kind, err := envelopeKind(keys, value.Line)
	if err != nil {
		return err
	}

	*n = StepNode{Kind: kind}
	switch kind {
	case KindStep:
		var s yamlStep
		if err := entries["step"].Decode(&s); err != nil {
			return &DecodeError{Line: entries["step"].Line, Message: fmt.Sprintf("invalid step: %v", err), Err: err}
		}
		step := &Step{Identifier: s.Identifier, Name: s.Name, Type: s.Type}
		if s.Spec != nil {
			spec, err := json.Marshal(s.Spec)
			if err != nil {
				return &DecodeError{Line: entries["step"].Line, Message: fmt.Sprintf("step %q has a spec that cannot be represented as JSON: %v", s.Identifier, err), Err: err}
			}
			step.Spec = spec
		}
		n.Step = step
	case KindParallel:
		if err := entries["parallel"].Decode(&n.Parallel); err != nil {
			return err
		}
	case KindStepGroup:
		var g yamlStepGroup
		if err := entries["stepGroup"].Decode(&g); err != nil {
			return err
		}
		n.StepGroup = &StepGroup{
			Identifier:    g.Identifier,
			Name:          g.Name,
			Steps:         g.Steps,
			RollbackSteps: g.RollbackSteps,
		}
	}
	return nil
}

// MarshalYAML encodes the node as its single-key envelope.
func (n StepNode) MarshalYAML() (any, error) {
	switch n.Kind {
	case KindStep:
		s := yamlStep{Identifier: n.Step.Identifier, Name: n.Step.Name, Type: n.Step.Type}
		if len(n.Step.Spec) > 0 {
			if err := json.Unmarshal(n.Step.Spec, &s.Spec); err != nil {
				return nil, fmt.Errorf("step %q spec: %w", n.Step.Identifier, err)
			}
		}
		return map[string]any{"step": s}, nil
	case KindParallel:
		return map[string]any{"parallel": n.Parallel}, nil
	case KindStepGroup:
		return map[string]any{"stepGroup": yamlStepGroup{
			Identifier:    n.StepGroup.Identifier,
			Name:          n.StepGroup.Name,
			Steps:         n.StepGroup.Steps,
			RollbackSteps: n.StepGroup.RollbackSteps,
		}}, nil
	}
	return nil, &DecodeError{Message: fmt.Sprintf("cannot encode step node of kind %d", n.Kind), Err: ErrUnknownEnvelope}
}

func envelopeKind(keys []string, line int) (Kind, error) {
	var found []Kind
	for _, k := range keys {
		switch k {
		case "step":
			found = append(found, KindStep)
		case "parallel":
			found = append(found, KindParallel)
		case "stepGroup":
			found = append(found, KindStepGroup)
		}
	}
	if len(found) != 1 {
		sort.Strings(keys)
		return 0, &DecodeError{
			Line:    line,
			Message: fmt.Sprintf("%v (got keys: %s)", ErrUnknownEnvelope, strings.Join(keys, ", ")),
			Err:     ErrUnknownEnvelope,
		}
	}
	return found[0], nil
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
