package stepstate

import (
	"slices"

	"github.com/vk/stagegraph/internal/nodeid"
)

// StaticServiceGroupName is the state key of the container that holds every
// service dependency.
var StaticServiceGroupName = nodeid.ServiceGroupID

// StepType tells what kind of entity a state entry belongs to.
type StepType int

const (
	TypeStep StepType = iota + 1
	TypeStepGroup
	TypeService
	TypeServiceGroup
)

func (t StepType) String() string {
	switch t {
	case TypeStep:
		return "Step"
	case TypeStepGroup:
		return "StepGroup"
	case TypeService:
		return "Service"
	case TypeServiceGroup:
		return "ServiceGroup"
	default:
		return "Unknown"
	}
}

// State is the UI state of one node.
type State struct {
	StepType             StepType
	IsStepGroupCollapsed bool
	IsStepGroupRollback  bool
	// IsSaved is true when the node also exists in the last persisted tree.
	IsSaved bool
	// InheritedSG is the number of step groups enclosing the node.
	InheritedSG int
}

// Map is an insertion-ordered map of states keyed by identifier. The zero
// value is ready to use. It is not safe for concurrent use.
type Map struct {
	keys    []string
	entries map[string]State
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{entries: map[string]State{}}
}

// Get returns the state for id.
func (m *Map) Get(id string) (State, bool) {
	if m == nil || m.entries == nil {
		return State{}, false
	}
	s, ok := m.entries[id]
	return s, ok
}

// Has reports whether id has an entry.
func (m *Map) Has(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Set stores s under id. New keys are appended to the iteration order.
func (m *Map) Set(id string, s State) {
	if m.entries == nil {
		m.entries = map[string]State{}
	}
	if _, ok := m.entries[id]; !ok {
		m.keys = append(m.keys, id)
	}
	m.entries[id] = s
}

// Delete removes id.
func (m *Map) Delete(id string) {
	if m == nil || m.entries == nil {
		return
	}
	if _, ok := m.entries[id]; !ok {
		return
	}
	delete(m.entries, id)
	if i := slices.Index(m.keys, id); i >= 0 {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
}

// Keys returns the identifiers in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns an independent copy.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, m.entries[k])
	}
	return out
}

// ToggleCollapsed flips the collapse flag of id and returns the new value.
// Missing entries are left alone and report false.
func (m *Map) ToggleCollapsed(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.IsStepGroupCollapsed = !s.IsStepGroupCollapsed
	m.entries[id] = s
	return s.IsStepGroupCollapsed
}

// ToggleRollback flips the rollback-view flag of id and returns the new value.
func (m *Map) ToggleRollback(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.IsStepGroupRollback = !s.IsStepGroupRollback
	m.entries[id] = s
	return s.IsStepGroupRollback
}

// Collapsed reports whether id is a collapsed step group.
func (m *Map) Collapsed(id string) bool {
	s, _ := m.Get(id)
	return s.IsStepGroupCollapsed
}

// Rollback reports whether id shows its rollback list.
func (m *Map) Rollback(id string) bool {
	s, _ := m.Get(id)
	return s.IsStepGroupRollback
}
