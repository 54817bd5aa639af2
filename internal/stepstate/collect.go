package stepstate

import (
	"github.com/vk/stagegraph/internal/pipeline"
)

// Collect adds a default entry for every step and step group of tree that
// has no entry yet. Existing entries keep their flags; only their structural
// fields (StepType, InheritedSG) follow the tree, since a node may have been
// moved in or out of a group since the last call.
func Collect(tree *pipeline.Tree, m *Map) {
	pipeline.WalkTree(tree, func(n *pipeline.StepNode, depth int) bool {
		id := n.Identifier()
		if id == "" {
			return true
		}
		kind := TypeStep
		if n.Kind == pipeline.KindStepGroup {
			kind = TypeStepGroup
		}
		s, ok := m.Get(id)
		if !ok {
			m.Set(id, State{StepType: kind, InheritedSG: depth})
			return true
		}
		s.StepType = kind
		s.InheritedSG = depth
		m.Set(id, s)
		return true
	})
}

// CollectDependencies (re)inserts the service container entry and one entry
// per service. These entries are always reset to defaults.
func CollectDependencies(services []*pipeline.Service, m *Map) {
	m.Set(StaticServiceGroupName, State{StepType: TypeServiceGroup})
	for _, s := range services {
		if s == nil || s.Identifier == "" {
			continue
		}
		m.Set(s.Identifier, State{StepType: TypeService})
	}
}

// MarkSaved flags every entry whose identifier also appears in original, the
// last persisted tree.
func MarkSaved(original *pipeline.Tree, m *Map) {
	for _, id := range pipeline.Identifiers(original) {
		markSaved(m, id)
	}
}

// MarkDependenciesSaved flags the service entries present in original.
func MarkDependenciesSaved(original []*pipeline.Service, m *Map) {
	for _, s := range original {
		if s != nil {
			markSaved(m, s.Identifier)
		}
	}
	if len(original) > 0 {
		markSaved(m, StaticServiceGroupName)
	}
}

func markSaved(m *Map, id string) {
	s, ok := m.Get(id)
	if !ok {
		return
	}
	s.IsSaved = true
	m.Set(id, s)
}

// Reconcile carries the collapse and rollback toggles of existing over to
// the matching entries of next, and clears their saved flag so it can be
// recomputed against a new persisted tree.
func Reconcile(next, existing *Map) {
	for _, id := range next.Keys() {
		old, ok := existing.Get(id)
		if !ok {
			continue
		}
		s, _ := next.Get(id)
		s.IsStepGroupCollapsed = old.IsStepGroupCollapsed
		s.IsStepGroupRollback = old.IsStepGroupRollback
		s.IsSaved = false
		next.Set(id, s)
	}
}

// Prune deletes entries that no longer match a node of tree or a service. The
// service container entry survives as long as there is at least one service.
// It returns the number of deleted entries.
func Prune(tree *pipeline.Tree, services []*pipeline.Service, m *Map) int {
	live := make(map[string]struct{})
	for _, id := range pipeline.Identifiers(tree) {
		live[id] = struct{}{}
	}
	for _, s := range services {
		if s != nil {
			live[s.Identifier] = struct{}{}
		}
	}
	if len(services) > 0 {
		live[StaticServiceGroupName] = struct{}{}
	}

	removed := 0
	for _, id := range m.Keys() {
		if _, ok := live[id]; ok {
			continue
		}
		m.Delete(id)
		removed++
	}
	return removed
}
