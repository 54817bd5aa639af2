package diagram

// EventKind enumerates what a user can do on a rendered diagram.
type EventKind int

const (
	EventNodeClick EventKind = iota + 1
	EventNodeRemove
	EventAddParallel
	EventLinkClick
	EventLinkDrop
	EventNodeDrop
	EventCollapse
	EventRollbackToggle
	EventMouseEnter
	EventMouseLeave
	EventOffsetChange
	EventZoomChange
)

func (k EventKind) String() string {
	switch k {
	case EventNodeClick:
		return "node-click"
	case EventNodeRemove:
		return "node-remove"
	case EventAddParallel:
		return "add-parallel"
	case EventLinkClick:
		return "link-click"
	case EventLinkDrop:
		return "link-drop"
	case EventNodeDrop:
		return "node-drop"
	case EventCollapse:
		return "collapse"
	case EventRollbackToggle:
		return "rollback-toggle"
	case EventMouseEnter:
		return "mouse-enter"
	case EventMouseLeave:
		return "mouse-leave"
	case EventOffsetChange:
		return "offset-change"
	case EventZoomChange:
		return "zoom-change"
	}
	return "unknown"
}

// Event is one user interaction. NodeID is set for node events, From and To
// for link events. Dragged names the node being dropped for drop events.
type Event struct {
	Kind    EventKind
	NodeID  string
	From    string
	To      string
	Dragged string
	Offset  Point
	Zoom    float64
}

// Listeners holds one callback per event kind. Nil callbacks ignore the
// event.
type Listeners struct {
	OnNodeClick      func(Event)
	OnNodeRemove     func(Event)
	OnAddParallel    func(Event)
	OnLinkClick      func(Event)
	OnLinkDrop       func(Event)
	OnNodeDrop       func(Event)
	OnCollapse       func(Event)
	OnRollbackToggle func(Event)
	OnMouseEnter     func(Event)
	OnMouseLeave     func(Event)
	OnOffsetChange   func(Event)
	OnZoomChange     func(Event)
}

func (l *Listeners) handler(k EventKind) func(Event) {
	switch k {
	case EventNodeClick:
		return l.OnNodeClick
	case EventNodeRemove:
		return l.OnNodeRemove
	case EventAddParallel:
		return l.OnAddParallel
	case EventLinkClick:
		return l.OnLinkClick
	case EventLinkDrop:
		return l.OnLinkDrop
	case EventNodeDrop:
		return l.OnNodeDrop
	case EventCollapse:
		return l.OnCollapse
	case EventRollbackToggle:
		return l.OnRollbackToggle
	case EventMouseEnter:
		return l.OnMouseEnter
	case EventMouseLeave:
		return l.OnMouseLeave
	case EventOffsetChange:
		return l.OnOffsetChange
	case EventZoomChange:
		return l.OnZoomChange
	}
	return nil
}

// RegisterListeners replaces the model's listeners.
func (m *Model) RegisterListeners(l Listeners) {
	m.listeners = l
}

// Dispatch delivers e to its listener and reports whether one ran. Events
// are dropped while a rebuild is running and when they point at a node or
// edge the model does not hold. Link events need an edge that accepts adds.
func (m *Model) Dispatch(e Event) bool {
	if m.rebuilding {
		return false
	}
	fn := m.listeners.handler(e.Kind)
	if fn == nil {
		return false
	}

	switch e.Kind {
	case EventLinkClick, EventLinkDrop:
		edge, ok := m.Edge(e.From, e.To)
		if !ok || !edge.AllowAdd {
			return false
		}
	case EventOffsetChange, EventZoomChange:
	default:
		if _, ok := m.nodes[e.NodeID]; !ok {
			return false
		}
	}
	fn(e)
	return true
}
