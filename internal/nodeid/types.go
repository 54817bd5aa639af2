// internal/nodeid/types.go
package nodeid

// Separator is the reserved token that prefixes every synthetic identifier.
const Separator = "$node$"

// Role tells what a synthetic node stands for.
type Role int

const (
	// RoleNone marks a plain tree identifier.
	RoleNone Role = iota
	// RoleStart is the sentinel opening a whole diagram.
	RoleStart
	// RoleStop is the sentinel closing a whole diagram.
	RoleStop
	// RoleCreateNew is the trailing "add step" placeholder of the root layer.
	RoleCreateNew
	// RoleFanOut is the empty node where parallel branches diverge.
	RoleFanOut
	// RoleFanIn is the empty node where parallel branches converge.
	RoleFanIn
	// RoleGroupStart is the entry boundary of a step-group layer.
	RoleGroupStart
	// RoleGroupEnd is the exit boundary of a step-group layer.
	RoleGroupEnd
	// RoleGroupCreate is the placeholder drawn inside an empty step group.
	RoleGroupCreate
	// RoleServiceGroup is the container holding every service dependency.
	RoleServiceGroup
)

var roleSuffix = map[Role]string{
	RoleFanOut:      "-start",
	RoleFanIn:       "-end",
	RoleGroupStart:  "-group-start",
	RoleGroupEnd:    "-group-end",
	RoleGroupCreate: "-create",
}

var sentinelName = map[Role]string{
	RoleStart:        "start",
	RoleStop:         "stop",
	RoleCreateNew:    "create-new",
	RoleServiceGroup: "service-group",
}

// String returns a short name for logs.
func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleStart, RoleStop, RoleCreateNew, RoleServiceGroup:
		return sentinelName[r]
	case RoleFanOut:
		return "fan-out"
	case RoleFanIn:
		return "fan-in"
	case RoleGroupStart:
		return "group-start"
	case RoleGroupEnd:
		return "group-end"
	case RoleGroupCreate:
		return "group-create"
	}
	return "unknown"
}

// ID is the structured form of a graph node identifier.
type ID struct {
	Role Role
	// Ref is the tree identifier the node refers to. For RoleNone it is the
	// identifier itself; sentinels leave it empty.
	Ref string
}
