// internal/nodeid/address.go
package nodeid

// Sentinel identifiers of the root layer.
var (
	StartID     = Separator + sentinelName[RoleStart]
	StopID      = Separator + sentinelName[RoleStop]
	CreateNewID = Separator + sentinelName[RoleCreateNew]

	// ServiceGroupID is also the state-map key of the service container.
	ServiceGroupID = Separator + sentinelName[RoleServiceGroup]
)

// String serializes the ID into its canonical graph identifier.
func (id ID) String() string {
	switch id.Role {
	case RoleNone:
		return id.Ref
	case RoleStart, RoleStop, RoleCreateNew, RoleServiceGroup:
		return Separator + sentinelName[id.Role]
	}
	return Separator + id.Ref + Separator + roleSuffix[id.Role]
}

// IsSynthetic reports whether the identifier was generated by the layout.
func (id ID) IsSynthetic() bool {
	return id.Role != RoleNone
}

// FanOut returns the fan-out identifier of a parallel whose first branch is ref.
func FanOut(ref string) string { return ID{Role: RoleFanOut, Ref: ref}.String() }

// FanIn returns the fan-in identifier of a parallel whose first branch is ref.
func FanIn(ref string) string { return ID{Role: RoleFanIn, Ref: ref}.String() }

// GroupStart returns the start boundary identifier of a step-group layer.
func GroupStart(group string) string { return ID{Role: RoleGroupStart, Ref: group}.String() }

// GroupEnd returns the end boundary identifier of a step-group layer.
func GroupEnd(group string) string { return ID{Role: RoleGroupEnd, Ref: group}.String() }

// GroupCreate returns the identifier of the placeholder inside an empty group.
func GroupCreate(group string) string { return ID{Role: RoleGroupCreate, Ref: group}.String() }
