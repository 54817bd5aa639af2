// internal/nodeid/parser.go
package nodeid

import (
	"strings"
)

// Parse splits a graph node identifier into its role and referenced tree
// identifier. Identifiers without the separator prefix are returned as
// RoleNone with Ref set to the input. The boolean is false when the input
// carries the separator but matches no known role.
func Parse(raw string) (ID, bool) {
	if !strings.HasPrefix(raw, Separator) {
		return ID{Role: RoleNone, Ref: raw}, true
	}
	rest := raw[len(Separator):]

	end := strings.LastIndex(rest, Separator)
	if end < 0 {
		for role, name := range sentinelName {
			if rest == name {
				return ID{Role: role}, true
			}
		}
		return ID{}, false
	}

	ref, suffix := rest[:end], rest[end+len(Separator):]
	if ref == "" {
		return ID{}, false
	}
	for role, s := range roleSuffix {
		if suffix == s {
			return ID{Role: role, Ref: ref}, true
		}
	}
	return ID{}, false
}

// Ref returns the tree identifier behind raw, stripping any synthetic wrapping.
// Sentinels and unknown synthetic identifiers yield "".
func Ref(raw string) string {
	id, ok := Parse(raw)
	if !ok {
		return ""
	}
	return id.Ref
}
