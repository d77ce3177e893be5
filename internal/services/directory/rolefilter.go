package directory

import (
	"encoding/json"
	"strings"

	"github.com/wilschoy78/school-mis-api/internal/auth"
)

// RoleFilter selects accounts by role membership. The zero value matches
// every role.
type RoleFilter struct {
	roles []auth.Role
}

// AllRoles matches every account regardless of role.
var AllRoles = RoleFilter{}

// RolesIn matches accounts holding at least one of roles.
func RolesIn(roles ...auth.Role) RoleFilter {
	if len(roles) == 0 {
		return AllRoles
	}
	set := auth.NewRoleSet(roles...)
	return RoleFilter{roles: set.Slice()}
}

// All reports whether the filter is the "all" sentinel.
func (f RoleFilter) All() bool { return len(f.roles) == 0 }

// Roles returns the explicit role set, nil for All.
func (f RoleFilter) Roles() []auth.Role { return f.roles }

func (f RoleFilter) String() string {
	if f.All() {
		return "all"
	}
	return strings.Join(auth.RoleNames(f.roles), ",")
}

// ParseRoleFilter accepts "all", a JSON array (["teacher","staff"]) or a
// comma separated list. Anything malformed, including unknown role names,
// yields AllRoles rather than an error.
func ParseRoleFilter(raw string) RoleFilter {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return AllRoles
	}

	var names []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return AllRoles
		}
	} else {
		names = strings.Split(raw, ",")
	}

	roles, invalid := auth.ParseRoles(names)
	if len(invalid) > 0 {
		return AllRoles
	}
	return RolesIn(roles...)
}
