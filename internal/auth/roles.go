package auth

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Role is a tag held by an account. An account holds a set of roles.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleRegistrar  Role = "registrar"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
	RoleLibrarian  Role = "librarian"
	RoleParent     Role = "parent"
)

// AllRoles lists every known role in declaration order.
var AllRoles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleStaff,
	RoleRegistrar,
	RoleTeacher,
	RoleStudent,
	RoleLibrarian,
	RoleParent,
}

// EmployeeRoles is the population counted by directory statistics.
var EmployeeRoles = []Role{
	RoleAdmin,
	RoleStaff,
	RoleRegistrar,
	RoleTeacher,
	RoleLibrarian,
}

// DefaultRole is assigned when an account is created without roles.
const DefaultRole = RoleStaff

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(AllRoles, r)
}

func (r Role) String() string { return string(r) }

// ParseRole parses a role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ParseRoles parses every name in names and returns the unknown ones.
func ParseRoles(names []string) ([]Role, []string) {
	var (
		roles   []Role
		invalid []string
	)
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			invalid = append(invalid, n)
			continue
		}
		roles = append(roles, r)
	}
	return roles, invalid
}

// RoleNames returns the string form of roles.
func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// RoleSet is an unordered collection of roles. Duplicates collapse.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Add inserts r.
func (s RoleSet) Add(r Role) { s[r] = struct{}{} }

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// HasAny reports whether the set shares at least one role with required.
// It is false when required is empty.
func (s RoleSet) HasAny(required ...Role) bool {
	for _, r := range required {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Excludes reports whether r is absent from the set.
func (s RoleSet) Excludes(r Role) bool { return !s.Has(r) }

// Len returns the number of distinct roles.
func (s RoleSet) Len() int { return len(s) }

// Slice returns the roles sorted by name.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// MarshalJSON encodes the set as a sorted array of role names.
func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(RoleNames(s.Slice()))
}

// UnmarshalJSON decodes an array of role names, rejecting unknown roles.
func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	roles, invalid := ParseRoles(names)
	if len(invalid) > 0 {
		return fmt.Errorf("unknown role(s): %s", strings.Join(invalid, ", "))
	}
	*s = NewRoleSet(roles...)
	return nil
}

// HasAny reports whether held and required intersect.
func HasAny(held, required []Role) bool {
	return NewRoleSet(held...).HasAny(required...)
}
