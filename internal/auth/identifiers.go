package auth

// PrefixRole namespaces role subjects in Casbin policies so a role can never
// collide with an operation name.
const PrefixRole = "role:"

// RoleID creates a Casbin role identifier with the standard prefix
// Example: RoleID(RoleAdmin) → "role:admin"
func RoleID(r Role) string {
	return PrefixRole + string(r)
}
