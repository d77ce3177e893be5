package auth

// Operation names for authorization checks. Each protected route is bound to
// exactly one of these through an Operation value.

// Directory operations
const (
	// UsersList allows listing the account directory
	UsersList = "users:list"

	// UsersStats allows reading directory statistics
	UsersStats = "users:stats"

	// UsersRead allows reading a single account
	UsersRead = "users:read"

	// UsersCreate allows administrative account creation
	UsersCreate = "users:create"

	// UsersUpdate allows profile, email and role changes
	UsersUpdate = "users:update"

	// UsersUpdateStatus allows status transitions
	UsersUpdateStatus = "users:update-status"

	// UsersUpdatePassword allows setting another account's password
	UsersUpdatePassword = "users:update-password"

	// UsersDelete allows hard deletion
	UsersDelete = "users:delete"
)

// Reference data operations (departments, positions)
const (
	// ReferenceRead allows listing and reading departments and positions
	ReferenceRead = "reference:read"

	// ReferenceWrite allows creating, updating and toggling departments and positions
	ReferenceWrite = "reference:write"
)

// Operation declares which roles may perform a named operation. A caller is
// allowed when it holds at least one of RequiredRoles.
type Operation struct {
	Name          string
	RequiredRoles []Role
}

// DefaultOperations is the allow-list table served by the API.
var DefaultOperations = []Operation{
	{Name: UsersList, RequiredRoles: []Role{RoleSuperAdmin, RoleAdmin, RoleRegistrar}},
	{Name: UsersStats, RequiredRoles: []Role{RoleSuperAdmin, RoleAdmin, RoleRegistrar}},
	{Name: UsersRead, RequiredRoles: []Role{RoleSuperAdmin, RoleAdmin, RoleRegistrar}},
	{Name: UsersCreate, RequiredRoles: []Role{RoleSuperAdmin, RoleAdmin}},
	{Name: UsersUpdate, RequiredRoles: []Role{RoleSuperAdmin, RoleAdmin}},
	{Name: UsersUpdateStatus, RequiredRoles: []Role{RoleSuperAdmin, RoleAdmin}},
	{Name: UsersUpdatePassword, RequiredRoles: []Role{RoleSuperAdmin, RoleAdmin}},
	{Name: UsersDelete, RequiredRoles: []Role{RoleSuperAdmin, RoleAdmin}},
	{Name: ReferenceRead, RequiredRoles: []Role{RoleSuperAdmin, RoleAdmin, RoleStaff}},
	{Name: ReferenceWrite, RequiredRoles: []Role{RoleSuperAdmin, RoleAdmin}},
}
