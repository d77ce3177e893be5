package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/wilschoy78/school-mis-api/internal/auth"
)

// AccountStatus gates authentication: only active accounts may log in.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusSuspended AccountStatus = "suspended"
)

// AllStatuses lists every account status.
var AllStatuses = []AccountStatus{StatusActive, StatusInactive, StatusSuspended}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(s string) (AccountStatus, error) {
	st := AccountStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Account is a person who can sign in: staff, teacher, student, parent or administrator.
// Roles live in account_roles and are loaded by the repository.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	Email        string `bun:"email,notnull,unique" json:"email"`
	PasswordHash string `bun:"password_hash,notnull" json:"-"`

	FirstName      string  `bun:"first_name,notnull" json:"firstName"`
	LastName       string  `bun:"last_name,notnull" json:"lastName"`
	MiddleName     *string `bun:"middle_name" json:"middleName,omitempty"`
	Phone          *string `bun:"phone" json:"phone,omitempty"`
	EmployeeID     *string `bun:"employee_id" json:"employeeId,omitempty"`
	StudentID      *string `bun:"student_id" json:"studentId,omitempty"`
	Address        *string `bun:"address" json:"address,omitempty"`
	DateOfBirth    *string `bun:"date_of_birth" json:"dateOfBirth,omitempty"` // YYYY-MM-DD
	ProfilePicture *string `bun:"profile_picture" json:"profilePicture,omitempty"`
	Department     *string `bun:"department" json:"department,omitempty"`
	Position       *string `bun:"position" json:"position,omitempty"`

	Status             AccountStatus `bun:"status,notnull" json:"status"`
	MustChangePassword bool          `bun:"must_change_password,notnull" json:"mustChangePassword"`

	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
	LastLoginAt *time.Time `bun:"last_login_at" json:"lastLoginAt,omitempty"`

	Roles auth.RoleSet `bun:"-" json:"roles"`

	password auth.PasswordChange
}

// SetPassword records a new plaintext password. The repository hashes it on
// Create and never otherwise touches PasswordHash.
func (a *Account) SetPassword(plaintext string) {
	a.password.Set(plaintext)
}

// PasswordPending reports whether SetPassword was called since the last save.
func (a *Account) PasswordPending() bool {
	return a.password.Pending()
}

// ApplyPasswordChange hashes a pending password into PasswordHash.
func (a *Account) ApplyPasswordChange() error {
	hash, changed, err := a.password.Apply()
	if err != nil {
		return err
	}
	if changed {
		a.PasswordHash = hash
	}
	return nil
}

// CheckPassword verifies plaintext against the stored hash.
func (a *Account) CheckPassword(plaintext string) bool {
	return auth.VerifyPassword(plaintext, a.PasswordHash)
}

// IsActive reports whether the account may authenticate.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// ExcludesRole reports whether the account lacks r.
func (a *Account) ExcludesRole(r auth.Role) bool {
	return a.Roles.Excludes(r)
}

// RoleList returns the account's roles sorted by name.
func (a *Account) RoleList() []auth.Role {
	return a.Roles.Slice()
}

// FullName joins first, middle and last names.
func (a *Account) FullName() string {
	parts := []string{a.FirstName}
	if a.MiddleName != nil && *a.MiddleName != "" {
		parts = append(parts, *a.MiddleName)
	}
	parts = append(parts, a.LastName)
	return strings.Join(parts, " ")
}

// AccountRole is one membership row of an account's role set.
type AccountRole struct {
	bun.BaseModel `bun:"table:account_roles,alias:ar"`

	AccountID int64     `bun:"account_id,pk"`
	Role      auth.Role `bun:"role,pk"`
}

// RoleRows expands the account's role set into join-table rows.
func (a *Account) RoleRows() []AccountRole {
	roles := a.Roles.Slice()
	rows := make([]AccountRole, len(roles))
	for i, r := range roles {
		rows[i] = AccountRole{AccountID: a.ID, Role: r}
	}
	return rows
}
