package model

import "time"

// Role is the single role an account holds.  Roles are mutually
// exclusive and compared by exact, case-sensitive value.
type Role string

const (
	RoleAdmin      Role = "admin"      // full management access
	RoleUser       Role = "user"       // browses stores and submits ratings
	RoleStoreOwner Role = "storeOwner" // views the ratings of the store they own
)

// Roles lists every role in declaration order.
var Roles = []Role{RoleAdmin, RoleUser, RoleStoreOwner}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleStoreOwner:
		return true
	}
	return false
}

// ParseRole converts a raw string into a Role.  The second return value
// is false when the string does not name a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// User represents a row of the `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name (20–60 characters).
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password, never serialized.
//	Address      – optional postal address.
//	Role         – admin, user or storeOwner.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Address      *string   `json:"address"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
