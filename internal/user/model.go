package user

import (
	"time"

	"github.com/google/uuid"
)

// Role is the global role of a user.
type Role string

const (
	RoleUser        Role = "USER"
	RoleTeamAdmin   Role = "TEAM_ADMIN"
	RoleGlobalAdmin Role = "GLOBAL_ADMIN"
)

// User represents a row in the users table. Users are never hard-deleted;
// IsActive is flipped off instead.
type User struct {
	ID        uuid.UUID
	Email     string
	Role      Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsGlobalAdmin reports whether the user holds the global admin override.
func (u *User) IsGlobalAdmin() bool {
	return u.Role == RoleGlobalAdmin
}
