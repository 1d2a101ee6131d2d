package team

import (
	"time"

	"github.com/google/uuid"
)

// MembershipRole is the role a user holds within a team.
type MembershipRole string

const (
	RoleMember MembershipRole = "MEMBER"
	RoleAdmin  MembershipRole = "ADMIN"
)

// Team represents a row in the teams table. CreatedByID is the founding
// user and is immutable.
type Team struct {
	ID          uuid.UUID
	Name        string
	CreatedByID uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Membership represents a row in the team_memberships table. The
// (user_id, team_id) pair is unique.
type Membership struct {
	ID        uuid.UUID
	TeamID    uuid.UUID
	UserID    uuid.UUID
	Role      MembershipRole
	CreatedAt time.Time
}
