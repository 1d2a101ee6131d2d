package team

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTeamNotFound is returned when a team record is not found.
var ErrTeamNotFound = errors.New("team not found")

// ErrDuplicateTeamName is returned when a team with the same name already exists.
var ErrDuplicateTeamName = errors.New("team name already exists")

// ErrMembershipNotFound is returned when a membership record is not found.
var ErrMembershipNotFound = errors.New("membership not found")

// ErrDuplicateMembership is returned when the user is already a member of the team.
var ErrDuplicateMembership = errors.New("user is already a member of the team")

// Repository provides operations on the teams and team_memberships tables.
//
// ChangeMemberRole and RemoveMember enforce the last-admin invariant inside a
// single transaction holding a lock on the team row, and return ErrLastAdmin
// when the change would leave the team without an ADMIN.
type Repository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*Team, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddMember(ctx context.Context, m *Membership) error
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]Membership, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Membership, error)
	ChangeMemberRole(ctx context.Context, teamID, userID uuid.UUID, role MembershipRole) error
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error
}
