package vault

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmeza44/team-vault-sub000/internal/team"
	"github.com/jmeza44/team-vault-sub000/internal/user"
)

// shareLevel is the effective access a principal derives from share rows.
type shareLevel int

const (
	levelNone shareLevel = iota
	levelRead
	levelWrite
)

// Resolve computes the permissions a principal holds over a credential. It is
// a pure function of its inputs: the store snapshot is passed in as the
// credential's share rows and the principal's team memberships, and now is
// the clock reading used for share expiry.
//
// Resolution order: global admin wins everything; then ownership; then the
// effective share level merged across direct and team grants, where the
// highest level of any live grant applies (union, never intersection).
// Delete is never granted by a share.
func Resolve(principal *user.User, cred *Credential, shares []SharedCredential, memberships []team.Membership, now time.Time) PermissionSet {
	if principal.IsGlobalAdmin() {
		return PermissionSet{CanView: true, CanEdit: true, CanDelete: true, CanShare: true}
	}

	if cred.OwnerID == principal.ID {
		return PermissionSet{CanView: true, CanEdit: true, CanDelete: true, CanShare: true}
	}

	teamIDs := make(map[uuid.UUID]bool, len(memberships))
	for _, m := range memberships {
		teamIDs[m.TeamID] = true
	}

	level := levelNone
	for _, s := range shares {
		if s.CredentialID != cred.ID {
			continue
		}
		if !appliesTo(&s, principal.ID, teamIDs) {
			continue
		}
		if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			continue
		}
		if s.AccessLevel == AccessWrite {
			level = levelWrite
			break
		}
		level = levelRead
	}

	switch level {
	case levelWrite:
		return PermissionSet{CanView: true, CanEdit: true, CanShare: true}
	case levelRead:
		return PermissionSet{CanView: true}
	default:
		return PermissionSet{}
	}
}

func appliesTo(s *SharedCredential, userID uuid.UUID, teamIDs map[uuid.UUID]bool) bool {
	if s.SharedWithUserID != nil && *s.SharedWithUserID == userID {
		return true
	}
	if s.SharedWithTeamID != nil && teamIDs[*s.SharedWithTeamID] {
		return true
	}
	return false
}
