package team

import "errors"

// ErrLastAdmin is returned when demoting or removing a member would leave a
// team with no ADMIN membership.
var ErrLastAdmin = errors.New("team must retain at least one admin")

// CheckDemoteOrRemove decides whether a member holding targetRole may be
// demoted to newRole (or removed, signalled by newRole == ""). adminCount is
// the number of ADMIN memberships the team currently has.
//
// The caller must hold a lock on the team row for the duration of the
// count-then-write sequence; two concurrent demotions that both observe two
// admins would otherwise both succeed and leave zero.
func CheckDemoteOrRemove(targetRole, newRole MembershipRole, adminCount int) error {
	if targetRole != RoleAdmin {
		return nil
	}
	if newRole == RoleAdmin {
		return nil
	}
	if adminCount <= 1 {
		return ErrLastAdmin
	}
	return nil
}
