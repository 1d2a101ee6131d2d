package vault

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jmeza44/team-vault-sub000/internal/audit"
)

// ErrCredentialNotFound is returned when a credential row is absent or the
// principal may not view it. The two cases are deliberately indistinguishable
// so existence is never leaked.
var ErrCredentialNotFound = errors.New("credential not found")

// ErrShareNotFound is returned when a share row is absent or belongs to a
// different credential.
var ErrShareNotFound = errors.New("share not found")

// ErrLinkNotFound is returned when a one-time link token is unknown, expired,
// or already redeemed.
var ErrLinkNotFound = errors.New("one-time link not found")

// ErrAccessDenied is returned when the credential is visible to the principal
// but the requested sub-operation is refused.
var ErrAccessDenied = errors.New("access denied")

// ErrInvalidShareTarget is returned when a share target does not name exactly
// one of a user or a team.
var ErrInvalidShareTarget = errors.New("share target must name exactly one of user or team")

// ErrDuplicateShare is returned when two share targets in one request name
// the same recipient.
var ErrDuplicateShare = errors.New("duplicate share target")

// Store is the persistence boundary of the vault core. Methods that take an
// audit entry perform the row writes and the audit insert in one transaction;
// a failed operation therefore leaves no audit trace.
type Store interface {
	CreateCredential(ctx context.Context, c *Credential, e *audit.Entry) error
	GetCredential(ctx context.Context, id uuid.UUID) (*Credential, error)
	ListAccessible(ctx context.Context, userID uuid.UUID, teamIDs []uuid.UUID, now time.Time) ([]Credential, error)
	ListAll(ctx context.Context) ([]Credential, error)
	UpdateCredential(ctx context.Context, id uuid.UUID, fields UpdateFields, encryptedSecret *string, rotatedAt *time.Time, e *audit.Entry) (*Credential, error)
	DeleteCredentialCascade(ctx context.Context, id uuid.UUID, e *audit.Entry) error

	ListShares(ctx context.Context, credentialID uuid.UUID) ([]SharedCredential, error)
	ReplaceShares(ctx context.Context, credentialID uuid.UUID, shares []SharedCredential, e *audit.Entry) error
	DeleteShare(ctx context.Context, credentialID, shareID uuid.UUID, e *audit.Entry) error

	CreateOneTimeLink(ctx context.Context, l *OneTimeLink, e *audit.Entry) error
	RedeemOneTimeLink(ctx context.Context, token string, now time.Time) (*OneTimeLink, error)
}
