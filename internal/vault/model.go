package vault

import (
	"time"

	"github.com/google/uuid"
)

// AccessLevel is the strength of a share grant.
type AccessLevel string

const (
	AccessRead  AccessLevel = "READ"
	AccessWrite AccessLevel = "WRITE"
)

// RiskLevel classifies how sensitive a credential is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Credential represents a row in the credentials table. The secret is held
// only as the cipher blob; plaintext never reaches the store. OwnerID is
// immutable after creation.
type Credential struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Name            string
	EncryptedSecret string
	Username        *string
	Description     *string
	Category        *string
	URL             *string
	Tags            []string
	RiskLevel       RiskLevel
	ExpirationDate  *time.Time
	LastRotated     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SharedCredential represents a row in the shared_credentials table. Exactly
// one of SharedWithUserID and SharedWithTeamID is set. A share past its
// ExpiresAt grants nothing but stays on record until replaced.
type SharedCredential struct {
	ID               uuid.UUID
	CredentialID     uuid.UUID
	SharedWithUserID *uuid.UUID
	SharedWithTeamID *uuid.UUID
	AccessLevel      AccessLevel
	CreatedByID      uuid.UUID
	ExpiresAt        *time.Time
	CreatedAt        time.Time
}

// OneTimeLink represents a row in the one_time_links table. Once UsedAt is
// set, every later redemption attempt fails regardless of expiry.
type OneTimeLink struct {
	ID           uuid.UUID
	CredentialID uuid.UUID
	Token        string
	AccessLevel  AccessLevel
	CreatedByID  uuid.UUID
	ExpiresAt    time.Time
	UsedAt       *time.Time
	CreatedAt    time.Time
}

// PermissionSet is the outcome of access resolution for one
// (principal, credential) pair.
type PermissionSet struct {
	CanView   bool
	CanEdit   bool
	CanDelete bool
	CanShare  bool
}

// ShareTarget is one recipient in a share request. Exactly one of UserID and
// TeamID must be set.
type ShareTarget struct {
	UserID      *uuid.UUID
	TeamID      *uuid.UUID
	AccessLevel AccessLevel
	ExpiresAt   *time.Time
}

// CreateFields holds the caller-supplied fields for a new credential.
type CreateFields struct {
	Name           string
	Secret         string
	Username       *string
	Description    *string
	Category       *string
	URL            *string
	Tags           []string
	RiskLevel      RiskLevel
	ExpirationDate *time.Time
}

// UpdateFields holds partial updates to a credential. Nil fields are left
// untouched; OwnerID is not representable here and thus never mutable.
type UpdateFields struct {
	Name           *string
	Secret         *string
	Username       *string
	Description    *string
	Category       *string
	URL            *string
	Tags           []string
	RiskLevel      *RiskLevel
	ExpirationDate *time.Time
}
