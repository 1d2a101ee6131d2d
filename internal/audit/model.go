package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies the completed state change an audit entry records.
type Action string

const (
	ActionCreateCredential  Action = "CREATE_CREDENTIAL"
	ActionUpdateCredential  Action = "UPDATE_CREDENTIAL"
	ActionDeleteCredential  Action = "DELETE_CREDENTIAL"
	ActionShareCredential   Action = "SHARE_CREDENTIAL"
	ActionUnshareCredential Action = "UNSHARE_CREDENTIAL"
	ActionCreateOneTimeLink Action = "CREATE_ONE_TIME_LINK"
	ActionRedeemOneTimeLink Action = "REDEEM_ONE_TIME_LINK"
)

// Entry represents a row in the audit_log table. The table is append-only:
// entries are written in the same transaction as the state change they record
// and are never updated or deleted.
type Entry struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	CredentialID *uuid.UUID
	Action       Action
	Details      map[string]any
	CreatedAt    time.Time
}
