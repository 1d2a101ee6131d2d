package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is the subset of pgx execution shared by pgxpool.Pool and pgx.Tx,
// letting Insert participate in a caller-owned transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Insert appends one audit entry. Callers recording a multi-row state change
// pass their open transaction so the entry commits or rolls back with it.
func Insert(ctx context.Context, db Execer, e *Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshaling audit details: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO audit_log (user_id, credential_id, action, details)
		VALUES ($1, $2, $3, $4)`,
		e.UserID, e.CredentialID, e.Action, details)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// PostgresRepository provides read access to the audit log.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a read-side repository over the audit log.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ListByCredential retrieves entries for one credential, newest first.
func (r *PostgresRepository) ListByCredential(ctx context.Context, credentialID uuid.UUID, limit int) ([]Entry, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, user_id, credential_id, action, details, created_at
		FROM audit_log
		WHERE credential_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, credentialID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		err := rows.Scan(&e.ID, &e.UserID, &e.CredentialID, &e.Action, &details, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling audit details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return entries, nil
}
