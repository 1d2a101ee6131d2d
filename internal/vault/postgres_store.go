package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmeza44/team-vault-sub000/internal/audit"
)

const credentialColumns = `id, owner_id, name, encrypted_secret, username, description,
	       category, url, tags, risk_level, expiration_date, last_rotated,
	       created_at, updated_at`

// PostgresStore implements Store using pgxpool. All multi-row writes run
// inside pgx.BeginFunc transactions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &PostgresStore{pool: pool}
}

// CreateCredential inserts a credential row and its audit entry in one
// transaction.
func (s *PostgresStore) CreateCredential(ctx context.Context, c *Credential, e *audit.Entry) error {
	if c.RiskLevel == "" {
		c.RiskLevel = RiskMedium
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO credentials (owner_id, name, encrypted_secret, username,
			                         description, category, url, tags, risk_level,
			                         expiration_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at`

		err := tx.QueryRow(ctx, query,
			c.OwnerID, c.Name, c.EncryptedSecret, c.Username,
			c.Description, c.Category, c.URL, c.Tags, c.RiskLevel,
			c.ExpirationDate,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting credential: %w", err)
		}

		e.CredentialID = &c.ID
		return audit.Insert(ctx, tx, e)
	})
}

// GetCredential retrieves a single credential by its UUID.
func (s *PostgresStore) GetCredential(ctx context.Context, id uuid.UUID) (*Credential, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM credentials
		WHERE id = $1`, credentialColumns)

	var c Credential
	err := s.pool.QueryRow(ctx, query, id).Scan(scanTargets(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("querying credential: %w", err)
	}

	return &c, nil
}

// ListAccessible retrieves the credentials a principal owns or holds a live
// share on, directly or through one of the given teams.
func (s *PostgresStore) ListAccessible(ctx context.Context, userID uuid.UUID, teamIDs []uuid.UUID, now time.Time) ([]Credential, error) {
	if teamIDs == nil {
		teamIDs = []uuid.UUID{}
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT %s
		FROM credentials c
		LEFT JOIN shared_credentials s ON s.credential_id = c.id
		WHERE c.owner_id = $1
		   OR (s.shared_with_user_id = $1 AND (s.expires_at IS NULL OR s.expires_at > $3))
		   OR (s.shared_with_team_id = ANY($2) AND (s.expires_at IS NULL OR s.expires_at > $3))
		ORDER BY c.created_at DESC`,
		prefixColumns("c"))

	return s.listCredentials(ctx, query, userID, teamIDs, now)
}

// ListAll retrieves every credential. Reserved for the global admin path.
func (s *PostgresStore) ListAll(ctx context.Context) ([]Credential, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM credentials
		ORDER BY created_at DESC`, credentialColumns)

	return s.listCredentials(ctx, query)
}

// UpdateCredential applies partial field updates and writes the audit entry
// in one transaction. A non-nil encryptedSecret replaces the stored blob and
// stamps last_rotated.
func (s *PostgresStore) UpdateCredential(ctx context.Context, id uuid.UUID, fields UpdateFields, encryptedSecret *string, rotatedAt *time.Time, e *audit.Entry) (*Credential, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	addSet := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if fields.Name != nil {
		addSet("name", *fields.Name)
	}
	if fields.Username != nil {
		addSet("username", *fields.Username)
	}
	if fields.Description != nil {
		addSet("description", *fields.Description)
	}
	if fields.Category != nil {
		addSet("category", *fields.Category)
	}
	if fields.URL != nil {
		addSet("url", *fields.URL)
	}
	if fields.Tags != nil {
		addSet("tags", fields.Tags)
	}
	if fields.RiskLevel != nil {
		addSet("risk_level", *fields.RiskLevel)
	}
	if fields.ExpirationDate != nil {
		addSet("expiration_date", *fields.ExpirationDate)
	}
	if encryptedSecret != nil {
		addSet("encrypted_secret", *encryptedSecret)
		addSet("last_rotated", rotatedAt)
	}

	if len(setClauses) == 0 {
		return s.GetCredential(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE credentials
		SET %s
		WHERE id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, credentialColumns)

	var c Credential
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query, args...).Scan(scanTargets(&c)...)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCredentialNotFound
			}
			return fmt.Errorf("updating credential: %w", err)
		}

		e.CredentialID = &c.ID
		return audit.Insert(ctx, tx, e)
	})
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// DeleteCredentialCascade removes all shares, then all one-time links, then
// the credential itself, then writes the audit entry — four steps in one
// transaction so a failure leaves no orphaned rows.
func (s *PostgresStore) DeleteCredentialCascade(ctx context.Context, id uuid.UUID, e *audit.Entry) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM shared_credentials WHERE credential_id = $1`, id); err != nil {
			return fmt.Errorf("deleting shares: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM one_time_links WHERE credential_id = $1`, id); err != nil {
			return fmt.Errorf("deleting one-time links: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting credential: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrCredentialNotFound
		}

		return audit.Insert(ctx, tx, e)
	})
}

// ListShares retrieves all share rows for a credential, including expired
// ones; expiry is an authorization concern, not a storage one.
func (s *PostgresStore) ListShares(ctx context.Context, credentialID uuid.UUID) ([]SharedCredential, error) {
	query := `
		SELECT id, credential_id, shared_with_user_id, shared_with_team_id,
		       access_level, created_by_id, expires_at, created_at
		FROM shared_credentials
		WHERE credential_id = $1
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, credentialID)
	if err != nil {
		return nil, fmt.Errorf("listing shares: %w", err)
	}
	defer rows.Close()

	var shares []SharedCredential
	for rows.Next() {
		var sc SharedCredential
		err := rows.Scan(&sc.ID, &sc.CredentialID, &sc.SharedWithUserID, &sc.SharedWithTeamID,
			&sc.AccessLevel, &sc.CreatedByID, &sc.ExpiresAt, &sc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning share row: %w", err)
		}
		shares = append(shares, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating share rows: %w", err)
	}

	if shares == nil {
		shares = []SharedCredential{}
	}

	return shares, nil
}

// ReplaceShares swaps the full share set of a credential for the given rows:
// recipients omitted from the new set are revoked. Delete, inserts, and the
// audit entry commit together.
func (s *PostgresStore) ReplaceShares(ctx context.Context, credentialID uuid.UUID, shares []SharedCredential, e *audit.Entry) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM credentials WHERE id = $1 FOR UPDATE`, credentialID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCredentialNotFound
			}
			return fmt.Errorf("locking credential: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM shared_credentials WHERE credential_id = $1`, credentialID); err != nil {
			return fmt.Errorf("clearing shares: %w", err)
		}

		for i := range shares {
			sc := &shares[i]
			query := `
				INSERT INTO shared_credentials (credential_id, shared_with_user_id,
				                                shared_with_team_id, access_level,
				                                created_by_id, expires_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id, created_at`

			err := tx.QueryRow(ctx, query,
				credentialID, sc.SharedWithUserID, sc.SharedWithTeamID,
				sc.AccessLevel, sc.CreatedByID, sc.ExpiresAt,
			).Scan(&sc.ID, &sc.CreatedAt)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) {
					switch pgErr.Code {
					case "23505":
						return ErrDuplicateShare
					case "23503", "23514":
						return ErrInvalidShareTarget
					}
				}
				return fmt.Errorf("inserting share: %w", err)
			}
			sc.CredentialID = credentialID
		}

		e.CredentialID = &credentialID
		return audit.Insert(ctx, tx, e)
	})
}

// DeleteShare removes one share row, verifying it belongs to the credential.
func (s *PostgresStore) DeleteShare(ctx context.Context, credentialID, shareID uuid.UUID, e *audit.Entry) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			DELETE FROM shared_credentials
			WHERE id = $1 AND credential_id = $2`,
			shareID, credentialID)
		if err != nil {
			return fmt.Errorf("deleting share: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrShareNotFound
		}

		e.CredentialID = &credentialID
		return audit.Insert(ctx, tx, e)
	})
}

// CreateOneTimeLink inserts a link row and its audit entry in one transaction.
func (s *PostgresStore) CreateOneTimeLink(ctx context.Context, l *OneTimeLink, e *audit.Entry) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO one_time_links (credential_id, token, access_level,
			                            created_by_id, expires_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`

		err := tx.QueryRow(ctx, query,
			l.CredentialID, l.Token, l.AccessLevel, l.CreatedByID, l.ExpiresAt,
		).Scan(&l.ID, &l.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return ErrCredentialNotFound
			}
			return fmt.Errorf("inserting one-time link: %w", err)
		}

		e.CredentialID = &l.CredentialID
		return audit.Insert(ctx, tx, e)
	})
}

// RedeemOneTimeLink consumes a link. The row is locked while usedAt is
// checked and set, so two concurrent redemptions of the same token cannot
// both succeed. Unknown, expired, and already-used tokens are reported
// identically as ErrLinkNotFound. The redemption audit entry commits in the
// same transaction, attributed to the link's creator.
func (s *PostgresStore) RedeemOneTimeLink(ctx context.Context, token string, now time.Time) (*OneTimeLink, error) {
	var link OneTimeLink
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query := `
			SELECT id, credential_id, token, access_level, created_by_id,
			       expires_at, used_at, created_at
			FROM one_time_links
			WHERE token = $1
			FOR UPDATE`

		err := tx.QueryRow(ctx, query, token).Scan(
			&link.ID, &link.CredentialID, &link.Token, &link.AccessLevel,
			&link.CreatedByID, &link.ExpiresAt, &link.UsedAt, &link.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLinkNotFound
			}
			return fmt.Errorf("querying one-time link: %w", err)
		}

		if link.UsedAt != nil || !link.ExpiresAt.After(now) {
			return ErrLinkNotFound
		}

		if _, err := tx.Exec(ctx, `UPDATE one_time_links SET used_at = $1 WHERE id = $2`, now, link.ID); err != nil {
			return fmt.Errorf("marking link used: %w", err)
		}
		link.UsedAt = &now

		return audit.Insert(ctx, tx, &audit.Entry{
			UserID:       link.CreatedByID,
			CredentialID: &link.CredentialID,
			Action:       audit.ActionRedeemOneTimeLink,
			Details:      map[string]any{"linkId": link.ID.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (s *PostgresStore) listCredentials(ctx context.Context, query string, args ...any) ([]Credential, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer rows.Close()

	var credentials []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(scanTargets(&c)...); err != nil {
			return nil, fmt.Errorf("scanning credential row: %w", err)
		}
		credentials = append(credentials, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credential rows: %w", err)
	}

	if credentials == nil {
		credentials = []Credential{}
	}

	return credentials, nil
}

func scanTargets(c *Credential) []any {
	return []any{
		&c.ID, &c.OwnerID, &c.Name, &c.EncryptedSecret, &c.Username, &c.Description,
		&c.Category, &c.URL, &c.Tags, &c.RiskLevel, &c.ExpirationDate, &c.LastRotated,
		&c.CreatedAt, &c.UpdatedAt,
	}
}

func prefixColumns(alias string) string {
	cols := strings.Split(credentialColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}
