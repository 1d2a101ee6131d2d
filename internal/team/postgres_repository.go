package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new team together with the founding ADMIN membership for
// its creator, in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, t *Team) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO teams (name, created_by_id)
			VALUES ($1, $2)
			RETURNING id, created_at, updated_at`

		err := tx.QueryRow(ctx, query, t.Name, t.CreatedByID).
			Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateTeamName
			}
			return fmt.Errorf("inserting team: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO team_memberships (team_id, user_id, role)
			VALUES ($1, $2, $3)`,
			t.ID, t.CreatedByID, RoleAdmin)
		if err != nil {
			return fmt.Errorf("inserting founder membership: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a single team by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Team, error) {
	query := `
		SELECT id, name, created_by_id, created_at, updated_at
		FROM teams
		WHERE id = $1`

	var t Team
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&t.ID, &t.Name, &t.CreatedByID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return &t, nil
}

// Delete removes a team and all of its memberships.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM team_memberships WHERE team_id = $1`, id); err != nil {
			return fmt.Errorf("deleting memberships: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting team: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrTeamNotFound
		}

		return nil
	})
}

// AddMember inserts a membership row.
func (r *PostgresRepository) AddMember(ctx context.Context, m *Membership) error {
	if m.Role == "" {
		m.Role = RoleMember
	}

	query := `
		INSERT INTO team_memberships (team_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, m.TeamID, m.UserID, m.Role).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrDuplicateMembership
			case "23503":
				return ErrTeamNotFound
			}
		}
		return fmt.Errorf("inserting membership: %w", err)
	}

	return nil
}

// ListMembers retrieves all memberships of a team.
func (r *PostgresRepository) ListMembers(ctx context.Context, teamID uuid.UUID) ([]Membership, error) {
	query := `
		SELECT id, team_id, user_id, role, created_at
		FROM team_memberships
		WHERE team_id = $1
		ORDER BY created_at ASC`

	return r.list(ctx, query, teamID)
}

// ListForUser retrieves all memberships held by a user.
func (r *PostgresRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	query := `
		SELECT id, team_id, user_id, role, created_at
		FROM team_memberships
		WHERE user_id = $1
		ORDER BY created_at ASC`

	return r.list(ctx, query, userID)
}

// ChangeMemberRole updates a membership role. The team row is locked for the
// duration of the transaction so the admin count cannot change between the
// guard check and the write.
func (r *PostgresRepository) ChangeMemberRole(ctx context.Context, teamID, userID uuid.UUID, role MembershipRole) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		targetRole, adminCount, err := lockAndCount(ctx, tx, teamID, userID)
		if err != nil {
			return err
		}

		if err := CheckDemoteOrRemove(targetRole, role, adminCount); err != nil {
			return err
		}

		result, err := tx.Exec(ctx, `
			UPDATE team_memberships
			SET role = $1
			WHERE team_id = $2 AND user_id = $3`,
			role, teamID, userID)
		if err != nil {
			return fmt.Errorf("updating membership role: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrMembershipNotFound
		}

		return nil
	})
}

// RemoveMember deletes a membership row under the same team lock and guard
// as ChangeMemberRole.
func (r *PostgresRepository) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		targetRole, adminCount, err := lockAndCount(ctx, tx, teamID, userID)
		if err != nil {
			return err
		}

		if err := CheckDemoteOrRemove(targetRole, "", adminCount); err != nil {
			return err
		}

		result, err := tx.Exec(ctx, `
			DELETE FROM team_memberships
			WHERE team_id = $1 AND user_id = $2`,
			teamID, userID)
		if err != nil {
			return fmt.Errorf("deleting membership: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrMembershipNotFound
		}

		return nil
	})
}

// lockAndCount takes a row lock on the team, then returns the target user's
// current role and the team's ADMIN membership count.
func lockAndCount(ctx context.Context, tx pgx.Tx, teamID, userID uuid.UUID) (MembershipRole, int, error) {
	var teamExists uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&teamExists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, ErrTeamNotFound
		}
		return "", 0, fmt.Errorf("locking team: %w", err)
	}

	var targetRole MembershipRole
	err = tx.QueryRow(ctx, `
		SELECT role FROM team_memberships
		WHERE team_id = $1 AND user_id = $2`,
		teamID, userID).Scan(&targetRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, ErrMembershipNotFound
		}
		return "", 0, fmt.Errorf("querying target membership: %w", err)
	}

	var adminCount int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM team_memberships
		WHERE team_id = $1 AND role = $2`,
		teamID, RoleAdmin).Scan(&adminCount)
	if err != nil {
		return "", 0, fmt.Errorf("counting admins: %w", err)
	}

	return targetRole, adminCount, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]Membership, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	var memberships []Membership
	for rows.Next() {
		var m Membership
		err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning membership row: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating membership rows: %w", err)
	}

	if memberships == nil {
		memberships = []Membership{}
	}

	return memberships, nil
}
