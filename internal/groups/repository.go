package groups

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splitledger/splitledger/internal/platform/db"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// Insert creates the group and enrolls the owner in one transaction.
func (r *PGRepository) Insert(ctx context.Context, g *Group) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO groups (name, owner_user_id, created_at)
			VALUES ($1, $2, $3)
			RETURNING id`,
			g.Name, g.OwnerUserID, g.CreatedAt,
		).Scan(&g.ID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			"INSERT INTO memberships (group_id, user_id, joined_at) VALUES ($1, $2, $3)",
			g.ID, g.OwnerUserID, g.CreatedAt)
		return err
	})
}

func (r *PGRepository) Get(ctx context.Context, groupID int64) (*Group, error) {
	var g Group
	err := r.pool.QueryRow(ctx,
		"SELECT id, name, owner_user_id, created_at FROM groups WHERE id = $1", groupID,
	).Scan(&g.ID, &g.Name, &g.OwnerUserID, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *PGRepository) ListForUser(ctx context.Context, userID int64) ([]Group, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.id, g.name, g.owner_user_id, g.created_at
		FROM groups g
		JOIN memberships m ON g.id = m.group_id
		WHERE m.user_id = $1
		ORDER BY g.created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerUserID, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *PGRepository) Members(ctx context.Context, groupID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.email, m.joined_at
		FROM users u
		JOIN memberships m ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *PGRepository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM memberships WHERE group_id = $1 AND user_id = $2)",
		groupID, userID).Scan(&ok)
	return ok, err
}

func (r *PGRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", userID).Scan(&ok)
	return ok, err
}

func (r *PGRepository) AddMember(ctx context.Context, groupID, userID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO memberships (group_id, user_id, joined_at) VALUES ($1, $2, $3)",
		groupID, userID, at)
	return err
}

func (r *PGRepository) RemoveMember(ctx context.Context, groupID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		"DELETE FROM memberships WHERE group_id = $1 AND user_id = $2", groupID, userID)
	return err
}
