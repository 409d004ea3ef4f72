package settlements

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
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

func (r *PGRepository) GroupExists(ctx context.Context, groupID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM groups WHERE id = $1)", groupID).Scan(&exists)
	return exists, err
}

func (r *PGRepository) MemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT user_id FROM memberships WHERE group_id = $1 ORDER BY joined_at ASC", groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// BilateralDebt computes how much debtor currently owes creditor:
// what the debtor owes from the creditor's active expenses, minus the
// reverse obligation, minus payments already made, plus payments received.
// Never negative; a creditor in surplus owes nothing back through this
// query.
func (r *PGRepository) BilateralDebt(ctx context.Context, groupID, debtorID, creditorID int64) (decimal.Decimal, error) {
	var raw string
	err := r.pool.QueryRow(ctx, `
		SELECT GREATEST(
			COALESCE((
				SELECT SUM(s.amount)
				FROM splits s
				JOIN expenses e ON s.expense_id = e.id
				WHERE e.group_id = $1 AND e.deleted_at IS NULL
				  AND s.user_id = $2 AND e.paid_by_user_id = $3
			), 0)
			- COALESCE((
				SELECT SUM(s.amount)
				FROM splits s
				JOIN expenses e ON s.expense_id = e.id
				WHERE e.group_id = $1 AND e.deleted_at IS NULL
				  AND s.user_id = $3 AND e.paid_by_user_id = $2
			), 0)
			- COALESCE((
				SELECT SUM(amount) FROM settlements
				WHERE group_id = $1 AND paid_by_user_id = $2 AND paid_to_user_id = $3
			), 0)
			+ COALESCE((
				SELECT SUM(amount) FROM settlements
				WHERE group_id = $1 AND paid_by_user_id = $3 AND paid_to_user_id = $2
			), 0),
			0
		)::text`, groupID, debtorID, creditorID).Scan(&raw)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (r *PGRepository) Insert(ctx context.Context, s *Settlement) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO settlements (group_id, paid_by_user_id, paid_to_user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		s.GroupID, s.PaidByUserID, s.PaidToUserID, s.Amount.StringFixed(2), s.CreatedAt,
	).Scan(&s.ID)
}

func (r *PGRepository) ListByGroup(ctx context.Context, groupID int64) ([]Settlement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, group_id, paid_by_user_id, paid_to_user_id, amount::text, created_at
		FROM settlements
		WHERE group_id = $1
		ORDER BY created_at DESC, id DESC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settlements := []Settlement{}
	for rows.Next() {
		var (
			s      Settlement
			amount string
		)
		if err := rows.Scan(&s.ID, &s.GroupID, &s.PaidByUserID, &s.PaidToUserID, &amount, &s.CreatedAt); err != nil {
			return nil, err
		}
		if s.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}
