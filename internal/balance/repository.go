package balance

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

// activeExpenseFilter is the single sanctioned WHERE fragment for
// balance-related expense queries. Both ActiveExpenses and
// SplitsForActiveExpenses build on it; querying expenses without the
// deleted_at filter in a balance context is forbidden.
func activeExpenseFilter(groupID int64, category string) (string, []any) {
	clause := "e.group_id = $1 AND e.deleted_at IS NULL"
	args := []any{groupID}
	if category != "" {
		clause += " AND e.category = $2"
		args = append(args, category)
	}
	return clause, args
}

// GroupExists reports whether the group row exists.
func (r *PGRepository) GroupExists(ctx context.Context, groupID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM groups WHERE id = $1)", groupID).Scan(&exists)
	return exists, err
}

// Members returns the current members of a group in join order.
func (r *PGRepository) Members(ctx context.Context, groupID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username
		FROM users u
		JOIN memberships m ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Username); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ActiveExpenses returns the non-deleted expenses for a group, optionally
// restricted to one category.
func (r *PGRepository) ActiveExpenses(ctx context.Context, groupID int64, category string) ([]Expense, error) {
	clause, args := activeExpenseFilter(groupID, category)
	rows, err := r.pool.Query(ctx,
		"SELECT e.id, e.paid_by_user_id, e.amount::text FROM expenses e WHERE "+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var (
			e      Expense
			amount string
		)
		if err := rows.Scan(&e.ID, &e.PayerID, &amount); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// SplitsForActiveExpenses returns the splits belonging to the same expense
// set ActiveExpenses selects, via a join that applies the identical filter.
func (r *PGRepository) SplitsForActiveExpenses(ctx context.Context, groupID int64, category string) ([]Split, error) {
	clause, args := activeExpenseFilter(groupID, category)
	rows, err := r.pool.Query(ctx, `
		SELECT s.expense_id, s.user_id, s.amount::text
		FROM splits s
		JOIN expenses e ON s.expense_id = e.id
		WHERE `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var splits []Split
	for rows.Next() {
		var (
			s      Split
			amount string
		)
		if err := rows.Scan(&s.ExpenseID, &s.UserID, &amount); err != nil {
			return nil, err
		}
		if s.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		splits = append(splits, s)
	}
	return splits, rows.Err()
}

// Settlements returns every settlement for a group. Settlements have no
// soft delete.
func (r *PGRepository) Settlements(ctx context.Context, groupID int64) ([]Settlement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT paid_by_user_id, paid_to_user_id, amount::text
		FROM settlements
		WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []Settlement
	for rows.Next() {
		var (
			s      Settlement
			amount string
		)
		if err := rows.Scan(&s.PayerID, &s.RecipientID, &amount); err != nil {
			return nil, err
		}
		if s.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}
