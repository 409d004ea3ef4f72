package expenses

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/platform/db"
)

// PGRepository implements Repository using PostgreSQL. Writes that touch an
// expense and its splits run in one transaction so the split-sum invariant
// can never be observed half-applied.
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

func (r *PGRepository) GroupOwnerID(ctx context.Context, groupID int64) (int64, error) {
	var ownerID int64
	err := r.pool.QueryRow(ctx, "SELECT owner_user_id FROM groups WHERE id = $1", groupID).Scan(&ownerID)
	return ownerID, err
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

// Insert writes the expense row and its splits atomically, populating the
// generated IDs on the passed struct.
func (r *PGRepository) Insert(ctx context.Context, e *Expense) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO expenses (group_id, paid_by_user_id, description, amount, split_mode, category, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			e.GroupID, e.PaidByUserID, e.Description, e.Amount.StringFixed(2),
			string(e.SplitMode), string(e.Category), e.CreatedAt,
		).Scan(&e.ID)
		if err != nil {
			return err
		}
		return insertSplits(ctx, tx, e)
	})
}

func insertSplits(ctx context.Context, tx pgx.Tx, e *Expense) error {
	for i := range e.Splits {
		e.Splits[i].ExpenseID = e.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO splits (expense_id, user_id, amount)
			VALUES ($1, $2, $3)
			RETURNING id`,
			e.ID, e.Splits[i].UserID, e.Splits[i].Amount.StringFixed(2),
		).Scan(&e.Splits[i].ID)
		if err != nil {
			return err
		}
	}
	return nil
}

const expenseColumns = `
	id, group_id, paid_by_user_id, description, amount::text,
	split_mode, category, created_at, updated_at, deleted_at`

func scanExpense(row pgx.Row) (*Expense, error) {
	var (
		e         Expense
		amount    string
		splitMode string
		category  string
	)
	err := row.Scan(&e.ID, &e.GroupID, &e.PaidByUserID, &e.Description, &amount,
		&splitMode, &category, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt)
	if err != nil {
		return nil, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	e.SplitMode = SplitMode(splitMode)
	e.Category = Category(category)
	return &e, nil
}

// ListActive returns non-deleted expenses newest first, splits included.
func (r *PGRepository) ListActive(ctx context.Context, groupID int64) ([]Expense, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+expenseColumns+` FROM expenses
		WHERE group_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []Expense
	byID := make(map[int64]int)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		e.Splits = []Split{}
		byID[e.ID] = len(expenses)
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return []Expense{}, nil
	}

	splitRows, err := r.pool.Query(ctx, `
		SELECT s.id, s.expense_id, s.user_id, s.amount::text
		FROM splits s
		JOIN expenses e ON s.expense_id = e.id
		WHERE e.group_id = $1 AND e.deleted_at IS NULL
		ORDER BY s.id ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var (
			s      Split
			amount string
		)
		if err := splitRows.Scan(&s.ID, &s.ExpenseID, &s.UserID, &amount); err != nil {
			return nil, err
		}
		if s.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if idx, ok := byID[s.ExpenseID]; ok {
			expenses[idx].Splits = append(expenses[idx].Splits, s)
		}
	}
	return expenses, splitRows.Err()
}

// Get returns an expense by ID regardless of deletion state, or nil when no
// such row exists.
func (r *PGRepository) Get(ctx context.Context, expenseID int64) (*Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = $1", expenseID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		"SELECT id, user_id, amount::text FROM splits WHERE expense_id = $1 ORDER BY id ASC", expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	e.Splits = []Split{}
	for rows.Next() {
		var (
			s      Split
			amount string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &amount); err != nil {
			return nil, err
		}
		if s.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		s.ExpenseID = e.ID
		e.Splits = append(e.Splits, s)
	}
	return e, rows.Err()
}

// Update rewrites the expense row and replaces its splits atomically.
func (r *PGRepository) Update(ctx context.Context, e *Expense) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE expenses
			SET paid_by_user_id = $2, description = $3, amount = $4,
			    split_mode = $5, category = $6, updated_at = $7
			WHERE id = $1`,
			e.ID, e.PaidByUserID, e.Description, e.Amount.StringFixed(2),
			string(e.SplitMode), string(e.Category), e.UpdatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM splits WHERE expense_id = $1", e.ID); err != nil {
			return err
		}
		return insertSplits(ctx, tx, e)
	})
}

// SoftDelete stamps deleted_at once; the guard keeps the first deletion
// timestamp on repeat calls.
func (r *PGRepository) SoftDelete(ctx context.Context, expenseID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE expenses SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL", expenseID, at)
	return err
}
