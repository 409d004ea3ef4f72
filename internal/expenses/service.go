package expenses

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/shared"
)

// Repository defines the persistence operations the expense service needs.
type Repository interface {
	GroupExists(ctx context.Context, groupID int64) (bool, error)
	GroupOwnerID(ctx context.Context, groupID int64) (int64, error)
	MemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	Insert(ctx context.Context, e *Expense) error
	ListActive(ctx context.Context, groupID int64) ([]Expense, error)
	Get(ctx context.Context, expenseID int64) (*Expense, error)
	Update(ctx context.Context, e *Expense) error
	SoftDelete(ctx context.Context, expenseID int64, at time.Time) error
}

// SplitInput is one client-provided split line.
type SplitInput struct {
	UserID int64
	Amount decimal.Decimal
}

// CreateInput carries a validated create request.
type CreateInput struct {
	PaidByUserID int64
	Description  string
	Amount       decimal.Decimal
	SplitMode    SplitMode
	Category     Category
	Splits       []SplitInput
}

// EditInput carries a partial update. Nil pointers mean "field absent".
type EditInput struct {
	Description  *string
	Category     *Category
	PaidByUserID *int64
	SplitMode    *SplitMode
	Amount       *decimal.Decimal
	Splits       *[]SplitInput
}

// Service implements expense business rules over a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs an expense Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) requireGroup(ctx context.Context, groupID int64) error {
	exists, err := s.repo.GroupExists(ctx, groupID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.Errorf(shared.CodeGroupNotFound, http.StatusNotFound, "Group %d does not exist.", groupID)
	}
	return nil
}

// requireMember enforces the membership gate: non-members get 403, never
// 404, so a group's existence is not leaked through status codes.
func (s *Service) requireMember(ctx context.Context, groupID, userID int64) ([]int64, error) {
	memberIDs, err := s.repo.MemberIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, id := range memberIDs {
		if id == userID {
			return memberIDs, nil
		}
	}
	return nil, shared.Errorf(shared.CodeForbidden, http.StatusForbidden, "You are not a member of group %d.", groupID)
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func validatePayerIsMember(payerID, groupID int64, memberIDs []int64) error {
	if !contains(memberIDs, payerID) {
		return shared.FieldErrorf(shared.CodePayerNotMember, http.StatusUnprocessableEntity, "paid_by_user_id",
			"User %d is not a member of group %d.", payerID, groupID)
	}
	return nil
}

func validateSplits(splits []SplitInput, amount decimal.Decimal, groupID int64, memberIDs []int64) error {
	if len(splits) == 0 {
		return shared.FieldErrorf(shared.CodeMissingField, http.StatusBadRequest, "splits",
			"Custom split mode requires a non-empty splits array.")
	}

	seen := make(map[int64]bool, len(splits))
	total := decimal.Zero
	for _, sp := range splits {
		if seen[sp.UserID] {
			return shared.FieldErrorf(shared.CodeDuplicateSplitUser, http.StatusBadRequest, "splits",
				"User %d appears more than once in splits.", sp.UserID)
		}
		seen[sp.UserID] = true

		if !contains(memberIDs, sp.UserID) {
			return shared.FieldErrorf(shared.CodeSplitUserNotMember, http.StatusUnprocessableEntity, "splits",
				"User %d is not a member of group %d.", sp.UserID, groupID)
		}
		total = total.Add(sp.Amount)
	}

	if !total.Equal(amount) {
		return shared.FieldErrorf(shared.CodeSplitSumMismatch, http.StatusUnprocessableEntity, "splits",
			"Split amounts (%s) do not equal expense amount (%s).", total, amount)
	}
	return nil
}

func toSplits(inputs []SplitInput) []Split {
	out := make([]Split, len(inputs))
	for i, in := range inputs {
		out[i] = Split{UserID: in.UserID, Amount: in.Amount}
	}
	return out
}

// Create records a new expense with its splits.
//
// In equal mode the server computes the splits across all current group
// members and the client must not send any; in custom mode the client's
// splits are validated against membership and the split-sum rule before
// anything is written.
func (s *Service) Create(ctx context.Context, groupID, callerID int64, in CreateInput) (*Expense, error) {
	if err := s.requireGroup(ctx, groupID); err != nil {
		return nil, err
	}
	memberIDs, err := s.requireMember(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}
	if err := validatePayerIsMember(in.PaidByUserID, groupID, memberIDs); err != nil {
		return nil, err
	}

	var splits []Split
	switch in.SplitMode {
	case SplitModeEqual:
		if len(in.Splits) > 0 {
			return nil, shared.FieldErrorf(shared.CodeSplitsSentForEqualMode, http.StatusBadRequest, "splits",
				"Equal split mode computes splits server-side; do not send a splits array.")
		}
		splits, err = ComputeEqualSplits(in.Amount, memberIDs, in.PaidByUserID)
		if err != nil {
			return nil, err
		}
	default:
		if err := validateSplits(in.Splits, in.Amount, groupID, memberIDs); err != nil {
			return nil, err
		}
		splits = toSplits(in.Splits)
	}

	expense := &Expense{
		GroupID:      groupID,
		PaidByUserID: in.PaidByUserID,
		Description:  in.Description,
		Amount:       in.Amount,
		SplitMode:    in.SplitMode,
		Category:     in.Category,
		CreatedAt:    s.now().UTC(),
		Splits:       splits,
	}
	if err := s.repo.Insert(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// List returns the active expenses of a group, newest first.
func (s *Service) List(ctx context.Context, groupID, callerID int64) ([]Expense, error) {
	if err := s.requireGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	return s.repo.ListActive(ctx, groupID)
}

// Get returns one expense with its splits. Soft-deleted expenses are
// returned too; deleted_at in the payload tells the client the state.
func (s *Service) Get(ctx context.Context, expenseID, callerID int64) (*Expense, error) {
	expense, err := s.fetch(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, expense.GroupID, callerID); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *Service) fetch(ctx context.Context, expenseID int64) (*Expense, error) {
	expense, err := s.repo.Get(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, shared.Errorf(shared.CodeExpenseNotFound, http.StatusNotFound, "Expense %d does not exist.", expenseID)
	}
	return expense, nil
}

// requirePayerOrOwner gates edits and deletes: only the member who fronted
// the money or the group owner may alter the record.
func (s *Service) requirePayerOrOwner(ctx context.Context, expense *Expense, callerID int64, action string) error {
	ownerID, err := s.repo.GroupOwnerID(ctx, expense.GroupID)
	if err != nil {
		return err
	}
	if callerID != expense.PaidByUserID && callerID != ownerID {
		return shared.Errorf(shared.CodeForbidden, http.StatusForbidden,
			"Only the original payer or group owner may %s this expense.", action)
	}
	return nil
}

// Edit partially updates an expense.
//
// Amount and splits travel together in custom mode: changing one without
// the other could break the split-sum invariant, so lone updates are
// rejected. When the effective mode is equal and the amount or mode
// changed, splits are recomputed server-side from the current member list.
func (s *Service) Edit(ctx context.Context, expenseID, callerID int64, in EditInput) (*Expense, error) {
	expense, err := s.fetch(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	memberIDs, err := s.requireMember(ctx, expense.GroupID, callerID)
	if err != nil {
		return nil, err
	}
	if expense.IsDeleted() {
		return nil, shared.Errorf(shared.CodeExpenseDeleted, http.StatusUnprocessableEntity,
			"Expense %d has been deleted and cannot be edited.", expenseID)
	}
	if err := s.requirePayerOrOwner(ctx, expense, callerID, "edit"); err != nil {
		return nil, err
	}

	if in.Description != nil {
		expense.Description = *in.Description
	}
	if in.Category != nil {
		expense.Category = *in.Category
	}
	if in.PaidByUserID != nil {
		if err := validatePayerIsMember(*in.PaidByUserID, expense.GroupID, memberIDs); err != nil {
			return nil, err
		}
		expense.PaidByUserID = *in.PaidByUserID
	}

	effectiveMode := expense.SplitMode
	if in.SplitMode != nil {
		effectiveMode = *in.SplitMode
		expense.SplitMode = *in.SplitMode
	}

	switch {
	case effectiveMode == SplitModeEqual && (in.Amount != nil || in.SplitMode != nil):
		if in.Splits != nil {
			return nil, shared.FieldErrorf(shared.CodeSplitsSentForEqualMode, http.StatusBadRequest, "splits",
				"Equal split mode computes splits server-side; do not send a splits array.")
		}
		if in.Amount != nil {
			expense.Amount = *in.Amount
		}
		splits, err := ComputeEqualSplits(expense.Amount, memberIDs, expense.PaidByUserID)
		if err != nil {
			return nil, err
		}
		expense.Splits = splits

	case in.Amount != nil && in.Splits != nil:
		if err := validateSplits(*in.Splits, *in.Amount, expense.GroupID, memberIDs); err != nil {
			return nil, err
		}
		expense.Amount = *in.Amount
		expense.Splits = toSplits(*in.Splits)

	case in.Amount != nil || in.Splits != nil:
		return nil, shared.FieldErrorf(shared.CodeInvalidField, http.StatusBadRequest, "amount",
			"amount and splits must be provided together for custom split mode.")
	}

	now := s.now().UTC()
	expense.UpdatedAt = &now
	if err := s.repo.Update(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// Delete soft-deletes an expense. Re-deleting an already deleted expense
// succeeds silently: deletion is idempotent.
func (s *Service) Delete(ctx context.Context, expenseID, callerID int64) error {
	expense, err := s.fetch(ctx, expenseID)
	if err != nil {
		return err
	}
	if _, err := s.requireMember(ctx, expense.GroupID, callerID); err != nil {
		return err
	}
	if err := s.requirePayerOrOwner(ctx, expense, callerID, "delete"); err != nil {
		return err
	}
	if expense.IsDeleted() {
		return nil
	}
	return s.repo.SoftDelete(ctx, expenseID, s.now().UTC())
}
