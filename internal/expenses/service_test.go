package expenses

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/splitledger/splitledger/internal/shared"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	groupExists bool
	ownerID     int64
	memberIDs   []int64

	nextID   int64
	expenses map[int64]*Expense
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		groupExists: true,
		ownerID:     1,
		memberIDs:   []int64{1, 2, 3},
		nextID:      100,
		expenses:    map[int64]*Expense{},
	}
}

func (f *fakeRepo) GroupExists(_ context.Context, _ int64) (bool, error) { return f.groupExists, nil }
func (f *fakeRepo) GroupOwnerID(_ context.Context, _ int64) (int64, error) {
	return f.ownerID, nil
}
func (f *fakeRepo) MemberIDs(_ context.Context, _ int64) ([]int64, error) { return f.memberIDs, nil }

func (f *fakeRepo) Insert(_ context.Context, e *Expense) error {
	f.nextID++
	e.ID = f.nextID
	for i := range e.Splits {
		e.Splits[i].ExpenseID = e.ID
	}
	clone := *e
	f.expenses[e.ID] = &clone
	return nil
}

func (f *fakeRepo) ListActive(_ context.Context, groupID int64) ([]Expense, error) {
	var out []Expense
	for _, e := range f.expenses {
		if e.GroupID == groupID && !e.IsDeleted() {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, expenseID int64) (*Expense, error) {
	e, ok := f.expenses[expenseID]
	if !ok {
		return nil, nil
	}
	clone := *e
	return &clone, nil
}

func (f *fakeRepo) Update(_ context.Context, e *Expense) error {
	clone := *e
	f.expenses[e.ID] = &clone
	return nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, expenseID int64, at time.Time) error {
	if e, ok := f.expenses[expenseID]; ok && e.DeletedAt == nil {
		e.DeletedAt = &at
	}
	return nil
}

func requireAppError(t *testing.T, err error, code string, status int) *shared.AppError {
	t.Helper()
	var appErr *shared.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, status, appErr.Status)
	return appErr
}

func customCreate(t *testing.T) CreateInput {
	t.Helper()
	return CreateInput{
		PaidByUserID: 1,
		Description:  "groceries",
		Amount:       dec(t, "60.00"),
		SplitMode:    SplitModeCustom,
		Category:     CategoryFood,
		Splits: []SplitInput{
			{UserID: 1, Amount: dec(t, "20.00")},
			{UserID: 2, Amount: dec(t, "20.00")},
			{UserID: 3, Amount: dec(t, "20.00")},
		},
	}
}

func TestCreateCustomSplit(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	expense, err := svc.Create(context.Background(), 5, 1, customCreate(t))
	require.NoError(t, err)

	require.NotZero(t, expense.ID)
	require.Equal(t, SplitModeCustom, expense.SplitMode)
	require.Len(t, expense.Splits, 3)
	require.True(t, splitSum(expense.Splits).Equal(dec(t, "60.00")))
}

func TestCreateEqualSplitComputedServerSide(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	expense, err := svc.Create(context.Background(), 5, 2, CreateInput{
		PaidByUserID: 2,
		Description:  "dinner",
		Amount:       dec(t, "100.00"),
		SplitMode:    SplitModeEqual,
		Category:     CategoryFood,
	})
	require.NoError(t, err)

	require.Len(t, expense.Splits, 3)
	require.True(t, splitSum(expense.Splits).Equal(dec(t, "100.00")))
	for _, s := range expense.Splits {
		if s.UserID == 2 {
			require.Equal(t, "33.34", s.Amount.StringFixed(2))
		} else {
			require.Equal(t, "33.33", s.Amount.StringFixed(2))
		}
	}
}

func TestCreateEqualModeRejectsClientSplits(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), 5, 1, CreateInput{
		PaidByUserID: 1,
		Description:  "dinner",
		Amount:       dec(t, "30.00"),
		SplitMode:    SplitModeEqual,
		Splits:       []SplitInput{{UserID: 1, Amount: dec(t, "30.00")}},
	})
	requireAppError(t, err, shared.CodeSplitsSentForEqualMode, http.StatusBadRequest)
}

func TestCreateSplitSumMismatch(t *testing.T) {
	svc := NewService(newFakeRepo())

	in := customCreate(t)
	in.Splits[2].Amount = dec(t, "19.99")
	_, err := svc.Create(context.Background(), 5, 1, in)
	appErr := requireAppError(t, err, shared.CodeSplitSumMismatch, http.StatusUnprocessableEntity)
	require.Equal(t, "splits", appErr.Field)
}

func TestCreatePayerNotMember(t *testing.T) {
	svc := NewService(newFakeRepo())

	in := customCreate(t)
	in.PaidByUserID = 99
	_, err := svc.Create(context.Background(), 5, 1, in)
	requireAppError(t, err, shared.CodePayerNotMember, http.StatusUnprocessableEntity)
}

func TestCreateSplitUserNotMember(t *testing.T) {
	svc := NewService(newFakeRepo())

	in := customCreate(t)
	in.Splits[1].UserID = 42
	_, err := svc.Create(context.Background(), 5, 1, in)
	requireAppError(t, err, shared.CodeSplitUserNotMember, http.StatusUnprocessableEntity)
}

func TestCreateDuplicateSplitUser(t *testing.T) {
	svc := NewService(newFakeRepo())

	in := customCreate(t)
	in.Splits[1].UserID = 1
	_, err := svc.Create(context.Background(), 5, 1, in)
	requireAppError(t, err, shared.CodeDuplicateSplitUser, http.StatusBadRequest)
}

func TestCreateCallerNotMember(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), 5, 99, customCreate(t))
	requireAppError(t, err, shared.CodeForbidden, http.StatusForbidden)
}

func TestCreateGroupNotFound(t *testing.T) {
	repo := newFakeRepo()
	repo.groupExists = false
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), 5, 1, customCreate(t))
	requireAppError(t, err, shared.CodeGroupNotFound, http.StatusNotFound)
}

func TestEditDescriptionOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), 5, 1, customCreate(t))
	require.NoError(t, err)

	desc := "weekly groceries"
	updated, err := svc.Edit(context.Background(), created.ID, 1, EditInput{Description: &desc})
	require.NoError(t, err)

	require.Equal(t, "weekly groceries", updated.Description)
	require.NotNil(t, updated.UpdatedAt)
	require.Len(t, updated.Splits, 3, "splits untouched by a description-only patch")
}

func TestEditAmountRequiresSplits(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), 5, 1, customCreate(t))
	require.NoError(t, err)

	amount := dec(t, "80.00")
	_, err = svc.Edit(context.Background(), created.ID, 1, EditInput{Amount: &amount})
	requireAppError(t, err, shared.CodeInvalidField, http.StatusBadRequest)
}

func TestEditAmountAndSplitsTogether(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), 5, 1, customCreate(t))
	require.NoError(t, err)

	amount := dec(t, "80.00")
	splits := []SplitInput{
		{UserID: 1, Amount: dec(t, "50.00")},
		{UserID: 2, Amount: dec(t, "30.00")},
	}
	updated, err := svc.Edit(context.Background(), created.ID, 1, EditInput{Amount: &amount, Splits: &splits})
	require.NoError(t, err)

	require.Equal(t, "80.00", updated.Amount.StringFixed(2))
	require.Len(t, updated.Splits, 2)
	require.True(t, splitSum(updated.Splits).Equal(amount))
}

func TestEditSwitchToEqualRecomputes(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), 5, 1, customCreate(t))
	require.NoError(t, err)

	mode := SplitModeEqual
	updated, err := svc.Edit(context.Background(), created.ID, 1, EditInput{SplitMode: &mode})
	require.NoError(t, err)

	require.Equal(t, SplitModeEqual, updated.SplitMode)
	require.Len(t, updated.Splits, 3)
	for _, s := range updated.Splits {
		require.Equal(t, "20.00", s.Amount.StringFixed(2))
	}
}

func TestEditDeletedExpenseRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), 5, 1, customCreate(t))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), created.ID, 1))

	desc := "too late"
	_, err = svc.Edit(context.Background(), created.ID, 1, EditInput{Description: &desc})
	requireAppError(t, err, shared.CodeExpenseDeleted, http.StatusUnprocessableEntity)
}

func TestEditRequiresPayerOrOwner(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	// Payer is 2, owner is 1; member 3 is neither.
	in := customCreate(t)
	in.PaidByUserID = 2
	created, err := svc.Create(context.Background(), 5, 2, in)
	require.NoError(t, err)

	desc := "nope"
	_, err = svc.Edit(context.Background(), created.ID, 3, EditInput{Description: &desc})
	requireAppError(t, err, shared.CodeForbidden, http.StatusForbidden)

	// Owner may edit even though they did not pay.
	_, err = svc.Edit(context.Background(), created.ID, 1, EditInput{Description: &desc})
	require.NoError(t, err)
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), 5, 1, customCreate(t))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, 1))
	first := repo.expenses[created.ID].DeletedAt
	require.NotNil(t, first)

	// Second delete succeeds and keeps the original timestamp.
	require.NoError(t, svc.Delete(context.Background(), created.ID, 1))
	require.Equal(t, first, repo.expenses[created.ID].DeletedAt)
}

func TestDeleteHidesFromList(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), 5, 1, customCreate(t))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, 1))

	list, err := svc.List(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Empty(t, list)

	// GET still returns the record with its deletion state.
	got, err := svc.Get(context.Background(), created.ID, 1)
	require.NoError(t, err)
	require.True(t, got.IsDeleted())
}

func TestGetExpenseNotFound(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Get(context.Background(), 12345, 1)
	requireAppError(t, err, shared.CodeExpenseNotFound, http.StatusNotFound)
}
