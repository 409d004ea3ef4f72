package settlements

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/splitledger/splitledger/internal/shared"
)

type fakeRepo struct {
	groupExists bool
	memberIDs   []int64
	debt        decimal.Decimal

	inserted []Settlement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		groupExists: true,
		memberIDs:   []int64{1, 2, 3},
		debt:        decimal.RequireFromString("50.00"),
	}
}

func (f *fakeRepo) GroupExists(_ context.Context, _ int64) (bool, error) { return f.groupExists, nil }
func (f *fakeRepo) MemberIDs(_ context.Context, _ int64) ([]int64, error) {
	return f.memberIDs, nil
}
func (f *fakeRepo) BilateralDebt(_ context.Context, _, _, _ int64) (decimal.Decimal, error) {
	return f.debt, nil
}
func (f *fakeRepo) Insert(_ context.Context, s *Settlement) error {
	s.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, *s)
	return nil
}
func (f *fakeRepo) ListByGroup(_ context.Context, _ int64) ([]Settlement, error) {
	return f.inserted, nil
}

func requireAppError(t *testing.T, err error, code string, status int) {
	t.Helper()
	var appErr *shared.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, status, appErr.Status)
}

func TestCreateSettlement(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	settlement, warnings, err := svc.Create(context.Background(), 5, 1, 2, decimal.RequireFromString("30.00"))
	require.NoError(t, err)

	require.Empty(t, warnings)
	require.Equal(t, int64(1), settlement.PaidByUserID)
	require.Equal(t, int64(2), settlement.PaidToUserID)
	require.Equal(t, "30.00", settlement.Amount.StringFixed(2))
	require.Len(t, repo.inserted, 1)
}

func TestCreateSettlementOverpaymentWarnsButRecords(t *testing.T) {
	repo := newFakeRepo()
	repo.debt = decimal.RequireFromString("10.00")
	svc := NewService(repo)

	settlement, warnings, err := svc.Create(context.Background(), 5, 1, 2, decimal.RequireFromString("25.00"))
	require.NoError(t, err)

	require.NotNil(t, settlement)
	require.Len(t, repo.inserted, 1, "overpayment must still be recorded")
	require.Len(t, warnings, 1)
	require.Equal(t, shared.WarnOverpayment, warnings[0].Code)
	require.Contains(t, warnings[0].Message, "10.00")
	require.Contains(t, warnings[0].Message, "25.00")
}

func TestCreateSettlementExactDebtNoWarning(t *testing.T) {
	repo := newFakeRepo()
	repo.debt = decimal.RequireFromString("25.00")
	svc := NewService(repo)

	_, warnings, err := svc.Create(context.Background(), 5, 1, 2, decimal.RequireFromString("25.00"))
	require.NoError(t, err)
	require.Empty(t, warnings, "paying exactly the debt is not an overpayment")
}

func TestCreateSelfSettlementRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, _, err := svc.Create(context.Background(), 5, 1, 1, decimal.RequireFromString("10.00"))
	requireAppError(t, err, shared.CodeSelfSettlement, http.StatusUnprocessableEntity)
	require.Empty(t, repo.inserted)
}

func TestCreateRecipientNotMember(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, _, err := svc.Create(context.Background(), 5, 1, 99, decimal.RequireFromString("10.00"))
	requireAppError(t, err, shared.CodeRecipientNotMember, http.StatusUnprocessableEntity)
}

func TestCreateCallerNotMember(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, _, err := svc.Create(context.Background(), 5, 99, 1, decimal.RequireFromString("10.00"))
	requireAppError(t, err, shared.CodeForbidden, http.StatusForbidden)
}

func TestCreateGroupNotFound(t *testing.T) {
	repo := newFakeRepo()
	repo.groupExists = false
	svc := NewService(repo)

	_, _, err := svc.Create(context.Background(), 5, 1, 2, decimal.RequireFromString("10.00"))
	requireAppError(t, err, shared.CodeGroupNotFound, http.StatusNotFound)
}

func TestListRequiresMembership(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.List(context.Background(), 5, 99)
	requireAppError(t, err, shared.CodeForbidden, http.StatusForbidden)
}
