package settlements

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/shared"
)

// Repository defines the persistence operations the settlement service
// needs. BilateralDebt must consider only active expenses, matching the
// balance engine's view of the world.
type Repository interface {
	GroupExists(ctx context.Context, groupID int64) (bool, error)
	MemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	BilateralDebt(ctx context.Context, groupID, debtorID, creditorID int64) (decimal.Decimal, error)
	Insert(ctx context.Context, s *Settlement) error
	ListByGroup(ctx context.Context, groupID int64) ([]Settlement, error)
}

// Service implements settlement business rules over a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a settlement Service.
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

func (s *Service) memberIDs(ctx context.Context, groupID, callerID int64) ([]int64, error) {
	ids, err := s.repo.MemberIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if id == callerID {
			return ids, nil
		}
	}
	return nil, shared.Errorf(shared.CodeForbidden, http.StatusForbidden, "You are not a member of group %d.", groupID)
}

// Create records a payment from the caller to recipientID.
//
// The payer is always the authenticated caller, never a request field, so
// nobody can record payments on someone else's behalf. Paying more than
// the current bilateral debt is allowed (pre-payment is legitimate) but
// flagged with an OVERPAYMENT warning.
func (s *Service) Create(ctx context.Context, groupID, callerID, recipientID int64, amount decimal.Decimal) (*Settlement, []shared.Warning, error) {
	if err := s.requireGroup(ctx, groupID); err != nil {
		return nil, nil, err
	}
	memberIDs, err := s.memberIDs(ctx, groupID, callerID)
	if err != nil {
		return nil, nil, err
	}

	if callerID == recipientID {
		return nil, nil, shared.FieldErrorf(shared.CodeSelfSettlement, http.StatusUnprocessableEntity, "paid_to_user_id",
			"A settlement cannot be made to yourself.")
	}

	recipientIsMember := false
	for _, id := range memberIDs {
		if id == recipientID {
			recipientIsMember = true
			break
		}
	}
	if !recipientIsMember {
		return nil, nil, shared.FieldErrorf(shared.CodeRecipientNotMember, http.StatusUnprocessableEntity, "paid_to_user_id",
			"User %d is not a member of group %d.", recipientID, groupID)
	}

	var warnings []shared.Warning
	debt, err := s.repo.BilateralDebt(ctx, groupID, callerID, recipientID)
	if err != nil {
		return nil, nil, err
	}
	if amount.GreaterThan(debt) {
		warnings = append(warnings, shared.Warning{
			Code: shared.WarnOverpayment,
			Message: "Settlement of " + amount.StringFixed(2) + " exceeds current outstanding debt of " +
				debt.StringFixed(2) + ". Recording anyway; pre-payment is valid.",
		})
	}

	settlement := &Settlement{
		GroupID:      groupID,
		PaidByUserID: callerID,
		PaidToUserID: recipientID,
		Amount:       amount,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, settlement); err != nil {
		return nil, nil, err
	}
	return settlement, warnings, nil
}

// List returns a group's settlements, newest first.
func (s *Service) List(ctx context.Context, groupID, callerID int64) ([]Settlement, error) {
	if err := s.requireGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if _, err := s.memberIDs(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	return s.repo.ListByGroup(ctx, groupID)
}
