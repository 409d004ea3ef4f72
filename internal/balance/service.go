package balance

import (
	"context"
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/splitledger/splitledger/internal/shared"
)

// Member pairs a user ID with its display name for response enrichment.
type Member struct {
	ID       int64
	Username string
}

// Repository defines the read-only queries the balance service needs.
// ActiveExpenses and SplitsForActiveExpenses must share one filtering rule
// (deleted_at IS NULL plus the optional category) so the expense and split
// scopes cannot drift apart.
type Repository interface {
	GroupExists(ctx context.Context, groupID int64) (bool, error)
	Members(ctx context.Context, groupID int64) ([]Member, error)
	ActiveExpenses(ctx context.Context, groupID int64, category string) ([]Expense, error)
	SplitsForActiveExpenses(ctx context.Context, groupID int64, category string) ([]Split, error)
	Settlements(ctx context.Context, groupID int64) ([]Settlement, error)
}

// MemberBalance is one member's net position, serialized as a decimal
// string so no client ever sees a float.
type MemberBalance struct {
	UserID  int64  `json:"user_id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

// SimplifiedDebt is one payment instruction from the simplifier.
type SimplifiedDebt struct {
	FromUserID int64  `json:"from_user_id"`
	FromName   string `json:"from_name"`
	ToUserID   int64  `json:"to_user_id"`
	ToName     string `json:"to_name"`
	Amount     string `json:"amount"`
}

// Report is the full balance payload for one group.
type Report struct {
	GroupID         int64            `json:"group_id"`
	Balances        []MemberBalance  `json:"balances"`
	SimplifiedDebts []SimplifiedDebt `json:"simplified_debts"`
	BalanceSum      string           `json:"balance_sum"`
}

// Service assembles balance reports from group records.
type Service struct {
	repo Repository
}

// NewService constructs a balance Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Report computes the balance report for a group. category is empty for
// the full view, or a category value already validated by the handler.
//
// The caller must be a group member. For the full view the balance sum is
// asserted to be exactly zero; a nonzero sum means the stored data is
// corrupt (a split-sum violation slipped past the write path) and surfaces
// as an unrecoverable internal error, never silently corrected. Simplified
// debts are only produced for the full view — a category-scoped map does
// not sum to zero and must never reach the simplifier.
func (s *Service) Report(ctx context.Context, groupID, callerID int64, category string) (*Report, error) {
	exists, err := s.repo.GroupExists(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.Errorf(shared.CodeGroupNotFound, http.StatusNotFound, "Group %d does not exist.", groupID)
	}

	members, err := s.repo.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	memberIDs := make([]int64, len(members))
	names := make(map[int64]string, len(members))
	isMember := false
	for i, m := range members {
		memberIDs[i] = m.ID
		names[m.ID] = m.Username
		if m.ID == callerID {
			isMember = true
		}
	}
	if !isMember {
		return nil, shared.Errorf(shared.CodeForbidden, http.StatusForbidden, "You are not a member of group %d.", groupID)
	}

	// The three ledger reads are independent, so run them concurrently.
	var (
		expenses    []Expense
		splits      []Split
		settlements []Settlement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.repo.ActiveExpenses(gctx, groupID, category)
		return err
	})
	g.Go(func() error {
		var err error
		splits, err = s.repo.SplitsForActiveExpenses(gctx, groupID, category)
		return err
	})
	if category == "" {
		g.Go(func() error {
			var err error
			settlements, err = s.repo.Settlements(gctx, groupID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	balances := Compute(ComputeInput{
		Expenses:       expenses,
		Splits:         splits,
		Settlements:    settlements,
		MemberIDs:      memberIDs,
		CategoryScoped: category != "",
	})
	sum := Sum(balances)

	report := &Report{
		GroupID:         groupID,
		Balances:        make([]MemberBalance, 0, len(balances)),
		SimplifiedDebts: []SimplifiedDebt{},
		BalanceSum:      sum.StringFixed(2),
	}

	for userID, amount := range balances {
		report.Balances = append(report.Balances, MemberBalance{
			UserID:  userID,
			Name:    names[userID],
			Balance: amount.StringFixed(2),
		})
	}
	sort.Slice(report.Balances, func(a, b int) bool {
		return report.Balances[a].UserID < report.Balances[b].UserID
	})

	if category == "" {
		if !sum.IsZero() {
			return nil, shared.Errorf(shared.CodeInternalError, http.StatusInternalServerError,
				"Balance integrity check failed: sum was %s (expected 0.00). Group %d has inconsistent financial data.",
				sum.StringFixed(2), groupID)
		}
		for _, t := range Simplify(balances) {
			report.SimplifiedDebts = append(report.SimplifiedDebts, SimplifiedDebt{
				FromUserID: t.FromUserID,
				FromName:   names[t.FromUserID],
				ToUserID:   t.ToUserID,
				ToName:     names[t.ToUserID],
				Amount:     t.Amount.StringFixed(2),
			})
		}
	}

	return report, nil
}
