// Package balance is the single source of truth for how group balances are
// computed and how the resulting debt graph is reduced to payment
// instructions. The canonical arithmetic lives in Compute and Simplify;
// no other package may reimplement it.
//
// All money in this package is shopspring decimal. Binary floating point
// never touches a balance: a one-cent discrepancy is treated as data
// corruption elsewhere in the system, so every comparison here is exact.
package balance

import "github.com/shopspring/decimal"

// Expense is the minimal projection of an active expense needed for
// balance computation.
type Expense struct {
	ID      int64
	PayerID int64
	Amount  decimal.Decimal
}

// Split assigns a portion of an expense to one member.
type Split struct {
	ExpenseID int64
	UserID    int64
	Amount    decimal.Decimal
}

// Settlement is a direct payment between two members, independent of any
// expense.
type Settlement struct {
	PayerID     int64
	RecipientID int64
	Amount      decimal.Decimal
}

// ComputeInput carries the group-scoped records Compute folds into
// balances. The caller is responsible for passing only active expenses and
// the splits belonging to that same expense set; when the records were
// filtered to one category, CategoryScoped must be set so settlements
// (which are never category-scoped) are left out of the fold.
type ComputeInput struct {
	Expenses       []Expense
	Splits         []Split
	Settlements    []Settlement
	MemberIDs      []int64
	CategoryScoped bool
}

// Compute folds expenses, splits, and settlements into one signed balance
// per member. Positive means the member is owed money; negative means the
// member owes.
//
//  1. Credit each payer for the full expense amount they fronted.
//  2. Debit each split participant for their portion.
//  3. Net settlements: payer gains credit, recipient loses credit.
//     Skipped entirely for category-scoped input.
//  4. Seed zero for every member with no activity.
//
// Each pass targets a distinct record type and decimal addition is
// commutative and associative, so pass order never changes the result.
// When the split-sum invariant holds for every included expense and the
// input is not category-scoped, the returned values sum to exactly zero.
// Compute itself never fails; the zero-sum assertion is the caller's job.
func Compute(in ComputeInput) map[int64]decimal.Decimal {
	balances := make(map[int64]decimal.Decimal, len(in.MemberIDs))

	for _, e := range in.Expenses {
		balances[e.PayerID] = balances[e.PayerID].Add(e.Amount)
	}

	for _, s := range in.Splits {
		balances[s.UserID] = balances[s.UserID].Sub(s.Amount)
	}

	// Settlements are cross-category and would distort a filtered view.
	if !in.CategoryScoped {
		for _, st := range in.Settlements {
			balances[st.PayerID] = balances[st.PayerID].Add(st.Amount)
			balances[st.RecipientID] = balances[st.RecipientID].Sub(st.Amount)
		}
	}

	for _, id := range in.MemberIDs {
		if _, ok := balances[id]; !ok {
			balances[id] = decimal.Zero
		}
	}

	return balances
}

// Sum returns the exact decimal sum of all balances. Callers assert it is
// zero for unfiltered computations and treat any other value as a fatal
// data-integrity fault.
func Sum(balances map[int64]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range balances {
		total = total.Add(amount)
	}
	return total
}
