package balance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Transfer instructs one member to pay another. Amount is always strictly
// positive and FromUserID never equals ToUserID.
type Transfer struct {
	FromUserID int64
	ToUserID   int64
	Amount     decimal.Decimal
}

type party struct {
	userID int64
	amount decimal.Decimal
}

// Simplify reduces a zero-summing balance map to a minimal set of pairwise
// transfers by repeatedly matching the largest remaining creditor with the
// largest remaining debtor. For N members with nonzero balance it emits at
// most N-1 transfers, and applying every transfer (debit from, credit to)
// reproduces the input map exactly.
//
// The input must sum to zero; that is the caller's contract, not checked
// here. Degenerate input (all zero, or balances of only one sign) yields an
// empty result rather than an error, because this function cannot tell a
// corrupt map from a deliberately partial one.
//
// Ordering is deterministic: descending by amount, ties broken by
// ascending user ID.
func Simplify(balances map[int64]decimal.Decimal) []Transfer {
	var creditors, debtors []party
	for id, amount := range balances {
		switch amount.Sign() {
		case 1:
			creditors = append(creditors, party{userID: id, amount: amount})
		case -1:
			debtors = append(debtors, party{userID: id, amount: amount.Neg()})
		}
	}

	sortByAmountDesc(creditors)
	sortByAmountDesc(debtors)

	transfers := make([]Transfer, 0, len(creditors)+len(debtors))
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		amount := decimal.Min(creditors[i].amount, debtors[j].amount)

		transfers = append(transfers, Transfer{
			FromUserID: debtors[j].userID,
			ToUserID:   creditors[i].userID,
			Amount:     amount,
		})

		creditors[i].amount = creditors[i].amount.Sub(amount)
		debtors[j].amount = debtors[j].amount.Sub(amount)

		if creditors[i].amount.IsZero() {
			i++
		}
		if debtors[j].amount.IsZero() {
			j++
		}
	}

	return transfers
}

func sortByAmountDesc(parties []party) {
	sort.Slice(parties, func(a, b int) bool {
		if cmp := parties[a].amount.Cmp(parties[b].amount); cmp != 0 {
			return cmp > 0
		}
		return parties[a].userID < parties[b].userID
	})
}
