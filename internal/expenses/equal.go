package expenses

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/shared"
)

// ComputeEqualSplits divides amount evenly across participants, rounding
// each share down to the cent and assigning the leftover cents to the
// payer. The shares always sum to amount exactly, so an equal-mode expense
// can never violate the split-sum invariant.
//
// If the payer is somehow absent from participants, the remainder goes to
// the first participant instead so the sum still closes.
func ComputeEqualSplits(amount decimal.Decimal, participantIDs []int64, payerID int64) ([]Split, error) {
	if len(participantIDs) == 0 {
		return nil, shared.Errorf(shared.CodeInternalError, http.StatusInternalServerError,
			"Cannot split an expense among zero participants.")
	}

	n := decimal.NewFromInt(int64(len(participantIDs)))
	base := amount.Div(n).RoundFloor(2)
	remainder := amount.Sub(base.Mul(n))

	splits := make([]Split, len(participantIDs))
	remainderIdx := 0
	for i, uid := range participantIDs {
		splits[i] = Split{UserID: uid, Amount: base}
		if uid == payerID {
			remainderIdx = i
		}
	}
	if remainder.IsPositive() {
		splits[remainderIdx].Amount = splits[remainderIdx].Amount.Add(remainder)
	}

	total := decimal.Zero
	for _, s := range splits {
		total = total.Add(s.Amount)
	}
	if !total.Equal(amount) {
		return nil, shared.Errorf(shared.CodeInternalError, http.StatusInternalServerError,
			"Equal split computation produced sum %s for amount %s.", total, amount)
	}

	return splits, nil
}
