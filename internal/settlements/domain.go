// Package settlements records direct payments between group members.
// Settlements reduce outstanding debt in the balance engine; they are
// never soft-deleted and never category-scoped.
package settlements

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement is a payment from one member to another, outside any expense.
type Settlement struct {
	ID           int64
	GroupID      int64
	PaidByUserID int64
	PaidToUserID int64
	Amount       decimal.Decimal
	CreatedAt    time.Time
}
