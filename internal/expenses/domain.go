// Package expenses owns expense and split records: creation with equal or
// custom splits, edits, and soft deletion. The split-sum invariant
// (splits always add up to the expense amount, exactly) is enforced here
// on every write path; the balance engine downstream trusts it.
package expenses

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/shared"
)

// SplitMode selects how an expense is divided among members.
type SplitMode string

const (
	SplitModeEqual  SplitMode = "equal"
	SplitModeCustom SplitMode = "custom"
)

// ParseSplitMode validates a wire value. Empty defaults to custom.
func ParseSplitMode(raw string) (SplitMode, error) {
	switch raw {
	case "":
		return SplitModeCustom, nil
	case string(SplitModeEqual):
		return SplitModeEqual, nil
	case string(SplitModeCustom):
		return SplitModeCustom, nil
	}
	return "", shared.FieldErrorf(shared.CodeInvalidSplitMode, http.StatusBadRequest, "split_mode",
		"%q is not a valid split mode. Valid values: equal, custom.", raw)
}

// Category tags an expense for informational, category-scoped balance views.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryAccommodation Category = "accommodation"
	CategoryEntertainment Category = "entertainment"
	CategoryUtilities     Category = "utilities"
	CategoryOther         Category = "other"
)

var categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryAccommodation,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryOther,
}

// ParseCategory validates a wire value. Empty defaults to other.
func ParseCategory(raw string) (Category, error) {
	if raw == "" {
		return CategoryOther, nil
	}
	for _, c := range categories {
		if raw == string(c) {
			return c, nil
		}
	}
	return "", shared.FieldErrorf(shared.CodeInvalidCategory, http.StatusBadRequest, "category",
		"%q is not a valid category. Valid values: food, transport, accommodation, entertainment, utilities, other.", raw)
}

// Expense is a shared cost fronted by one member. DeletedAt marks a soft
// delete: the row stays for audit but stops contributing to balances, and
// the flag never flips back.
type Expense struct {
	ID           int64
	GroupID      int64
	PaidByUserID int64
	Description  string
	Amount       decimal.Decimal
	SplitMode    SplitMode
	Category     Category
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
	Splits       []Split
}

// IsDeleted reports whether the expense has been soft-deleted.
func (e *Expense) IsDeleted() bool {
	return e.DeletedAt != nil
}

// Split assigns a positive portion of an expense to one member. A user
// appears at most once per expense.
type Split struct {
	ID        int64
	ExpenseID int64
	UserID    int64
	Amount    decimal.Decimal
}
