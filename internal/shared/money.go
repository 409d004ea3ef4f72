package shared

import (
	"net/http"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary amount from its wire representation.
// Amounts travel as decimal strings, never as JSON numbers, so binary
// floating point can never corrupt them in transit.
//
// Rules: strictly positive, at most two decimal places. Extra precision is
// rejected, not rounded — a client sending 10.005 gets an error, never a
// silently adjusted value.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, FieldErrorf(CodeMissingField, http.StatusBadRequest, field, "%s is required.", field)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, FieldErrorf(CodeInvalidField, http.StatusBadRequest, field, "%q is not a valid decimal amount.", raw)
	}
	if amount.Exponent() < -2 {
		return decimal.Zero, FieldErrorf(CodeInvalidAmountPrecision, http.StatusBadRequest, field, "Amounts may have at most 2 decimal places; got %q.", raw)
	}
	if !amount.IsPositive() {
		return decimal.Zero, FieldErrorf(CodeInvalidField, http.StatusBadRequest, field, "Amount must be greater than zero.")
	}
	return amount, nil
}
