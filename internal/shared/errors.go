// Package shared holds cross-cutting types used by every domain module:
// the application error model and request identity helpers.
package shared

import "fmt"

// AppError is the error type every service returns for expected failures.
// Code is a stable string contract sent to clients; it never changes once
// published. Message is human-readable prose and may be improved freely.
type AppError struct {
	Code    string
	Message string
	Status  int
	Field   string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds an AppError with a formatted message.
func Errorf(code string, status int, format string, args ...any) *AppError {
	return &AppError{Code: code, Status: status, Message: fmt.Sprintf(format, args...)}
}

// FieldErrorf builds an AppError tied to a specific request field.
func FieldErrorf(code string, status int, field, format string, args ...any) *AppError {
	return &AppError{Code: code, Status: status, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Error codes, grouped by HTTP status. 401 means "we do not know who you
// are"; 403 means "we know who you are, but you may not do this". The two
// are never interchangeable.
const (
	// 400
	CodeInvalidField           = "INVALID_FIELD"
	CodeMissingField           = "MISSING_FIELD"
	CodeInvalidAmountPrecision = "INVALID_AMOUNT_PRECISION"
	CodeInvalidCategory        = "INVALID_CATEGORY"
	CodeInvalidSplitMode       = "INVALID_SPLIT_MODE"
	CodeSplitsSentForEqualMode = "SPLITS_SENT_FOR_EQUAL_MODE"
	CodeDuplicateSplitUser     = "DUPLICATE_SPLIT_USER"

	// 401
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeTokenMissing        = "TOKEN_MISSING"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeRefreshTokenInvalid = "REFRESH_TOKEN_INVALID"

	// 403
	CodeForbidden = "FORBIDDEN"

	// 404
	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeGroupNotFound   = "GROUP_NOT_FOUND"
	CodeExpenseNotFound = "EXPENSE_NOT_FOUND"

	// 409
	CodeDuplicateEmail    = "DUPLICATE_EMAIL"
	CodeDuplicateUsername = "DUPLICATE_USERNAME"
	CodeAlreadyMember     = "ALREADY_MEMBER"

	// 422 — business rule violations
	CodePayerNotMember     = "PAYER_NOT_MEMBER"
	CodeSplitUserNotMember = "SPLIT_USER_NOT_MEMBER"
	CodeSplitSumMismatch   = "SPLIT_SUM_MISMATCH"
	CodeRecipientNotMember = "RECIPIENT_NOT_MEMBER"
	CodeSelfSettlement     = "SELF_SETTLEMENT"
	CodeExpenseDeleted     = "EXPENSE_DELETED"

	// 500
	CodeInternalError = "INTERNAL_ERROR"
)

// Warning codes travel alongside 2xx responses in the warnings array and
// never block a request.
const (
	// Settlement amount exceeds the outstanding bilateral debt. Recorded
	// anyway, since pre-payment is valid.
	WarnOverpayment = "OVERPAYMENT"
)

// Warning is a non-blocking advisory returned with a successful response.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
