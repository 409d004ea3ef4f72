package httpx

import (
	"errors"
	"net/http"

	"github.com/splitledger/splitledger/internal/shared"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// RespondError writes an AppError as its declared status and code. Any
// other error becomes an opaque 500: internal detail never reaches clients.
func RespondError(w http.ResponseWriter, err error) {
	var appErr *shared.AppError
	if errors.As(err, &appErr) {
		JSON(w, appErr.Status, errorEnvelope{Error: errorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Field:   appErr.Field,
		}})
		return
	}
	JSON(w, http.StatusInternalServerError, errorEnvelope{Error: errorBody{
		Code:    shared.CodeInternalError,
		Message: "An internal error occurred.",
	}})
}
