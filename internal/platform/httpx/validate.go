package httpx

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/splitledger/splitledger/internal/shared"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report violations under the wire name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct tag validation on a decoded request body and maps
// the first violation to an AppError. Missing required fields and malformed
// values get distinct codes so clients can tell them apart.
func Validate(body any) error {
	err := validate.Struct(body)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return shared.FieldErrorf(shared.CodeMissingField, http.StatusBadRequest, fe.Field(),
				"%s is required.", fe.Field())
		}
		return shared.FieldErrorf(shared.CodeInvalidField, http.StatusBadRequest, fe.Field(),
			"%s is invalid (%s).", fe.Field(), fe.Tag())
	}
	return shared.Errorf(shared.CodeInvalidField, http.StatusBadRequest, "Request body is invalid.")
}
