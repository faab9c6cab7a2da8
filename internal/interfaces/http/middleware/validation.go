package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes gin's validator report JSON (or form) field names
// and registers the notblank tag used by ledger identifiers such as
// pallet_number and location.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("notblank", notBlank)
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return fld.Name
}

// notBlank rejects strings made only of whitespace
func notBlank(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(f.String()) != ""
}

// HandleValidationError writes a 400 response listing each failing field.
// Malformed JSON yields the same code without details.
func HandleValidationError(c *gin.Context, err error) {
	c.Set(logger.GinErrorCodeKey, dto.ErrCodeValidation)
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// FormatValidationErrors converts binding errors into the error envelope
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details = make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: getValidationMessage(fe)})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// validationMessages maps a tag to its message; the rule parameter is
// appended where the message ends with a space.
var validationMessages = map[string]string{
	"required": "This field is required",
	"notblank": "Must not be blank",
	"dive":     "Invalid list element",
	"email":    "Invalid email format",
	"len":      "Must be exactly ",
	"oneof":    "Must be one of: ",
	"gt":       "Must be greater than ",
	"gte":      "Must be greater than or equal to ",
	"lt":       "Must be less than ",
	"lte":      "Must be less than or equal to ",
	"min":      "Must be at least ",
	"max":      "Must be at most ",
}

func getValidationMessage(fe validator.FieldError) string {
	msg, ok := validationMessages[fe.Tag()]
	if !ok {
		return "Invalid value"
	}
	if !strings.HasSuffix(msg, " ") {
		return msg
	}
	msg += fe.Param()
	switch fe.Tag() {
	case "min", "max", "len":
		if fe.Kind() == reflect.String {
			msg += " characters"
		}
	}
	return msg
}
