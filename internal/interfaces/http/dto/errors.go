package dto

import (
	"net/http"

	"github.com/erp/warehouse/internal/domain/shared"
)

// Transport-level error codes. Domain failures keep the code carried by
// shared.DomainError so clients see the same vocabulary as the ledger.
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeValidation is used when request binding or validation fails
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeRouteNotFound is used for unknown routes
	ErrCodeRouteNotFound = "ERR_ROUTE_NOT_FOUND"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRouteNotFound:   http.StatusNotFound,

	shared.CodeNotFound:     http.StatusNotFound,
	shared.CodeDuplicateKey: http.StatusConflict,
	shared.CodePalletInUse:  http.StatusConflict,
	shared.CodeInvalidInput: http.StatusBadRequest,

	// Business rule errors -> 422 Unprocessable Entity
	shared.CodeQuantityExceeded: http.StatusUnprocessableEntity,
	shared.CodeNoCapacity:       http.StatusUnprocessableEntity,
	shared.CodeInvalidState:     http.StatusUnprocessableEntity,

	shared.CodeLedgerInconsistent: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
