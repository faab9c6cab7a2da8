package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrQuantityExceeded) matches errors built with
// NewDomainError(CodeQuantityExceeded, "...").
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared by every bounded context
const (
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicateKey       = "DUPLICATE_KEY"
	CodeQuantityExceeded   = "QUANTITY_EXCEEDED"
	CodeNoCapacity         = "NO_CAPACITY"
	CodePalletInUse        = "PALLET_IN_USE"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidState       = "INVALID_STATE"
	CodeLedgerInconsistent = "LEDGER_INCONSISTENT"
)

// Common domain errors
var (
	ErrNotFound           = NewDomainError(CodeNotFound, "Resource not found")
	ErrDuplicateKey       = NewDomainError(CodeDuplicateKey, "Resource already exists")
	ErrQuantityExceeded   = NewDomainError(CodeQuantityExceeded, "Requested quantity exceeds available quantity")
	ErrNoCapacity         = NewDomainError(CodeNoCapacity, "Warehouse location has no remaining capacity")
	ErrPalletInUse        = NewDomainError(CodePalletInUse, "Pallet products are referenced by outgoing shipments")
	ErrInvalidInput       = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState       = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrLedgerInconsistent = NewDomainError(CodeLedgerInconsistent, "Quantity ledger would become inconsistent")
)

// HasCode reports whether err wraps a DomainError carrying code
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
