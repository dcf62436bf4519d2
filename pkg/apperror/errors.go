package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf extracts the AppError code from an error chain.
// Returns the empty string for non-AppError errors.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Well-known codes for callers that branch on error kind.
const (
	CodeInvalidIBAN             = "VAL_001"
	CodeInvalidAmount           = "VAL_002"
	CodeValidation              = "VAL_003"
	CodeNotFound                = "NF_001"
	CodeInsufficientFunds       = "PAY_001"
	CodeNotATransfer            = "PAY_002"
	CodeAlreadyRevoked          = "PAY_010"
	CodeRevocationWindow        = "PAY_011"
	CodeOwnershipViolation      = "OWN_001"
	CodeInternal                = "SYS_001"
	CodeTransientStore          = "SYS_010"
	CodePostCommitInconsistency = "SYS_020"
)

// ---- Validation (VAL) ----

func ErrInvalidIBAN(iban string) *AppError {
	return New(CodeInvalidIBAN, fmt.Sprintf("Invalid IBAN: %s", iban), http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be positive with at most two decimal places", http.StatusBadRequest)
}

// Validation returns a generic VAL_003 validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Not Found (NF) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Movement Business Logic (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in account", http.StatusPaymentRequired)
}

func ErrNotATransfer() *AppError {
	return New(CodeNotATransfer, "Movement is not a transfer", http.StatusBadRequest)
}

func ErrAlreadyRevoked() *AppError {
	return New(CodeAlreadyRevoked, "Transfer has already been revoked", http.StatusConflict)
}

func ErrRevocationWindowExpired() *AppError {
	return New(CodeRevocationWindow, "Transfer revocation window has expired", http.StatusUnprocessableEntity)
}

// ---- Ownership (OWN) ----

func ErrOwnershipViolation() *AppError {
	return New(CodeOwnershipViolation, "Account is not owned by the initiating client", http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// ErrTransientStore marks a store failure as retryable (connectivity, timeout).
func ErrTransientStore(err error) *AppError {
	return Wrap(CodeTransientStore, "Store temporarily unavailable", http.StatusServiceUnavailable, err)
}

// ErrPostCommitInconsistency marks the case where a debit committed but the
// movement append did not land. Never auto-retried: a retry risks a double
// debit. Requires operator intervention.
func ErrPostCommitInconsistency(err error) *AppError {
	return Wrap(CodePostCommitInconsistency, "Balance adjusted but movement not recorded", http.StatusInternalServerError, err)
}
