package apperror

import (
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

// Is matches another *AppError by code, so errors.Is(err, ErrNotEligible())
// works regardless of message or wrapped cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
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

const (
	CodeInvalidAmount        = "WAL_001"
	CodeNotEligible          = "WAL_002"
	CodeInsufficientBalance  = "WAL_003"
	CodeConcurrencyExhausted = "WAL_004"
	CodeWalletNotFound       = "WAL_005"
	CodeInvalidTarget        = "WAL_006"
	CodeValidation           = "VAL_001"
	CodeInvalidToken         = "AUTH_001"
	CodeAdminRequired        = "AUTH_002"
	CodeRateLimitExceeded    = "RATE_001"
	CodeStorageUnavailable   = "SYS_001"
	CodeInternal             = "SYS_000"
)

// ---- Wallet ledger (WAL) ----

func ErrInvalidAmount(reason string) *AppError {
	msg := "Amount must be a positive number"
	if reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, reason)
	}
	return New(CodeInvalidAmount, msg, http.StatusBadRequest)
}

func ErrNotEligible() *AppError {
	return New(CodeNotEligible, "Wallet is not available for this account", http.StatusForbidden)
}

// ErrInsufficientBalance reports the shortfall, formatted with two decimals.
func ErrInsufficientBalance(shortfall fmt.Stringer) *AppError {
	return New(CodeInsufficientBalance,
		fmt.Sprintf("Insufficient wallet balance: short by %s", shortfall),
		http.StatusPaymentRequired)
}

func ErrConcurrencyExhausted(attempts int) *AppError {
	return New(CodeConcurrencyExhausted,
		fmt.Sprintf("Wallet is busy, gave up after %d attempts; please retry", attempts),
		http.StatusConflict)
}

func ErrWalletNotFound() *AppError {
	return New(CodeWalletNotFound, "Wallet not found", http.StatusNotFound)
}

func ErrInvalidTarget() *AppError {
	return New(CodeInvalidTarget, "Either email or uid is required", http.StatusBadRequest)
}

// ---- Validation (VAL) ----

func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAdminRequired() *AppError {
	return New(CodeAdminRequired, "Administrator access required", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorageUnavailable marks a retryable infrastructure failure.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap(CodeStorageUnavailable, "Wallet storage unavailable, please retry", http.StatusServiceUnavailable, err)
}

// InternalError wraps an unexpected error as SYS_000.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
