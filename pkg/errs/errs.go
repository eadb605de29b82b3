// Package errs defines the error taxonomy shared across the trading core.
// Callers branch on categories with errors.Is; the category decides whether an
// operation is retried (see pkg/retry).
package errs

import (
	"errors"
	"fmt"
)

// Category identifies a class of failure.
type Category string

const (
	CategoryValidation        Category = "validation"
	CategoryAuthentication    Category = "authentication"
	CategoryInsufficientFunds Category = "insufficient_funds"
	CategoryRiskManagement    Category = "risk_management"
	CategoryExchange          Category = "exchange"
	CategoryBlockchain        Category = "blockchain"
	CategoryRateLimit         Category = "rate_limit"
	CategoryNetwork           Category = "network"
)

// Error carries a category, a human-readable message and an optional cause.
type Error struct {
	Category Category
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches two taxonomy errors by category, so
// errors.Is(err, errs.RateLimit("")) works as a category test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Category == t.Category
}

func newError(cat Category, format string, args ...any) *Error {
	return &Error{Category: cat, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed caller input. Never retried.
func Validation(format string, args ...any) *Error {
	return newError(CategoryValidation, format, args...)
}

// Authentication reports missing or rejected credentials. Fatal, never retried.
func Authentication(format string, args ...any) *Error {
	return newError(CategoryAuthentication, format, args...)
}

// InsufficientFunds reports a backend-declared balance shortfall.
func InsufficientFunds(format string, args ...any) *Error {
	return newError(CategoryInsufficientFunds, format, args...)
}

// RiskManagement reports a hard risk violation or a missing live-mode
// confirmation. Always blocks execution.
func RiskManagement(format string, args ...any) *Error {
	return newError(CategoryRiskManagement, format, args...)
}

// Exchange reports a generic exchange backend failure. Retried transiently.
func Exchange(format string, args ...any) *Error {
	return newError(CategoryExchange, format, args...)
}

// Blockchain reports a chain RPC failure. Retried transiently.
func Blockchain(format string, args ...any) *Error {
	return newError(CategoryBlockchain, format, args...)
}

// RateLimit reports throttling, from our own limiter or the backend.
func RateLimit(format string, args ...any) *Error {
	return newError(CategoryRateLimit, format, args...)
}

// Network reports a transport-level failure (timeouts included).
func Network(format string, args ...any) *Error {
	return newError(CategoryNetwork, format, args...)
}

// Wrap attaches a cause to a new taxonomy error.
func Wrap(cat Category, cause error, format string, args ...any) *Error {
	e := newError(cat, format, args...)
	e.Cause = cause
	return e
}

// CategoryOf extracts the category from err, or "" when err carries none.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// Retryable reports whether the error class is worth retrying. Unclassified
// errors are treated as transient network trouble.
func Retryable(err error) bool {
	switch CategoryOf(err) {
	case CategoryValidation, CategoryAuthentication, CategoryInsufficientFunds, CategoryRiskManagement:
		return false
	default:
		return true
	}
}
