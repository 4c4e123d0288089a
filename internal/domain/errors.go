package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a domain error for transport-level mapping.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeInvalidState ErrorCode = "ILLEGAL_TRANSITION"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeUnavailable  ErrorCode = "PROVIDER_UNAVAILABLE"
)

// Error is the common error type for all domain-level failures.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewValidationError reports invalid caller input. Nothing was persisted.
func NewValidationError(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// NewNotFoundError reports a missing entity by kind and identifier.
func NewNotFoundError(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", kind, id)}
}

// NewConflictError reports a concurrent-modification or uniqueness conflict.
func NewConflictError(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// NewInvalidStateError reports a status transition outside the legal-edge table.
func NewInvalidStateError(from, to string) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf("illegal transition from %s to %s", from, to)}
}

// NewForbiddenError reports an authenticated actor lacking rights to the resource.
func NewForbiddenError(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// NewUnauthorizedError reports a missing or unverifiable credential, including
// webhook payloads whose signature does not verify.
func NewUnauthorizedError(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// NewUnavailableError reports a transient upstream failure. Callers may retry;
// no state was changed.
func NewUnavailableError(msg string) *Error {
	return &Error{Code: CodeUnavailable, Message: msg}
}

// CodeOf extracts the error code, or empty string for non-domain errors.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
