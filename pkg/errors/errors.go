package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Generic errors shared across services.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Enrollment taxonomy. Every value is a user-facing terminal condition
// except ErrTransactionFailed, which signals a rolled-back infrastructure
// fault where a retry of the same request is appropriate.
var (
	ErrStudentNotFound         = New("STUDENT_NOT_FOUND", http.StatusNotFound, "student not found")
	ErrOfferingNotFound        = New("OFFERING_NOT_FOUND", http.StatusNotFound, "subject offering not found")
	ErrWindowClosed            = New("WINDOW_CLOSED", http.StatusConflict, "subject selection is currently closed")
	ErrDepartmentMismatch      = New("DEPARTMENT_MISMATCH", http.StatusForbidden, "offering belongs to a different department")
	ErrElectiveGroupTaken      = New("ELECTIVE_GROUP_ALREADY_SELECTED", http.StatusConflict, "an elective from this group has already been selected")
	ErrAlreadyEnrolledOffering = New("ALREADY_ENROLLED_THIS_OFFERING", http.StatusConflict, "already enrolled in this offering")
	ErrAlreadyEnrolledSubject  = New("ALREADY_ENROLLED_THIS_SUBJECT", http.StatusConflict, "already enrolled in this subject with another faculty")
	ErrCapacityExceeded        = New("CAPACITY_EXCEEDED", http.StatusConflict, "subject offering is full")
	ErrUnenrollNotPermitted    = New("UNENROLL_NOT_PERMITTED", http.StatusForbidden, "enrollments are final and cannot be removed")
	ErrTransactionFailed       = New("TRANSACTION_FAILED", http.StatusServiceUnavailable, "enrollment could not be completed, please retry")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
