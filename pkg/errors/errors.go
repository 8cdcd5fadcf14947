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

// Booking rule violations. Each carries a machine-readable code so the
// UI can render the specific rule without parsing message text.
var (
	ErrMissingResource     = New("MISSING_RESOURCE", http.StatusUnprocessableEntity, "class type requires a resource")
	ErrResourceConflict    = New("RESOURCE_CONFLICT", http.StatusConflict, "resource already booked for this time")
	ErrResourceUnavailable = New("RESOURCE_UNAVAILABLE", http.StatusConflict, "resource is blocked for this time")
	ErrInstructorConflict  = New("INSTRUCTOR_CONFLICT", http.StatusConflict, "instructor already booked for this time")
	ErrDuplicateClassSlot  = New("DUPLICATE_CLASS_SLOT", http.StatusConflict, "student already booked this class type for this time")
	ErrHorizonExceeded     = New("BOOKING_HORIZON_EXCEEDED", http.StatusUnprocessableEntity, "date is outside the booking window")
	ErrAppointmentFinal    = New("APPOINTMENT_FINALIZED", http.StatusConflict, "completed appointments cannot be modified")
	ErrCancellationTooLate = New("CANCELLATION_TOO_LATE", http.StatusUnprocessableEntity, "cancellation window has passed")
	ErrPendingDebt         = New("PENDING_DEBT", http.StatusUnprocessableEntity, "student has pending debt")
	ErrNoShowLimit         = New("NO_SHOW_LIMIT_EXCEEDED", http.StatusUnprocessableEntity, "student reached the no-show limit")
)

// Infrastructure and transport errors.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
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

// IsViolation reports whether the error is a business-rule violation as
// opposed to an infrastructure failure.
func IsViolation(err error) bool {
	e := FromError(err)
	if e == nil {
		return false
	}
	switch e.Code {
	case ErrMissingResource.Code, ErrResourceConflict.Code, ErrResourceUnavailable.Code,
		ErrInstructorConflict.Code, ErrDuplicateClassSlot.Code, ErrHorizonExceeded.Code,
		ErrAppointmentFinal.Code, ErrCancellationTooLate.Code, ErrPendingDebt.Code,
		ErrNoShowLimit.Code:
		return true
	}
	return false
}
