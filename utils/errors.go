package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Use with errors.Is against any *AppError.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstream        = errors.New("upstream failure")
	ErrInternal        = errors.New("internal error")
)

// FieldError is one entry of a multi-field form validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is an error that knows which HTTP status it maps to.
type AppError struct {
	Kind    error
	Status  int
	Message string
	Fields  []FieldError
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

// IsOperational reports whether the error is an expected client-side failure.
func (e *AppError) IsOperational() bool {
	return e.Status < http.StatusInternalServerError
}

// StatusText is "fail" for 4xx and "error" for 5xx.
func (e *AppError) StatusText() string {
	if e.IsOperational() {
		return "fail"
	}
	return "error"
}

func newAppError(kind error, status int, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Status: status, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *AppError {
	return newAppError(ErrValidation, http.StatusBadRequest, format, args...)
}

// ValidationFields reports several form fields at once.
func ValidationFields(fields []FieldError) *AppError {
	return &AppError{
		Kind:    ErrValidation,
		Status:  http.StatusBadRequest,
		Message: "Invalid input data",
		Fields:  fields,
	}
}

func Unauthenticated(format string, args ...interface{}) *AppError {
	return newAppError(ErrUnauthenticated, http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...interface{}) *AppError {
	return newAppError(ErrForbidden, http.StatusForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *AppError {
	return newAppError(ErrNotFound, http.StatusNotFound, format, args...)
}

// Conflict uses 400 to match the legacy client which only inspects the message.
func Conflict(format string, args ...interface{}) *AppError {
	return newAppError(ErrConflict, http.StatusBadRequest, format, args...)
}

func Upstream(cause error, format string, args ...interface{}) *AppError {
	e := newAppError(ErrUpstream, http.StatusInternalServerError, format, args...)
	e.Cause = cause
	return e
}

func Internal(cause error, format string, args ...interface{}) *AppError {
	e := newAppError(ErrInternal, http.StatusInternalServerError, format, args...)
	e.Cause = cause
	return e
}

// Domain constructors.

func DuplicateBooking(message string) *AppError {
	return Conflict("%s", message)
}

func NotBooked() *AppError {
	return Validation("This user not booked this tour yet.")
}

func AlreadyReviewed() *AppError {
	return Conflict("You cannot submit another review. Only one review is allowed.")
}

func TooEarly(tourName, date string) *AppError {
	return Validation("You can only review %s after %s.", tourName, date)
}

func NoChange() *AppError {
	return Validation("You cannot submit the same review with the same rating. Please change something.")
}

func InvalidCredentials() *AppError {
	return Unauthenticated("Incorrect email or password")
}

func InvalidOrExpiredToken() *AppError {
	return Validation("Token is invalid or has expired")
}

func UserGone() *AppError {
	return Unauthenticated("The user belonging to this token does no longer exist.")
}

func StalePassword() *AppError {
	return Unauthenticated("User recently changed password! Please log in again.")
}

// AsAppError converts any error into an *AppError, wrapping unknown errors as Internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err, "Something went very wrong!")
}
