package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
)

// Dispatch and scheduler error codes
const (
	ErrOccurrenceNotFound ErrorCode = iota + 2000
	ErrSubscriberQuery
	ErrChannelAttempt
	ErrSchedulerTick
	ErrSchedulerRow
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func OccurrenceNotFound(id fmt.Stringer, err error) *AppError {
	return &AppError{
		Code:    ErrOccurrenceNotFound,
		Message: fmt.Sprintf("alert occurrence %s not found", id),
		Err:     err,
	}
}

func SubscriberQuery(kind string, err error) *AppError {
	return &AppError{
		Code:    ErrSubscriberQuery,
		Message: fmt.Sprintf("failed to query %s subscriptions", kind),
		Err:     err,
	}
}

func ChannelAttempt(channel string, err error) *AppError {
	return &AppError{
		Code:    ErrChannelAttempt,
		Message: fmt.Sprintf("%s delivery failed", channel),
		Err:     err,
	}
}

func SchedulerTick(err error) *AppError {
	return &AppError{
		Code:    ErrSchedulerTick,
		Message: "reminder tick failed",
		Err:     err,
	}
}

func SchedulerRow(requestID fmt.Stringer, err error) *AppError {
	return &AppError{
		Code:    ErrSchedulerRow,
		Message: fmt.Sprintf("reminder for service request %s failed", requestID),
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// Is reports whether any error in err's chain is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatus maps an error onto the status the API responds with.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case ErrNotFound, ErrOccurrenceNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
