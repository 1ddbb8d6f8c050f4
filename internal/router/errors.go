package router

import (
	"fmt"
	"net/http"
)

// Error is a request failure that maps onto an HTTP status.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status code for the error's code.
func (e *Error) Status() int {
	switch e.Code {
	case ErrCodeMalformedRequest, ErrCodeBadPin, ErrCodeBadState, ErrCodeBadDuty:
		return http.StatusBadRequest
	case ErrCodeUnsupportedMethod:
		return http.StatusMethodNotAllowed
	case ErrCodePinNotAllowed:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error codes
const (
	ErrCodeMalformedRequest  = "MALFORMED_REQUEST"
	ErrCodeUnsupportedMethod = "UNSUPPORTED_METHOD"
	ErrCodePinNotAllowed     = "PIN_NOT_ALLOWED"
	ErrCodeBadPin            = "BAD_PIN"
	ErrCodeBadState          = "BAD_STATE"
	ErrCodeBadDuty           = "BAD_DUTY"
	ErrCodeHardwareFault     = "HARDWARE_FAULT"
)

// NewError creates a new router error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func errPinNotAllowed(pin int) *Error {
	return NewError(ErrCodePinNotAllowed, fmt.Sprintf("PIN NOT ALLOWED: pin %d is not in the allow-list", pin), nil)
}

func errIndicatorPin(pin int) *Error {
	return NewError(ErrCodePinNotAllowed, fmt.Sprintf("PIN NOT ALLOWED: pin %d drives the builtin indicator", pin), nil)
}

func errHardware(cause error) *Error {
	return NewError(ErrCodeHardwareFault, "HARDWARE ERROR", cause)
}
