package updater

import (
	"errors"
	"fmt"
)

// Code classifies an update failure. The admin API maps codes to HTTP statuses.
type Code string

// Error codes for update operations.
const (
	ErrCodeInvalidState   Code = "INVALID_STATE"
	ErrCodeCheckFailed    Code = "CHECK_FAILED"
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeNoUpdate       Code = "NO_UPDATE"
	ErrCodeApplyFailed    Code = "APPLY_FAILED"
	ErrCodeBackupFailed   Code = "BACKUP_FAILED"
	ErrCodeRollbackFailed Code = "ROLLBACK_FAILED"
	ErrCodeNoBackup       Code = "NO_BACKUP"
	ErrCodeDisabled       Code = "DISABLED"
)

// Error is an update failure with a code and an optional cause.
type Error struct {
	Code    Code
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

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, &updater.Error{Code: updater.ErrCodeNoBackup}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var uerr *Error
	if errors.As(err, &uerr) {
		return uerr.Code
	}
	return ""
}

func newError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
