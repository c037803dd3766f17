package session

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal")
)

// SessionError wraps a sentinel error with a specific code and message for
// the caller to present.
type SessionError struct {
	Err     error
	Code    string
	Message string
}

func (e *SessionError) Error() string { return e.Message }
func (e *SessionError) Unwrap() error { return e.Err }

// NewError creates a SessionError wrapping the given sentinel.
func NewError(sentinel error, code, message string) *SessionError {
	return &SessionError{Err: sentinel, Code: code, Message: message}
}

func NotFound(code, message string) *SessionError {
	return NewError(ErrNotFound, code, message)
}

func Internal(code, message string) *SessionError {
	return NewError(ErrInternal, code, message)
}
