package newsletter

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	ErrInvalid        = "invalid"
	ErrUnauthorized   = "unauthorized"
	ErrNotFound       = "not_found"
	ErrFeedLoadFailed = "feed_load_failed"
	ErrInternal       = "internal"
)

// Error is the error type shared by the services and their adapters
type Error struct {
	Code    string
	Message string
	Op      string
	Err     error
}

// Errorf returns an error with the given code and formatted message
func Errorf(code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode returns the code of the first *Error in the chain that carries one
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		return ErrInternal
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return ErrorCode(e.Err)
	}

	return ErrInternal
}

// ErrorMessage returns the human readable message of err
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		return "An internal error has occurred."
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return ErrorMessage(e.Err)
	}

	return "An internal error has occurred."
}

func (e *Error) Error() string {
	var buf bytes.Buffer

	if e.Op != "" {
		fmt.Fprintf(&buf, "%s: ", e.Op)
	}

	if e.Err != nil {
		buf.WriteString(e.Err.Error())
	} else {
		if e.Code != "" {
			fmt.Fprintf(&buf, "<%s> ", e.Code)
		}
		buf.WriteString(e.Message)
	}

	return buf.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
