package ics

import "fmt"

// ErrorType classifies feed errors.
type ErrorType string

const (
	ErrFetch    ErrorType = "fetch"
	ErrStatus   ErrorType = "status"
	ErrTooLarge ErrorType = "too_large"
	ErrDecode   ErrorType = "decode"
)

// Error represents a feed-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
