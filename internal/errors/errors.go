package errors

import (
	stderrors "errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

type ErrorType string

const (
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeInvalidInput ErrorType = "INVALID_INPUT"
	ErrTypeConflict     ErrorType = "CONFLICT"
	ErrTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrTypeDelivery     ErrorType = "DELIVERY"
	ErrTypeInternal     ErrorType = "INTERNAL"
)

type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   []byte
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) StackTrace() []byte {
	return e.Stack
}

func New(errType ErrorType, message string, err error) *DomainError {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

func NotFound(message string, err error) *DomainError {
	return New(ErrTypeNotFound, message, err)
}

func InvalidInput(message string, err error) *DomainError {
	return New(ErrTypeInvalidInput, message, err)
}

func Conflict(message string, err error) *DomainError {
	return New(ErrTypeConflict, message, err)
}

func Unauthorized(message string, err error) *DomainError {
	return New(ErrTypeUnauthorized, message, err)
}

// Delivery reports a side effect (email, notification) that failed after the
// entity change was committed.
func Delivery(message string, err error) *DomainError {
	return New(ErrTypeDelivery, message, err)
}

func Internal(message string, err error) *DomainError {
	return New(ErrTypeInternal, message, err)
}

// TypeOf returns the type of the first DomainError in err's chain, or
// ErrTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Type
	}
	return ErrTypeInternal
}

// Is reports whether err carries a DomainError of the given type
func Is(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	return TypeOf(err) == errType
}

// IsDelivery reports whether err only describes a failed side effect, meaning
// the primary write succeeded.
func IsDelivery(err error) bool {
	return Is(err, ErrTypeDelivery)
}
