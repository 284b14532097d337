// Package errors provides standardized error handling for simulation-tools.
// It includes error classification, sentinel errors for message validation
// and component lifecycle conditions, and helper functions for consistent
// error wrapping across the system.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes.
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration.
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop the component.
	ErrorFatal
)

// String returns the string representation of ErrorClass.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors for message schema validation. Direct code-path
// construction of messages fails loudly with one of these so that
// programmer mistakes are caught early, while decoding untrusted input
// never surfaces them to the caller.
var (
	ErrInvalidDate      = errors.New("invalid datetime value")
	ErrInvalidMessageID = errors.New("invalid message id")
	ErrInvalidSource    = errors.New("invalid source process id")
	ErrInvalidType      = errors.New("invalid message type")
	ErrInvalidEpoch     = errors.New("invalid epoch number")
	ErrInvalidValue     = errors.New("invalid attribute value")
	ErrInvalidState     = errors.New("invalid simulation state")
	ErrInvalidUnit      = errors.New("invalid unit of measure")
)

// Sentinel errors for component lifecycle and transport conditions.
var (
	ErrAlreadyStarted = errors.New("component already started")
	ErrNotStarted     = errors.New("component not started")
	ErrClientClosed   = errors.New("bus client is closed")

	ErrNoConnection       = errors.New("no connection available")
	ErrConnectionLost     = errors.New("connection lost")
	ErrSubscriptionFailed = errors.New("subscription failed")

	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification and the component
// and operation it originated from.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and may be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	return errors.Is(err, ErrNoConnection) ||
		errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, ErrSubscriptionFailed)
}

// IsInvalid checks if an error is due to invalid input.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidMessageID) ||
		errors.Is(err, ErrInvalidSource) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrInvalidEpoch) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidUnit)
}

// IsFatal checks if an error is fatal and should stop the component.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrMissingConfig)
}

// Classify returns the error class for an error.
func Classify(err error) ErrorClass {
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}
	return ErrorTransient
}

// newClassified creates a new classified error.
// Use WrapTransient, WrapFatal or WrapInvalid instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context.
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context.
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context.
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// Invalid creates a new invalid-input error from a message value.
// The sentinel identifies which attribute check failed; the detail
// describes the offending value.
func Invalid(sentinel error, detail string) error {
	return newClassified(ErrorInvalid, sentinel, "", "", fmt.Sprintf("%s: %s", sentinel.Error(), detail))
}

// As is a convenience re-export of the standard library errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is a convenience re-export of the standard library errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
