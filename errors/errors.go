// Package errors provides standardized error handling patterns for CycleKit
// components. It includes error classification, standard error variables, and
// helper functions for consistent error wrapping across the runtime.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorConfig represents wiring/construction errors. They are raised
	// before any stream processing begins and always halt component
	// construction.
	ErrorConfig ErrorClass = iota
	// ErrorData represents per-event errors. The offending event is
	// dropped and the stream continues processing subsequent events.
	ErrorData
	// ErrorFatal represents unrecoverable processing errors that should
	// stop the component.
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorConfig:
		return "config"
	case ErrorData:
		return "data"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Component construction errors
	ErrMissingName      = errors.New("component name is required")
	ErrInvalidSources   = errors.New("sources must be a non-nil map")
	ErrInvalidIntent    = errors.New("intent must return an action stream or an action/data stream map")
	ErrInvalidModel     = errors.New("model entry must be a reducer or a sink/reducer map")
	ErrDuplicateReducer = errors.New("reducer already registered for action and sink")
	ErrInvalidRequest   = errors.New("request map entry is missing or mistyped")
	ErrInvalidResponse  = errors.New("response requires a request map")
	ErrUnknownMethod    = errors.New("request source does not expose method capability")
	ErrMissingSource    = errors.New("required source is not available")

	// Registry errors
	ErrDuplicateFactory = errors.New("factory already registered")
	ErrUnknownFactory   = errors.New("no factory registered under that name")

	// Event processing errors
	ErrMissingRequestID  = errors.New("event is missing a request correlation id")
	ErrUnsupportedReturn = errors.New("reducer returned an unsupported type")
	ErrHandlerPanic      = errors.New("route handler panicked")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("component already started")
	ErrStreamClosed   = errors.New("stream already completed")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsConfig checks if an error is a construction/wiring error
func IsConfig(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorConfig
	}

	return errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrInvalidSources) ||
		errors.Is(err, ErrInvalidIntent) ||
		errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, ErrDuplicateReducer) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrUnknownMethod) ||
		errors.Is(err, ErrMissingSource) ||
		errors.Is(err, ErrDuplicateFactory) ||
		errors.Is(err, ErrUnknownFactory)
}

// IsData checks if an error is a droppable per-event error
func IsData(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorData
	}

	return errors.Is(err, ErrMissingRequestID) ||
		errors.Is(err, ErrHandlerPanic)
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrUnsupportedReturn)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if IsConfig(err) {
		return ErrorConfig
	}
	if IsFatal(err) {
		return ErrorFatal
	}

	// Unknown errors default to droppable so one bad event cannot stall
	// the bus.
	return ErrorData
}

// newClassified creates a new classified error
// This is an internal helper - use WrapConfig(), WrapData(), or WrapFatal() instead.
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

// WrapConfig wraps an error as a construction error with context
func WrapConfig(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorConfig, wrappedErr, component, method, wrappedErr.Error())
}

// WrapData wraps an error as a droppable per-event error with context
func WrapData(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorData, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}
