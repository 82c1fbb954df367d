// Package errors provides standardized error handling patterns for CycleKit.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// the component runtime: Config (wiring/construction problems, raised before
// any stream processing begins), Data (per-event problems, the offending event
// is dropped and the stream continues), and Fatal (unrecoverable, stop
// processing).
//
// The split mirrors the runtime's two-tier error model: configuration errors
// always halt component construction, while runtime data errors for a single
// request/response are caught, logged, and dropped without affecting the
// liveness of the action bus.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapConfig(err, "Component", "Method", "action") // construction errors
//	errors.WrapData(err, "Component", "Method", "action")   // droppable event errors
//	errors.WrapFatal(err, "Component", "Method", "action")  // unrecoverable errors
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Standard Error Variables
//
// Pre-defined error variables cover common conditions, organized by category:
//
//   - Construction: ErrMissingName, ErrInvalidIntent, ErrInvalidModel,
//     ErrInvalidRequest, ErrInvalidResponse, ErrUnknownMethod
//   - Event processing: ErrMissingRequestID, ErrUnsupportedReturn,
//     ErrHandlerPanic
//   - Lifecycle: ErrAlreadyStarted, ErrStreamClosed
//
// Use these variables instead of creating custom error messages so callers can
// branch with errors.Is rather than string matching.
//
// # Integration with errors.As/Is
//
// All error types support standard library error inspection. Classification is
// preserved through wrapping chains:
//
//	wrapped := errors.WrapConfig(errors.ErrMissingName, "Component", "New", "validate config")
//	errors.IsConfig(wrapped) // true
package errors
