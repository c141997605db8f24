package engine

import (
	"errors"
	"fmt"
)

// Error represents an error detected by the engine.
//
// Engine errors include:
//   - Invalid configuration: non-positive surface or project size
//   - Materialization failure: a handler returned an error or panicked
//   - Unknown kind: no handler registered for the element kind
//   - Unsupported sync: the kind cannot convert a gesture back
//   - Not materialized: a command targets an element without a live handle
//
// Only configuration errors are fatal; everything else is logged and the
// affected element is skipped.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ElementID identifies the affected element, if any.
	ElementID string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeConfigInvalid indicates a setup parameter is unusable.
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// ErrCodeMaterializeFailed indicates a handler failed for one element.
	ErrCodeMaterializeFailed ErrorCode = "MATERIALIZE_FAILED"

	// ErrCodeUnknownKind indicates no handler is registered for a kind.
	ErrCodeUnknownKind ErrorCode = "UNKNOWN_KIND"

	// ErrCodeSyncUnsupported indicates the kind has no Syncer.
	ErrCodeSyncUnsupported ErrorCode = "SYNC_UNSUPPORTED"

	// ErrCodeNotMaterialized indicates the element has no live handle.
	ErrCodeNotMaterialized ErrorCode = "NOT_MATERIALIZED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ElementID != "" {
		return fmt.Sprintf("%s: %s (element=%s)", e.Code, e.Message, e.ElementID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsConfigError returns true if the error is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeConfigInvalid)
}

// IsMaterializeError returns true if the error is a materialization failure.
func IsMaterializeError(err error) bool {
	return hasCode(err, ErrCodeMaterializeFailed)
}

// IsUnknownKindError returns true if no handler was registered for the kind.
func IsUnknownKindError(err error) bool {
	return hasCode(err, ErrCodeUnknownKind)
}

// IsNotMaterializedError returns true if the target had no live handle.
func IsNotMaterializedError(err error) bool {
	return hasCode(err, ErrCodeNotMaterialized)
}

// NewConfigError creates an Error for invalid setup parameters.
func NewConfigError(err error) *Error {
	return &Error{
		Code:    ErrCodeConfigInvalid,
		Message: err.Error(),
		Err:     err,
	}
}

// NewMaterializeError creates an Error for a failed materialization.
func NewMaterializeError(elementID, kind string, err error) *Error {
	return &Error{
		Code:      ErrCodeMaterializeFailed,
		Message:   err.Error(),
		ElementID: elementID,
		Details:   map[string]string{"kind": kind},
		Err:       err,
	}
}

// NewUnknownKindError creates an Error for an unregistered kind.
func NewUnknownKindError(elementID, kind string) *Error {
	return &Error{
		Code:      ErrCodeUnknownKind,
		Message:   fmt.Sprintf("no handler registered for kind %q", kind),
		ElementID: elementID,
		Details:   map[string]string{"kind": kind},
	}
}

// NewNotMaterializedError creates an Error for a command on an element
// without a live handle.
func NewNotMaterializedError(elementID string) *Error {
	return &Error{
		Code:      ErrCodeNotMaterialized,
		Message:   "element has no live handle",
		ElementID: elementID,
	}
}

// NewSyncUnsupportedError creates an Error for a kind without a Syncer.
func NewSyncUnsupportedError(elementID, kind string) *Error {
	return &Error{
		Code:      ErrCodeSyncUnsupported,
		Message:   fmt.Sprintf("kind %q cannot sync gestures", kind),
		ElementID: elementID,
		Details:   map[string]string{"kind": kind},
	}
}
