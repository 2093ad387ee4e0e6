package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a snapdiff error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrInputNotFound      ErrorCode = "INPUT_NOT_FOUND"     // 404 (recoverable)
	ErrUnknownSource      ErrorCode = "UNKNOWN_SOURCE"      // 404
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrSchemaIncompatible ErrorCode = "SCHEMA_INCOMPATIBLE" // 422
	ErrInvalidSnapshot    ErrorCode = "INVALID_SNAPSHOT"    // 422
	ErrCancelled          ErrorCode = "CANCELLED"           // 499
	ErrWriteFailed        ErrorCode = "WRITE_FAILED"        // 500
	ErrInternal           ErrorCode = "INTERNAL"            // 500
)

// SnapError represents a structured error with code, status, and details.
type SnapError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SnapError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SnapError {
	return &SnapError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInputNotFound creates a 404 error for a snapshot file that does not exist.
// Callers treat it as "no result" and may skip the source.
func NewInputNotFound(path string) *SnapError {
	return &SnapError{
		Code:    ErrInputNotFound,
		Status:  404,
		Message: fmt.Sprintf("snapshot not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewUnknownSource creates a 404 error for a source missing from the configuration.
func NewUnknownSource(source string) *SnapError {
	return &SnapError{
		Code:    ErrUnknownSource,
		Status:  404,
		Message: fmt.Sprintf("source is not configured: %s", source),
		Details: map[string]any{"source": source},
	}
}

// NewNotFound creates a 404 error for a missing report or index entry.
func NewNotFound(identifier string) *SnapError {
	return &SnapError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewSchemaIncompatible creates a 422 error when a snapshot lacks a required column.
func NewSchemaIncompatible(path, column string) *SnapError {
	return &SnapError{
		Code:    ErrSchemaIncompatible,
		Status:  422,
		Message: fmt.Sprintf("snapshot %s has no %q column", path, column),
		Details: map[string]any{"path": path, "column": column},
	}
}

// NewInvalidSnapshot creates a 422 error for an unreadable or malformed snapshot.
func NewInvalidSnapshot(path string, err error) *SnapError {
	msg := "malformed snapshot"
	if err != nil {
		msg = err.Error()
	}
	return &SnapError{
		Code:    ErrInvalidSnapshot,
		Status:  422,
		Message: fmt.Sprintf("cannot read snapshot %s: %s", path, msg),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled via context.
func NewCancelled(operation string) *SnapError {
	return &SnapError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewWriteFailed creates a 500 error when a report artifact cannot be persisted.
func NewWriteFailed(path string, err error) *SnapError {
	msg := "write failed"
	if err != nil {
		msg = err.Error()
	}
	return &SnapError{
		Code:    ErrWriteFailed,
		Status:  500,
		Message: fmt.Sprintf("failed to write %s: %s", path, msg),
		Details: map[string]any{"path": path},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SnapError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SnapError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a SnapError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SnapError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// IsRecoverable reports whether a caller may skip the failing source and go on.
// Only a missing input snapshot qualifies.
func IsRecoverable(err error) bool {
	return Is(err, ErrInputNotFound)
}

// As returns the SnapError in err's chain, if any.
func As(err error) (*SnapError, bool) {
	var sErr *SnapError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}

// Object renders err as the JSON error object returned by every interface.
// Errors that are not SnapErrors become INTERNAL. Details are dropped for
// internal errors so SQL text and file paths don't leak.
func Object(err error) map[string]any {
	sErr, ok := As(err)
	if !ok {
		sErr = NewInternal(err)
	}
	obj := map[string]any{
		"code":    sErr.Code,
		"message": sErr.Message,
		"status":  sErr.Status,
	}
	if sErr.Code != ErrInternal && len(sErr.Details) > 0 {
		obj["details"] = sErr.Details
	}
	return obj
}
