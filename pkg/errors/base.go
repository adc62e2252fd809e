package errors

import "fmt"

// baseError carries the code, message and context shared by every error type in this package.
type baseError struct {
	cause   error          // The original error that caused this one.
	message string         // The error message that will be displayed to users.
	code    ErrorCode      // Error code for categorizing the error type programmatically.
	details map[string]any // Additional context such as sizes or brick indexes.
}

// NewBaseError creates a new baseError with the given underlying error and message.
func NewBaseError(err error, code ErrorCode, msg string) *baseError {
	return &baseError{cause: err, code: code, message: msg}
}

// WithMessage updates the error message.
func (be *baseError) WithMessage(msg string) *baseError {
	be.message = msg
	return be
}

// WithCode sets the error code for this error.
func (be *baseError) WithCode(code ErrorCode) *baseError {
	be.code = code
	return be
}

// WithDetail adds contextual information.
func (be *baseError) WithDetail(key string, value any) *baseError {
	if be.details == nil {
		be.details = make(map[string]any)
	}
	be.details[key] = value
	return be
}

// Error returns the error message, followed by the cause when there is one.
func (be *baseError) Error() string {
	if be.cause != nil {
		return fmt.Sprintf("%s: %v", be.message, be.cause)
	}
	return be.message
}

// Unwrap returns the underlying error.
func (be *baseError) Unwrap() error {
	return be.cause
}

// Code returns the error code.
func (be *baseError) Code() ErrorCode {
	return be.code
}

// Details returns the additional context information stored with this error.
func (be *baseError) Details() map[string]any {
	return be.details
}
