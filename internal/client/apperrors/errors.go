// Package apperrors defines the client-side error taxonomy.
//
// Three kinds of failure reach the user:
//
//   - ValidationError: detected locally, no network call was made (weak
//     password, mismatched confirmation, empty required field).
//   - TransportError: a collaborator call failed (network, server, auth
//     rejection). Its Message is user-safe; Cause is for logs only.
//   - ConcurrentOperationError: an operation was triggered while the same
//     operation slot was still pending.
//
// UserMessage turns any error into text that is safe to show in a
// notification.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Field names a form input that failed validation.
type Field string

const (
	FieldEmail        Field = "email"
	FieldFullName     Field = "full_name"
	FieldPassword     Field = "password"
	FieldConfirmation Field = "confirmation"
)

// ValidationError is a locally detected input problem.
type ValidationError struct {
	Fields  []Field
	Message string
}

// Validation creates a ValidationError flagging the given fields.
func Validation(message string, fields ...Field) *ValidationError {
	return &ValidationError{Fields: fields, Message: message}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation: " + e.Message
	}
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("validation: %s [%s]", e.Message, strings.Join(names, ","))
}

// Has reports whether f was flagged.
func (e *ValidationError) Has(f Field) bool {
	for _, x := range e.Fields {
		if x == f {
			return true
		}
	}
	return false
}

// TransportError wraps a failed collaborator call.
type TransportError struct {
	Message string
	Cause   error
}

// Transport creates a TransportError with a user-safe message.
func Transport(message string, cause error) *TransportError {
	return &TransportError{Message: message, Cause: cause}
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport: %s: %v", e.Message, e.Cause)
	}
	return "transport: " + e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ConcurrentOperationError rejects a run while another one is pending.
type ConcurrentOperationError struct {
	Operation string
}

func (e *ConcurrentOperationError) Error() string {
	return fmt.Sprintf("operation %q is already in progress", e.Operation)
}

// GenericMessage is shown for failures that carry no user-safe text.
const GenericMessage = "Something went wrong, please try again"

// UserMessage returns text safe to display for err. Causes are never
// echoed; errors outside the taxonomy map to GenericMessage.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Message
	}
	var ce *ConcurrentOperationError
	if errors.As(err, &ce) {
		return "Please wait for the current request to finish"
	}
	return GenericMessage
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConcurrent reports whether err is (or wraps) a ConcurrentOperationError.
func IsConcurrent(err error) bool {
	var ce *ConcurrentOperationError
	return errors.As(err, &ce)
}
