// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrConnectionFailed = errors.New("connection failed")
	ErrRateLimited      = errors.New("rate limited")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrInputValidation  = errors.New("input validation failed")
	ErrSnapshotFormat   = errors.New("unsupported snapshot format")
	ErrMalformedRecord  = errors.New("malformed record")
)

// BrokerError is a failed Kite Connect call. Endpoint names the API route
// ("portfolio/positions", "gtt/triggers") or the local step ("config",
// "session") that failed. Status and Kind carry Kite's HTTP status and
// exception type when the API answered.
type BrokerError struct {
	Endpoint string
	Status   int
	Kind     string
	Message  string
	Err      error
}

func (e *BrokerError) Error() string {
	where := e.Endpoint
	if e.Status != 0 {
		where = fmt.Sprintf("%s %d", where, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("kite %s: %s: %v", where, e.Message, e.Err)
	}
	return fmt.Sprintf("kite %s: %s", where, e.Message)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// Temporary reports whether repeating the call may succeed.
func (e *BrokerError) Temporary() bool {
	return errors.Is(e.Err, ErrConnectionFailed) || errors.Is(e.Err, ErrRateLimited)
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(endpoint, message string, err error) *BrokerError {
	return &BrokerError{
		Endpoint: endpoint,
		Message:  message,
		Err:      err,
	}
}

// ValidationError represents a validation error.
// Message is written for the trader and is shown verbatim.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// RecordError reports an upstream record that could not be used as given:
// a position row, a conditional-order group or a whole snapshot file.
// Index is the record's position in its input list, or -1.
type RecordError struct {
	Source  string
	Index   int
	Subject string
	Reason  string
	Err     error
}

func (e *RecordError) Error() string {
	where := e.Source
	if e.Index >= 0 {
		where = fmt.Sprintf("%s[%d]", where, e.Index)
	}
	if e.Subject != "" {
		where += " " + e.Subject
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", where, e.Reason)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError creates a new RecordError.
func NewRecordError(source string, index int, subject, reason string, err error) *RecordError {
	return &RecordError{
		Source:  source,
		Index:   index,
		Subject: subject,
		Reason:  reason,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
