package model

import (
	"errors"
	"fmt"
)

// ErrorCode represents a structured error code.
type ErrorCode string

const (
	ErrCodeParse      ErrorCode = "PARSE_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// Sentinel errors. Use errors.Is to classify a failure.
var (
	ErrParse      = errors.New("scenario parse error")
	ErrValidation = errors.New("scenario validation error")
	ErrInvariant  = errors.New("engine invariant violated")
)

// Error is a structured error describing an invalid scenario.
type Error struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%d problems, first: %s)", e.Code, e.Message, len(e.Details), e.Details[0])
}

// Unwrap lets callers match the error class with errors.Is.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeParse:
		return ErrParse
	case ErrCodeValidation:
		return ErrValidation
	case ErrCodeInternal:
		return ErrInvariant
	}
	return nil
}

// FieldError describes a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return f.Field + ": " + f.Message
}

// NewValidationError creates an Error with validation details.
func NewValidationError(msg string, details ...FieldError) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg, Details: details}
}

// ParseError reports malformed scenario input. Line is 1-based, 0 when unknown.
type ParseError struct {
	Line    int
	Token   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	if e.Token == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("line %d: %s (near %q)", e.Line, e.Message, e.Token)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// InternalError signals a broken engine invariant. It is fatal for the run.
type InternalError struct {
	Tick   int
	TaskID int // 0 when no task is involved
	Reason string
	Err    error
}

func (e *InternalError) Error() string {
	msg := fmt.Sprintf("internal error at tick %d", e.Tick)
	if e.TaskID != 0 {
		msg += fmt.Sprintf(" (task %s)", TaskLabel(e.TaskID))
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrInvariant together with the underlying cause, if any.
func (e *InternalError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvariant, e.Err}
	}
	return []error{ErrInvariant}
}

// InvalidTransitionError is returned when a state transition is invalid.
type InvalidTransitionError struct {
	TaskID int
	From   TaskState
	To     TaskState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid task state transition: %s → %s (task %s)", e.From, e.To, TaskLabel(e.TaskID))
}
