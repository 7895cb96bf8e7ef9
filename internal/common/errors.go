package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error taxonomy. NotFound, MissingInformation and ValidationFailed surface
// to the caller, who decides whether to skip or abort. MalformedDefinition
// and TypeConflict always abort: the definition or the data is wrong.
var (
	ErrNotFound             = errors.New("resource not found")
	ErrMissingInformation   = errors.New("missing information")
	ErrValidationFailed     = errors.New("validation failed")
	ErrUnsupportedWaferType = errors.New("unsupported wafer type")
	ErrMalformedDefinition  = errors.New("malformed datasheet definition")
	ErrTypeConflict         = errors.New("type conflict")
	ErrDatabase             = errors.New("database error")
	ErrInvalidInput         = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func MissingInformationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrMissingInformation)...)
}

func MalformedDefinitionf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrMalformedDefinition)...)
}

func TypeConflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrTypeConflict)...)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
