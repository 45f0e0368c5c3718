package errors

import (
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// ErrorTypeUnknown represents an unclassified error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeValidation represents argument/flag validation errors
	ErrorTypeValidation
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig
	// ErrorTypeRuntime represents general runtime errors
	ErrorTypeRuntime
)

// CLIError wraps errors with type information and context for better UX
type CLIError struct {
	Type    ErrorType
	Err     error
	Context string // Additional context or help text for the user
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%v\n%s", e.Err, e.Context)
	}
	return e.Err.Error()
}

// Unwrap implements error unwrapping for Go 1.13+ error chains
func (e *CLIError) Unwrap() error {
	return e.Err
}

// ValidationError creates a validation error (shows usage hints)
func ValidationError(err error, context string) *CLIError {
	return &CLIError{
		Type:    ErrorTypeValidation,
		Err:     err,
		Context: context,
	}
}

// ConfigError creates a configuration error
func ConfigError(err error) *CLIError {
	return &CLIError{
		Type: ErrorTypeConfig,
		Err:  err,
	}
}

// ConfigErrorWithContext creates a configuration error with context
func ConfigErrorWithContext(err error, context string) *CLIError {
	return &CLIError{
		Type:    ErrorTypeConfig,
		Err:     err,
		Context: context,
	}
}

// RuntimeError creates a runtime error
func RuntimeError(err error) *CLIError {
	return &CLIError{
		Type: ErrorTypeRuntime,
		Err:  err,
	}
}
