// Package errors provides the error types used throughout metasync.
// Typed errors carry enough context for logging and support errors.Is
// checks against the sentinel values declared here.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are the standard library helpers, re-exported so callers need a
// single errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotAuthenticated indicates an API client was used before Authenticate.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrCredentialsInvalid indicates that the remote system rejected the credentials.
	ErrCredentialsInvalid = errors.New("credentials invalid")

	// ErrUnavailable indicates that a remote system is temporarily unavailable.
	ErrUnavailable = errors.New("system unavailable")

	// ErrRateLimited indicates that the API rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = errors.New("operation canceled")

	// ErrFatal marks errors that must abort the run.
	ErrFatal = errors.New("fatal")
)

// NotFoundError represents an error when a resource is not found.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error returned by one of the remote systems.
type APIError struct {
	System     string // "keyfactor" or "sectigo"
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.System, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.System, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == 401 || e.StatusCode == 403:
		return target == ErrCredentialsInvalid
	case e.StatusCode == 404:
		return target == ErrNotFound
	case e.StatusCode == 429:
		return target == ErrRateLimited
	case e.StatusCode >= 500:
		return target == ErrUnavailable
	}
	return false
}

// NewAPIError creates a new APIError.
func NewAPIError(system string, statusCode int, message string) *APIError {
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats.
type ParseError struct {
	Format  string // "json", "yaml", "date", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations.
type IOError struct {
	Operation string // "read", "write", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError.
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents an authentication failure against a remote system.
type AuthenticationError struct {
	System  string
	Method  string // "basic", "header"
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.System != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.System, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrCredentialsInvalid
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(system, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		System:  system,
		Method:  method,
		Message: message,
		Err:     err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsUnavailable checks if an error indicates the remote system is unavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsCanceled checks if an error is a cancellation error.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapAPI wraps an error as an APIError.
func WrapAPI(system string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
