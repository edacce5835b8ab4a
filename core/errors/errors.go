// Package errors provides the error taxonomy for loxoracle.
//
// Expectation mismatches are never Go errors; they are collected as
// validation failures. The types here cover tooling faults: unreadable
// fixtures, bad configuration, interpreters that cannot be started and
// storage I/O.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
	// ErrToolFault indicates the interpreter under test could not be run at all
	ErrToolFault = errors.New("tool fault")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "run", "fixture", "blob")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ConfigError represents an invalid suite configuration value.
type ConfigError struct {
	Key     string // Configuration key or flag name
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("invalid configuration for %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "JUnit", "YAML", "transcript")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// FixtureError reports a fixture that could not be read or scanned.
// Self-contradictory annotations are not FixtureErrors; they are reported
// as test failures by the validator.
type FixtureError struct {
	Path string
	Line int // 0 when the failure is not tied to a line
	Err  error
}

func (e *FixtureError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("fixture %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("fixture %s: %v", e.Path, e.Err)
}

func (e *FixtureError) Unwrap() error {
	return e.Err
}

// InterpreterError reports an interpreter under test that could not be
// started or waited on. Abnormal exits are not InterpreterErrors; they
// surface as exit-code mismatches.
type InterpreterError struct {
	Executable string
	Fixture    string
	Err        error
}

func (e *InterpreterError) Error() string {
	if e.Fixture != "" {
		return fmt.Sprintf("cannot run %s on %s: %v", e.Executable, e.Fixture, e.Err)
	}
	return fmt.Sprintf("cannot run %s: %v", e.Executable, e.Err)
}

func (e *InterpreterError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrToolFault}
	}
	return []error{ErrToolFault, e.Err}
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewConfig creates a ConfigError
func NewConfig(key, message string) *ConfigError {
	return &ConfigError{
		Key:     key,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewFixture creates a FixtureError
func NewFixture(path string, line int, err error) *FixtureError {
	return &FixtureError{
		Path: path,
		Line: line,
		Err:  err,
	}
}

// NewInterpreter creates an InterpreterError
func NewInterpreter(executable, fixture string, err error) *InterpreterError {
	return &InterpreterError{
		Executable: executable,
		Fixture:    fixture,
		Err:        err,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
