// Error types reported by docmerge.

package docmerge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// ErrAbsent is returned by a Resolver when a value does not exist. Loops
// report it as a ResolutionError wrapping an AbsentValueError; conditionals
// treat it as false.
var ErrAbsent = errors.New("docmerge: value absent")

// ResolutionError represents a resolver failure or a value that does not
// fit where it is used (e.g. a number bound to a loop)
type ResolutionError struct {
	Expr  string
	Cause error
}

func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resolution error for '%s': %v", e.Expr, e.Cause)
	}
	return fmt.Sprintf("resolution error for '%s'", e.Expr)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// NewResolutionError creates a new resolution error
func NewResolutionError(expr string, cause error) error {
	return &ResolutionError{Expr: expr, Cause: cause}
}

// AbsentValueError is the cause of the ResolutionError raised when a loop
// collection does not exist
type AbsentValueError struct {
	Expr string
}

func (e *AbsentValueError) Error() string {
	return fmt.Sprintf("absent value for loop over '%s'", e.Expr)
}

func (e *AbsentValueError) Unwrap() error {
	return ErrAbsent
}

// HookError represents a failing hook helper
type HookError struct {
	Name  string
	Cause error
}

func (e *HookError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("hook error in '%s': %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("hook error in '%s'", e.Name)
}

func (e *HookError) Unwrap() error {
	return e.Cause
}

// DocumentError represents an error during document operations
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("document error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("document error during %s of '%s'", e.Operation, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("document error during %s", e.Operation)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error
func NewDocumentError(operation, path string, cause error) error {
	return &DocumentError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// ValidationIssue represents a single validation problem
type ValidationIssue struct {
	Field   string
	Message string
}

// ValidationError represents multiple validation issues
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation error"
	}

	if len(e.Issues) == 1 {
		return fmt.Sprintf("validation error: %s - %s", e.Issues[0].Field, e.Issues[0].Message)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d validation issues:", len(e.Issues)))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("  %s: %s", issue.Field, issue.Message))
	}
	return strings.Join(parts, "\n")
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Errors returns the collected errors
func (m *MultiError) Errors() []error {
	return m.errors
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.errors
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsInvalidTree checks if an error is a structural tree error
func IsInvalidTree(err error) bool {
	return tree.IsInvalidTree(err)
}

// IsTemplateSyntaxError checks if an error is a template syntax error
func IsTemplateSyntaxError(err error) bool {
	return tree.IsTemplateSyntax(err)
}

// IsResolutionError checks if an error is a resolution error
func IsResolutionError(err error) bool {
	var target *ResolutionError
	return errors.As(err, &target)
}

// IsAbsentValueError checks if an error is an absent loop value
func IsAbsentValueError(err error) bool {
	var target *AbsentValueError
	return errors.As(err, &target)
}

// IsHookError checks if an error is a hook error
func IsHookError(err error) bool {
	var target *HookError
	return errors.As(err, &target)
}

// IsDocumentError checks if an error is a document error
func IsDocumentError(err error) bool {
	var target *DocumentError
	return errors.As(err, &target)
}

// IsValidationError checks if an error is a configuration validation error
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
