package tree

import (
	"errors"
	"fmt"
)

// InvalidTreeError reports a structural violation: a node owned twice, or a
// parent link that does not match the child list it points into.
type InvalidTreeError struct {
	Op      string
	Message string
}

func (e *InvalidTreeError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("invalid tree during %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("invalid tree: %s", e.Message)
}

// NewInvalidTreeError creates a new invalid tree error
func NewInvalidTreeError(op, message string) error {
	return &InvalidTreeError{Op: op, Message: message}
}

// TemplateSyntaxError reports template content that violates a structural
// precondition, e.g. text outside the run-text container or an unmatched
// command.
type TemplateSyntaxError struct {
	Message  string
	Tag      string
	Expected string
	Command  string
}

func (e *TemplateSyntaxError) Error() string {
	msg := "template syntax error: " + e.Message
	if e.Command != "" {
		msg += fmt.Sprintf(" (command %q)", e.Command)
	}
	if e.Expected != "" {
		if e.Tag != "" {
			msg += fmt.Sprintf(" (found <%s>, expected <%s>)", e.Tag, e.Expected)
		} else {
			msg += fmt.Sprintf(" (expected <%s>)", e.Expected)
		}
	}
	return msg
}

// IsInvalidTree checks if err wraps an InvalidTreeError
func IsInvalidTree(err error) bool {
	var target *InvalidTreeError
	return errors.As(err, &target)
}

// IsTemplateSyntax checks if err wraps a TemplateSyntaxError
func IsTemplateSyntax(err error) bool {
	var target *TemplateSyntaxError
	return errors.As(err, &target)
}
