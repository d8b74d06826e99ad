// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"fmt"
	"strings"
)

type (
	// ActionableError is a user-facing error that says what mk was doing,
	// on which file or task, and how the user can fix it.
	//
	// Build one with ErrorContext:
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("load task file").
	//		WithResource("./tasks.yaml").
	//		WithSuggestion("Pass another task file with -c").
	//		Wrap(originalErr).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "build container image".
		Operation string
		// Resource names the file, image or task involved, if any.
		Resource string
		// Suggestions are printed one per line under the message.
		Suggestions []string
		// Cause is the underlying error.
		Cause error
	}

	// ErrorContext is a fluent builder for ActionableError. Context can be
	// set up front and the cause attached once a failure happens.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext creates a new ErrorContext builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error renders "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause error for use with errors.Is/As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the message followed by the suggestions. Verbose output
// also lists every error in the cause tree, including the branches of
// joined errors.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, s := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(s)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		for i, err := range causeChain(e.Cause) {
			fmt.Fprintf(&msg, "\n  %d. %s", i+1, err.Error())
		}
	}
	return msg.String()
}

// causeChain flattens the cause tree depth first.
func causeChain(err error) []error {
	var out []error
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		out = append(out, err)
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// WithOperation sets the operation being performed.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithResource sets the file, image or task involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends a suggestion.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

// WithSuggestions appends several suggestions.
func (c *ErrorContext) WithSuggestions(sugs ...string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sugs...)
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns a copy of the accumulated error, or nil when no operation
// was set. The builder stays usable afterwards.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &ae
}

// BuildError is Build typed as error, so a missing operation yields a true
// nil interface.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
