package ux

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/richmansdream/crmdesk/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a suggestion to uncoded errors whose message points at a
// known cause. Coded errors already carry their suggestions.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var crmErr *errors.CRMError
	if stderrors.As(err, &crmErr) {
		return err
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return NewErrorWithSuggestion(err,
			"Check --api-url, or start a local backend with 'crmdesk stub serve'")
	}

	if strings.Contains(errMsg, "permission denied") {
		return NewErrorWithSuggestion(err,
			"Check permissions on ~/.crmdesk and its files")
	}

	if strings.Contains(errMsg, "invalid --query") {
		return NewErrorWithSuggestion(err,
			"See https://jmespath.site for the query syntax, e.g. --query 'leads[].name'")
	}

	return err
}

// Describe renders err for a terminal: the message, its code when coded,
// and any suggestions as a bulleted list.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	err = EnhanceError(err)

	var crmErr *errors.CRMError
	if !stderrors.As(err, &crmErr) {
		return err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", crmErr.Message, crmErr.Code)
	if crmErr.Cause != nil {
		if cause := crmErr.Cause.Error(); cause != crmErr.Message {
			fmt.Fprintf(&b, "\n  cause: %s", cause)
		}
	}
	if len(crmErr.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, s := range crmErr.Suggestions {
			b.WriteString("\n  • ")
			b.WriteString(s)
		}
	}
	return b.String()
}
