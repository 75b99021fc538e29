package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeInvalidCredentials ErrorCode = "AUTH-001"
	ErrCodeTokenStore         ErrorCode = "AUTH-002"
	ErrCodeLoginRejected      ErrorCode = "AUTH-003"

	// Session lifecycle errors (SESSION-001 to SESSION-099)
	ErrCodeSessionNotReady ErrorCode = "SESSION-001"
	ErrCodeSessionAnon     ErrorCode = "SESSION-002"

	// API errors, keyed by HTTP status family
	ErrCodeUnauthorized ErrorCode = "API-401"
	ErrCodeForbidden    ErrorCode = "API-403"
	ErrCodeNotFound     ErrorCode = "API-404"
	ErrCodeClient       ErrorCode = "API-4XX"
	ErrCodeServer       ErrorCode = "API-5XX"
	ErrCodeAppFailure   ErrorCode = "API-APP"

	// Network errors (NET-001 to NET-099)
	ErrCodeTransport ErrorCode = "NET-001"
	ErrCodeDecode    ErrorCode = "NET-002"

	// Configuration errors (CFG-001 to CFG-099)
	ErrCodeConfigInvalid ErrorCode = "CFG-001"
	ErrCodeConfigLoad    ErrorCode = "CFG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
	ErrCodeFileUnmarshal   ErrorCode = "IO-005"
)

// CRMError is an error carrying a code, recovery suggestions and an optional cause
type CRMError struct {
	Code        ErrorCode
	Message     string
	Status      int
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *CRMError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *CRMError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CRMError with the same code.
// This lets callers match on sentinel values such as ErrUnauthorized.
func (e *CRMError) Is(target error) bool {
	t, ok := target.(*CRMError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new CRMError
func New(code ErrorCode, message string) *CRMError {
	return &CRMError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CRMError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *CRMError {
	return &CRMError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *CRMError) WithSuggestion(suggestion string) *CRMError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *CRMError) WithSuggestions(suggestions ...string) *CRMError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithStatus records the HTTP status that produced the error
func (e *CRMError) WithStatus(status int) *CRMError {
	e.Status = status
	return e
}

// Sentinels for errors.Is matching. Only the code is compared.
var (
	ErrUnauthorized    = New(ErrCodeUnauthorized, "unauthorized")
	ErrNotFound        = New(ErrCodeNotFound, "not found")
	ErrTransport       = New(ErrCodeTransport, "transport failure")
	ErrSessionNotReady = New(ErrCodeSessionNotReady, "session not initialized")
)

// CodeOf returns the code of the first CRMError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var crmErr *CRMError
	if stderrors.As(err, &crmErr) {
		return crmErr.Code
	}
	return ""
}

// MessageOf returns the human-readable message of the first CRMError in err's
// chain without code or suggestions. Other errors return err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var crmErr *CRMError
	if stderrors.As(err, &crmErr) {
		return crmErr.Message
	}
	return err.Error()
}

// Common error constructors for frequently used errors

// NewInvalidCredentialsError is returned when login is attempted with an empty field
func NewInvalidCredentialsError() *CRMError {
	return New(ErrCodeInvalidCredentials, "Invalid credentials").
		WithSuggestion("Provide both --email and --password")
}

// NewUnauthorizedError creates the error returned for a 401 response
func NewUnauthorizedError(message string) *CRMError {
	if message == "" {
		message = "authentication required"
	}
	return New(ErrCodeUnauthorized, message).
		WithStatus(401).
		WithSuggestion("Run 'crmdesk auth login' to start a new session")
}

// NewTransportError wraps a network failure for the given request
func NewTransportError(method, path string, cause error) *CRMError {
	return Wrap(ErrCodeTransport, fmt.Sprintf("%s %s failed", method, path), cause).
		WithSuggestion("Check that the CRM API is reachable (see 'crmdesk config show')").
		WithSuggestion("Run 'crmdesk stub serve' for a local backend with sample data")
}

// NewSessionNotReadyError is returned when login or logout runs before initialization
func NewSessionNotReadyError() *CRMError {
	return New(ErrCodeSessionNotReady, "session not initialized")
}

// NewTokenStoreError wraps a failure of the persistent token store
func NewTokenStoreError(op string, cause error) *CRMError {
	return Wrap(ErrCodeTokenStore, fmt.Sprintf("token store %s failed", op), cause).
		WithSuggestion("Check permissions on ~/.crmdesk or the configured Redis instance")
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *CRMError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'crmdesk config show' to inspect the effective configuration")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *CRMError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
