package exitcode

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/richmansdream/crmdesk/internal/errors"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"GeneralError", GeneralError, 1},
		{"UsageError", UsageError, 2},
		{"AuthError", AuthError, 5},
		{"NetworkError", NetworkError, 6},
		{"Interrupted", Interrupted, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("Exit code %s = %d, want %d", tt.name, tt.code, tt.expected)
			}
		})
	}
}

func TestDetermineExitCode_Coded(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "401 from the API",
			err:      errors.NewUnauthorizedError("Invalid authentication credentials"),
			expected: AuthError,
		},
		{
			name:     "wrapped 401",
			err:      fmt.Errorf("list leads: %w", errors.NewUnauthorizedError("expired")),
			expected: AuthError,
		},
		{
			name:     "forbidden",
			err:      errors.New(errors.ErrCodeForbidden, "Not enough permissions"),
			expected: AuthError,
		},
		{
			name:     "empty credentials",
			err:      errors.NewInvalidCredentialsError(),
			expected: AuthError,
		},
		{
			name:     "token store failure",
			err:      errors.NewTokenStoreError("write", stderrors.New("disk full")),
			expected: AuthError,
		},
		{
			name:     "transport failure",
			err:      errors.NewTransportError("GET", "/leads", stderrors.New("dial tcp: refused")),
			expected: NetworkError,
		},
		{
			name:     "invalid configuration",
			err:      errors.NewConfigInvalidError("lists.page_size must be positive"),
			expected: UsageError,
		},
		{
			name:     "server error falls through to message heuristics",
			err:      errors.New(errors.ErrCodeServer, "Internal server error"),
			expected: GeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := DetermineExitCode(tt.err); code != tt.expected {
				t.Errorf("DetermineExitCode(%v) = %d, want %d", tt.err, code, tt.expected)
			}
		})
	}
}

func TestDetermineExitCode_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error returns success", nil, Success},
		{"unauthorized", stderrors.New("unauthorized access"), AuthError},
		{"not logged in", stderrors.New("not logged in: run crmdesk auth login"), AuthError},
		{"expired token", stderrors.New("expired token"), AuthError},
		{"connection refused", stderrors.New("dial tcp 127.0.0.1:8000: connection refused"), NetworkError},
		{"timeout", stderrors.New("request timeout"), NetworkError},
		{"unknown command", stderrors.New(`unknown command "foo" for "crmdesk"`), UsageError},
		{"unknown flag", stderrors.New("unknown flag: --bar"), UsageError},
		{"required flag", stderrors.New(`required flag(s) "id" not set`), UsageError},
		{"arg count", stderrors.New("accepts 1 arg(s), received 0"), UsageError},
		{"generic error", stderrors.New("something went wrong"), GeneralError},
		{"case insensitive", stderrors.New("UNAUTHORIZED"), AuthError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := DetermineExitCode(tt.err); code != tt.expected {
				t.Errorf("DetermineExitCode(%v) = %d, want %d", tt.err, code, tt.expected)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{Success, "Success"},
		{GeneralError, "General error"},
		{UsageError, "Usage error (invalid flags or arguments)"},
		{AuthError, "Authentication error"},
		{NetworkError, "Network error"},
		{Interrupted, "Interrupted"},
		{99, "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := GetExitCodeDescription(tt.code); result != tt.expected {
				t.Errorf("GetExitCodeDescription(%d) = %s, want %s", tt.code, result, tt.expected)
			}
		})
	}
}
