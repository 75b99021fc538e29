package ux

import (
	"testing"
	"time"
)

func TestAgo(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if got := Ago(now.Add(-3*24*time.Hour), now); got != "3 days ago" {
		t.Errorf("Ago() = %q", got)
	}
	if got := Ago(time.Time{}, now); got != "-" {
		t.Errorf("Ago(zero) = %q", got)
	}
	if got := AgoPtr(nil, now); got != "-" {
		t.Errorf("AgoPtr(nil) = %q", got)
	}
}

func TestCountAndOptional(t *testing.T) {
	if got := Count(1234567); got != "1,234,567" {
		t.Errorf("Count() = %q", got)
	}
	if Optional("  ") != "-" || Optional("x") != "x" {
		t.Error("Optional() mismatch")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"a long subject line", 6, "a lon…"},
		{"multi\nline   text", 40, "multi line text"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
