package ux

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Ago renders t relative to now ("3 days ago"); zero times render as "-"
func Ago(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// AgoPtr is Ago for optional timestamps
func AgoPtr(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	return Ago(*t, now)
}

// Date renders t as a short calendar date
func Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

// Count renders n with thousands separators
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Optional replaces an empty value with "-"
func Optional(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
