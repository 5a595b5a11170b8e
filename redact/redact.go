// Package redact masks the middle of secret strings so they can show up in
// logs without being usable.
package redact

import "strings"

// String keeps the first and last quarter of s and masks everything in
// between.
func String(s string) string {
	head := len(s) / 4
	tail := len(s) - head

	return s[:head] + strings.Repeat("*", tail-head) + s[tail:]
}
