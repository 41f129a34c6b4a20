package internal

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID creates an identifier for one editing session. It tags log
// records and journal rows so a submitted note can be traced back to the
// capture that produced it.
func NewSessionID() string {
	return uuid.NewString()
}

// Preview shortens s to at most n runes for log output, appending an
// ellipsis when something was cut off. Newlines are flattened.
func Preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
