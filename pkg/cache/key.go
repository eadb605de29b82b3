package cache

import (
	"fmt"
	"strings"
)

// Key builds a cache key from an operation name and its arguments, so the
// same call with the same inputs always maps to the same entry.
func Key(op string, args ...any) string {
	if len(args) == 0 {
		return op
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, op)
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%v", a))
	}
	return strings.Join(parts, ":")
}
