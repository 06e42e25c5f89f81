package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key joins parts into a colon-separated cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// KeyWithParams builds a deterministic key from a prefix and parameters.
// Parameters are sorted so equivalent requests share a key.
func KeyWithParams(prefix string, params map[string]string) string {
	if len(params) == 0 {
		return prefix
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(prefix)
	for _, name := range names {
		sb.WriteString(fmt.Sprintf(":%s=%s", name, params[name]))
	}
	return sb.String()
}
