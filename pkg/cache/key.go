package cache

import (
	"sort"
	"strings"
)

// Key generates a deterministic cache key string from an endpoint prefix
// (normally "category:name") and the effective request parameters.
// Format: prefix:param1=val1&param2=val2
//
// Pairs are sorted by parameter name and parameters with empty values are
// omitted entirely, so {"a": "1", "b": ""} serializes identically to
// {"a": "1"}.
//
// Example:
//
//	issues:list:organization_slug=acme&project_slug=web
func Key(prefix string, params map[string]string) string {
	if len(params) == 0 {
		return prefix
	}

	names := make([]string, 0, len(params))
	for name, value := range params {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return prefix
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+params[name])
	}

	return prefix + ":" + strings.Join(pairs, "&")
}
