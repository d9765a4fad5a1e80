package cache

import "strings"

// matchGlob reports whether key matches a simple glob pattern where '*'
// matches any substring (possibly empty). No other metacharacters are
// interpreted - literal parts must match exactly.
func matchGlob(pattern, key string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return key == pattern
	}

	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	rest := key[len(parts[0]):]

	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}

	return strings.HasSuffix(rest, last)
}
