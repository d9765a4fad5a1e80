package endpoints

import (
	"fmt"
	"strings"
)

// Template is a parsed path pattern with literal segments and named
// parameter slots, compiled from a string such as
// "/api/0/projects/{organization_slug}/{project_slug}".
//
// A Template is immutable once compiled. Parameter names are unique within
// one template and the segment count is fixed (no wildcard segments).
type Template struct {
	raw      string
	segments []segment
	params   []string
}

// segment is either a literal path segment or a named parameter slot.
type segment struct {
	literal string
	param   string // non-empty for a parameter slot
}

// Compile parses a template string into a Template.
// Returns ErrInvalidTemplate if a parameter slot is malformed (unmatched
// brace, empty name) or a parameter name repeats within the template.
func Compile(raw string) (*Template, error) {
	parts := strings.Split(raw, "/")

	t := &Template{
		raw:      raw,
		segments: make([]segment, 0, len(parts)),
	}
	seen := make(map[string]bool)

	for _, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 1 {
			name := part[1 : len(part)-1]
			if name == "" {
				return nil, fmt.Errorf("%w: empty parameter name in %q", ErrInvalidTemplate, raw)
			}
			if strings.ContainsAny(name, "{}") {
				return nil, fmt.Errorf("%w: malformed parameter slot %q in %q", ErrInvalidTemplate, part, raw)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: duplicate parameter %q in %q", ErrInvalidTemplate, name, raw)
			}
			seen[name] = true
			t.segments = append(t.segments, segment{param: name})
			t.params = append(t.params, name)
			continue
		}

		// Literal segment - braces are only valid as a complete slot.
		if strings.ContainsAny(part, "{}") {
			return nil, fmt.Errorf("%w: unmatched brace in segment %q of %q", ErrInvalidTemplate, part, raw)
		}
		t.segments = append(t.segments, segment{literal: part})
	}

	return t, nil
}

// String returns the original template string.
func (t *Template) String() string {
	return t.raw
}

// Params returns the parameter names in template order.
func (t *Template) Params() []string {
	out := make([]string, len(t.params))
	copy(out, t.params)
	return out
}

// Build substitutes each parameter slot with its value from params and
// returns the concrete path. Literal segments are left untouched and extra
// unused keys in params are ignored.
//
// Returns a MissingParameterError naming every absent parameter if any
// referenced parameter is missing from params.
func (t *Template) Build(params map[string]string) (string, error) {
	var missing []string
	out := make([]string, len(t.segments))

	for i, seg := range t.segments {
		if seg.param == "" {
			out[i] = seg.literal
			continue
		}
		value, ok := params[seg.param]
		if !ok {
			missing = append(missing, seg.param)
			continue
		}
		out[i] = value
	}

	if len(missing) > 0 {
		return "", &MissingParameterError{Template: t.raw, Names: missing}
	}

	return strings.Join(out, "/"), nil
}

// Match reports whether the concrete path matches the template segment by
// segment. Captured parameter values are accumulated into the
// caller-supplied params map, which lets repeated calls build a combined
// mapping across a base template and a relative template.
//
// Matching is purely positional: segment counts must be equal, literal
// segments must compare equal as strings, and no regex metacharacters are
// interpreted. params is left untouched when the path does not match.
func (t *Template) Match(path string, params map[string]string) bool {
	parts := strings.Split(path, "/")
	if len(parts) != len(t.segments) {
		return false
	}

	captured := make(map[string]string, len(t.params))
	for i, seg := range t.segments {
		if seg.param != "" {
			captured[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return false
		}
	}

	for name, value := range captured {
		params[name] = value
	}
	return true
}
