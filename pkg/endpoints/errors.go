package endpoints

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the endpoints package.
var (
	// ErrInvalidTemplate indicates a path template with an unmatched brace,
	// an empty parameter name, or a duplicate parameter name.
	ErrInvalidTemplate = errors.New("invalid path template")

	// ErrConfigParse indicates a structurally invalid configuration document.
	ErrConfigParse = errors.New("invalid endpoint configuration")

	// ErrUnknownLegacyKey indicates a legacy endpoint key with no alias mapping.
	ErrUnknownLegacyKey = errors.New("unknown legacy endpoint key")
)

// UnknownEndpointError is returned when a (category, name) pair is not
// present in the registry.
type UnknownEndpointError struct {
	Category string
	Name     string
}

// Error implements the error interface.
func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("unknown endpoint %q in category %q", e.Name, e.Category)
}

// MissingParameterError is returned when a template is built with an
// incomplete parameter set. Names lists every missing parameter, not just
// the first one encountered.
type MissingParameterError struct {
	Template string
	Names    []string
}

// Error implements the error interface.
func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameters [%s] for template %q",
		strings.Join(e.Names, ", "), e.Template)
}
