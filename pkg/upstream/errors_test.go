package upstream

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Message(t *testing.T) {
	e := &Error{
		StatusCode: 502,
		ErrorClass: ErrorClassServer,
		Endpoint:   "issues:list",
		Message:    "502 Bad Gateway",
	}
	msg := e.Error()
	for _, want := range []string{"server", "502", "issues:list"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	e := &Error{ErrorClass: ErrorClassNetwork, Err: inner}

	if !errors.Is(e, inner) {
		t.Error("errors.Is does not reach the wrapped error")
	}

	wrapped := fmt.Errorf("request: %w", e)
	var out *Error
	if !errors.As(wrapped, &out) || out.ErrorClass != ErrorClassNetwork {
		t.Error("errors.As does not recover *Error through wrapping")
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ErrorClassClient, false},
		{ErrorClassServer, true},
		{ErrorClassRateLimit, true},
		{ErrorClassNetwork, true},
		{ErrorClass("unknown"), false},
	}

	for _, tt := range tests {
		if got := shouldRetry(tt.class); got != tt.want {
			t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	if got := classify(&Error{ErrorClass: ErrorClassRateLimit}); got != ErrorClassRateLimit {
		t.Errorf("classify(*Error) = %q, want rate_limit", got)
	}
	if got := classify(errors.New("dial tcp: timeout")); got != ErrorClassNetwork {
		t.Errorf("classify(plain error) = %q, want network", got)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
