package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_GETENV_KEY", "set")
	if got := getEnv("TEST_GETENV_KEY", "fallback"); got != "set" {
		t.Errorf("getEnv = %q, want set", got)
	}
	if got := getEnv("TEST_GETENV_ABSENT", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q, want fallback", got)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{"single", []string{"single"}},
		{"", nil},
		{",,", nil},
	}

	for _, tt := range tests {
		if got := splitList(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWarmTargets(t *testing.T) {
	t.Setenv("PREWARM_PROJECTS", "acme/backend,acme/frontend,malformed")

	targets := warmTargets()
	if len(targets) != 3 {
		t.Fatalf("len(targets) = %d, want 3 (projects list + 2 issue lists)", len(targets))
	}
	if targets[0].Category != "projects" {
		t.Errorf("first target = %s, want projects list", targets[0].Category)
	}
	if targets[1].Params["project_slug"] != "backend" {
		t.Errorf("second target params = %v", targets[1].Params)
	}
}

func TestBuildRegistry(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.yaml")
	if err := os.WriteFile(base, []byte(`
version: "1"
base_url: https://tracker.example.com
categories:
  issues:
    name: Issues
    base_path: /api/0/projects/{organization_slug}/{project_slug}
    endpoints:
      list:
        path: /issues/
        method: GET
        cache_ttl: 300
`), 0o644); err != nil {
		t.Fatal(err)
	}

	override := filepath.Join(dir, "override.yaml")
	if err := os.WriteFile(override, []byte(`
version: "2"
base_url: https://tracker.example.com
categories:
  issues:
    endpoints:
      list:
        path: /issues/
        method: GET
        cache_ttl: 60
`), 0o644); err != nil {
		t.Fatal(err)
	}

	registry, err := buildRegistry([]string{base, override}, zerolog.Nop())
	if err != nil {
		t.Fatalf("buildRegistry failed: %v", err)
	}

	ttl, ok := registry.CacheTTL("issues", "list")
	if !ok || ttl.Seconds() != 60 {
		t.Errorf("CacheTTL = %v %v, want 60s from override", ttl, ok)
	}
	if registry.Version() != "2" {
		t.Errorf("Version = %q, want 2", registry.Version())
	}
}

func TestBuildRegistry_MissingFile(t *testing.T) {
	if _, err := buildRegistry([]string{"/nonexistent/endpoints.yaml"}, zerolog.Nop()); err == nil {
		t.Error("buildRegistry with missing file succeeded, want error")
	}
}
