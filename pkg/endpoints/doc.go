// Package endpoints implements the declarative endpoint registry that maps
// (category, name) pairs onto upstream issue-tracker URL templates.
//
// Endpoint definitions are loaded from YAML documents describing categories
// of endpoints. Each category carries a base path template and each endpoint
// a relative path template, HTTP method, description, and optional cache
// TTL. Multiple documents merge into one logical registry with
// last-writer-wins semantics per endpoint.
//
// # Basic Usage
//
//	registry := endpoints.NewRegistry(logger)
//	if err := registry.LoadDocument(data); err != nil {
//		return err
//	}
//
//	path, err := registry.ResolvePath("issues", "list", map[string]string{
//		"organization_slug": "acme",
//		"project_slug":      "web",
//	})
//	// path == "/api/0/projects/acme/web/issues/"
//
// # Path Templates
//
// Templates contain literal segments and {name} parameter slots:
//
//	tmpl, err := endpoints.Compile("/api/0/issues/{issue_id}/")
//	path, err := tmpl.Build(map[string]string{"issue_id": "42"})
//
//	params := map[string]string{}
//	matched := tmpl.Match("/api/0/issues/42/", params)
//	// params["issue_id"] == "42"
//
// Building with an incomplete parameter set fails with a
// MissingParameterError that names every absent parameter.
//
// # Cache Policy
//
// The registry is the source of truth for per-endpoint cache TTLs:
//
//	ttl, ok := registry.CacheTTL("issues", "list")
//	if !ok {
//		// endpoint must never be cached
//	}
package endpoints
