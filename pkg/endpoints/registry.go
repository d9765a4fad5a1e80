package endpoints

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"
)

// Valid HTTP methods for an endpoint definition.
var validMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

// Endpoint is a single logical operation within a category. Endpoints are
// created at configuration-load time and never mutated afterwards.
type Endpoint struct {
	Category    string
	Name        string
	Method      string
	Path        string // relative path template string
	Description string

	// CacheTTL is the configured cache lifetime. Zero with Cacheable false
	// means the endpoint must never be cached.
	CacheTTL  time.Duration
	Cacheable bool

	// full is the compiled concatenation of the category base template and
	// the endpoint's relative template.
	full *Template
}

// Params returns the required parameter names of the endpoint's full
// template (base plus relative) in template order.
func (e *Endpoint) Params() []string {
	return e.full.Params()
}

// Category is a named group of endpoints sharing a base path template.
type Category struct {
	Name      string // display name
	BasePath  string
	Endpoints map[string]*Endpoint
}

// Registry maps category names to categories and resolves (category, name)
// pairs plus parameters into upstream paths and URLs.
//
// Documents are merged with last-writer-wins semantics per endpoint. After
// startup the registry is effectively read-only; LoadDocument validates a
// document completely and then swaps the merged category set atomically, so
// concurrent resolution never observes a partial merge.
type Registry struct {
	mu         sync.RWMutex
	version    string
	baseURL    string
	categories map[string]*Category

	// urlCache memoizes fully built URLs keyed by
	// "category:name:sorted-params". Pure memoization: identical inputs
	// always yield the identical string. Invalidated on every merge.
	urlCache map[string]string

	logger zerolog.Logger
}

// NewRegistry creates an empty registry. Load at least one document before
// resolving endpoints.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		categories: make(map[string]*Category),
		urlCache:   make(map[string]string),
		logger:     logger,
	}
}

// document is the YAML shape of one endpoint configuration document.
type document struct {
	Version    string                 `yaml:"version"`
	BaseURL    string                 `yaml:"base_url"`
	Categories map[string]categoryDoc `yaml:"categories"`
}

type categoryDoc struct {
	Name      string                 `yaml:"name"`
	BasePath  string                 `yaml:"base_path"`
	Endpoints map[string]endpointDoc `yaml:"endpoints"`
}

type endpointDoc struct {
	Path        string `yaml:"path"`
	Method      string `yaml:"method"`
	Description string `yaml:"description"`
	CacheTTL    *int   `yaml:"cache_ttl"` // seconds; absent means never cache
}

// LoadDocument parses a YAML configuration document and merges it into the
// registry. Categories new to the registry are added; existing categories
// are merged endpoint by endpoint with later definitions overriding earlier
// ones.
//
// The merge is all-or-nothing per document: on ErrConfigParse or
// ErrInvalidTemplate no part of the document is applied and previously
// merged documents remain in effect.
func (r *Registry) LoadDocument(data []byte) error {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if doc.Version == "" {
		return fmt.Errorf("%w: missing version", ErrConfigParse)
	}
	if doc.BaseURL == "" {
		return fmt.Errorf("%w: missing base_url", ErrConfigParse)
	}
	if len(doc.Categories) == 0 {
		return fmt.Errorf("%w: no categories defined", ErrConfigParse)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Build the merged category set aside from the live one, so a
	// validation failure leaves the registry untouched.
	merged, err := r.mergeLocked(&doc)
	if err != nil {
		return err
	}

	r.version = doc.Version
	r.baseURL = strings.TrimRight(doc.BaseURL, "/")
	r.categories = merged
	r.urlCache = make(map[string]string)

	r.logger.Info().
		Str("version", doc.Version).
		Int("categories", len(merged)).
		Msg("Endpoint document merged")

	return nil
}

// mergeLocked builds a new category map from the live registry plus doc.
// Caller must hold the write lock.
func (r *Registry) mergeLocked(doc *document) (map[string]*Category, error) {
	merged := make(map[string]*Category, len(r.categories)+len(doc.Categories))
	for name, cat := range r.categories {
		merged[name] = cat
	}

	for catName, catDoc := range doc.Categories {
		existing := merged[catName]

		basePath := catDoc.BasePath
		displayName := catDoc.Name
		if existing != nil {
			if basePath == "" {
				basePath = existing.BasePath
			}
			if displayName == "" {
				displayName = existing.Name
			}
		}
		if basePath == "" {
			return nil, fmt.Errorf("%w: category %q missing base_path", ErrConfigParse, catName)
		}

		cat := &Category{
			Name:      displayName,
			BasePath:  basePath,
			Endpoints: make(map[string]*Endpoint),
		}

		// Carry over earlier endpoints; recompiled below in case the
		// document changed the category base path.
		if existing != nil {
			for epName, ep := range existing.Endpoints {
				compiled, err := compileEndpoint(catName, epName, basePath, ep.Path, ep.Method, ep.Description, ep.CacheTTL, ep.Cacheable)
				if err != nil {
					return nil, err
				}
				cat.Endpoints[epName] = compiled
			}
		}

		for epName, epDoc := range catDoc.Endpoints {
			if epDoc.Path == "" {
				return nil, fmt.Errorf("%w: endpoint %s/%s missing path", ErrConfigParse, catName, epName)
			}
			method := strings.ToUpper(epDoc.Method)
			if !validMethods[method] {
				return nil, fmt.Errorf("%w: endpoint %s/%s has invalid method %q", ErrConfigParse, catName, epName, epDoc.Method)
			}

			ttl := time.Duration(0)
			cacheable := false
			if epDoc.CacheTTL != nil && *epDoc.CacheTTL > 0 {
				ttl = time.Duration(*epDoc.CacheTTL) * time.Second
				cacheable = true
			}

			compiled, err := compileEndpoint(catName, epName, basePath, epDoc.Path, method, epDoc.Description, ttl, cacheable)
			if err != nil {
				return nil, err
			}
			// Last writer wins for endpoints sharing a name.
			cat.Endpoints[epName] = compiled
		}

		merged[catName] = cat
	}

	return merged, nil
}

// compileEndpoint builds an Endpoint with its full template compiled from
// the category base path and the endpoint's relative path. Compiling the
// concatenation also rejects parameter name collisions across the two.
func compileEndpoint(category, name, basePath, relPath, method, description string, ttl time.Duration, cacheable bool) (*Endpoint, error) {
	full, err := Compile(basePath + relPath)
	if err != nil {
		return nil, fmt.Errorf("endpoint %s/%s: %w", category, name, err)
	}
	return &Endpoint{
		Category:    category,
		Name:        name,
		Method:      method,
		Path:        relPath,
		Description: description,
		CacheTTL:    ttl,
		Cacheable:   cacheable,
		full:        full,
	}, nil
}

// Version returns the schema version of the most recently merged document.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// BaseURL returns the upstream base URL.
func (r *Registry) BaseURL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.baseURL
}

// GetEndpoint looks up an endpoint definition. It returns (nil, false)
// rather than an error, since callers routinely probe for endpoints that
// may not exist.
func (r *Registry) GetEndpoint(category, name string) (*Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLocked(category, name)
}

func (r *Registry) getLocked(category, name string) (*Endpoint, bool) {
	cat, ok := r.categories[category]
	if !ok {
		return nil, false
	}
	ep, ok := cat.Endpoints[name]
	return ep, ok
}

// ResolvePath composes the category base template with the endpoint's
// relative template and builds the concrete upstream path.
//
// Returns an UnknownEndpointError if the category or endpoint is absent and
// propagates MissingParameterError from the template build verbatim.
func (r *Registry) ResolvePath(category, name string, params map[string]string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.getLocked(category, name)
	if !ok {
		return "", &UnknownEndpointError{Category: category, Name: name}
	}
	return ep.full.Build(params)
}

// ResolveFullURL concatenates the registry base URL with the resolved path.
// Results are memoized per (category, name, sorted parameter set), so
// repeated calls with an identical parameter set return the identical
// string regardless of map insertion order.
func (r *Registry) ResolveFullURL(category, name string, params map[string]string) (string, error) {
	key := memoKey(category, name, params)

	r.mu.RLock()
	if url, ok := r.urlCache[key]; ok {
		r.mu.RUnlock()
		return url, nil
	}
	r.mu.RUnlock()

	// Miss: resolve and memoize under the write lock so the cached URL is
	// always consistent with the registry state it was built from.
	r.mu.Lock()
	defer r.mu.Unlock()

	if url, ok := r.urlCache[key]; ok {
		return url, nil
	}

	ep, ok := r.getLocked(category, name)
	if !ok {
		return "", &UnknownEndpointError{Category: category, Name: name}
	}
	path, err := ep.full.Build(params)
	if err != nil {
		return "", err
	}

	url := r.baseURL + path
	r.urlCache[key] = url
	return url, nil
}

// memoKey builds the memoization key from the endpoint identity and the
// sorted parameter pairs.
func memoKey(category, name string, params map[string]string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, category+":"+name)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, ":")
}

// MatchConcretePath matches an inbound concrete path against the endpoint's
// full template and recovers the parameter values.
func (r *Registry) MatchConcretePath(path, category, name string) (bool, map[string]string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.getLocked(category, name)
	if !ok {
		return false, nil
	}
	params := make(map[string]string)
	if !ep.full.Match(path, params) {
		return false, nil
	}
	return true, params
}

// CacheTTL returns the endpoint's configured TTL. ok is false when the
// endpoint is unknown or caching is disabled for it - the canonical
// "do not cache" signal.
func (r *Registry) CacheTTL(category, name string) (time.Duration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.getLocked(category, name)
	if !ok || !ep.Cacheable {
		return 0, false
	}
	return ep.CacheTTL, true
}

// ValidateParams reports whether provided contains every parameter the
// endpoint requires, returning the missing names. Non-throwing pre-flight
// variant of the validation performed inside ResolvePath.
func (r *Registry) ValidateParams(category, name string, provided map[string]string) (bool, []string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.getLocked(category, name)
	if !ok {
		return false, nil, &UnknownEndpointError{Category: category, Name: name}
	}

	var missing []string
	for _, p := range ep.full.params {
		if _, ok := provided[p]; !ok {
			missing = append(missing, p)
		}
	}
	return len(missing) == 0, missing, nil
}

// Endpoints returns the endpoint names per category, sorted within each
// category.
func (r *Registry) Endpoints() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.categories))
	for catName, cat := range r.categories {
		names := make([]string, 0, len(cat.Endpoints))
		for name := range cat.Endpoints {
			names = append(names, name)
		}
		sort.Strings(names)
		out[catName] = names
	}
	return out
}

// Categories returns the category names currently in the registry, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.categories))
	for name := range r.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
