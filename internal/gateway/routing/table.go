// Package routing holds the router's path-prefix table.
//
// The table is built once at startup and never mutated. Prefixes are
// compared literally, in registration order, and the first match wins, so
// a more specific prefix must be registered before a broader one.
package routing

import (
	"fmt"
	"net/url"
	"strings"
)

// Route binds a path prefix to one backend.
type Route struct {
	// Name identifies the route in logs and metrics.
	Name string
	// Prefix is compared against the request path as a literal string prefix.
	Prefix string
	// Backend is the absolute base URL of the owning service.
	Backend string
	// StripPrefix removes Prefix before forwarding. When false the backend
	// receives the full original path and must register its routes under it.
	StripPrefix bool

	backendURL *url.URL
}

// BackendURL returns the parsed backend address.
func (r Route) BackendURL() *url.URL {
	u := *r.backendURL
	return &u
}

// ForwardPath returns the path the backend will see for a request path.
func (r Route) ForwardPath(path string) string {
	if !r.StripPrefix {
		return path
	}
	rest := strings.TrimPrefix(path, r.Prefix)
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest
}

// Table is an immutable, ordered list of routes.
type Table struct {
	routes []Route
}

// NewTable validates routes and freezes them in the given order.
func NewTable(routes ...Route) (*Table, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("route table: at least one route is required")
	}
	frozen := make([]Route, 0, len(routes))
	names := make(map[string]struct{}, len(routes))
	for i, rt := range routes {
		if rt.Name == "" {
			return nil, fmt.Errorf("route %d: name is required", i)
		}
		if _, dup := names[rt.Name]; dup {
			return nil, fmt.Errorf("route %q: duplicate name", rt.Name)
		}
		names[rt.Name] = struct{}{}
		if !strings.HasPrefix(rt.Prefix, "/") {
			return nil, fmt.Errorf("route %q: prefix %q must start with /", rt.Name, rt.Prefix)
		}
		u, err := url.Parse(rt.Backend)
		if err != nil {
			return nil, fmt.Errorf("route %q: backend: %w", rt.Name, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("route %q: backend %q must be an absolute http(s) URL", rt.Name, rt.Backend)
		}
		rt.backendURL = u
		frozen = append(frozen, rt)
	}
	return &Table{routes: frozen}, nil
}

// Match returns the first route whose prefix is a literal prefix of path.
func (t *Table) Match(path string) (Route, bool) {
	for _, rt := range t.routes {
		if strings.HasPrefix(path, rt.Prefix) {
			return rt, true
		}
	}
	return Route{}, false
}

// Routes returns a copy of the table in registration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}
