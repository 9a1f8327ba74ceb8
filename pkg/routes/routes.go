// Package routes registers method-qualified route groups on a ServeMux.
package routes

import "net/http"

// Route binds a method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Get returns a GET route. The ops API is read-only, so this is the
// constructor handlers use.
func Get(pattern string, h http.HandlerFunc) Route {
	return Route{Method: http.MethodGet, Pattern: pattern, Handler: h}
}

// Group is a set of routes sharing a path prefix.
type Group struct {
	Prefix string
	Routes []Route
}

// Register adds every route in groups to mux as "METHOD prefix+pattern".
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		for _, r := range g.Routes {
			mux.HandleFunc(r.Method+" "+g.Prefix+r.Pattern, r.Handler)
		}
	}
}
