// Package routes declares HTTP endpoints as data so feature packages can
// describe their surface and leave mux wiring to the caller.
package routes

import "net/http"

// Route binds one method and pattern to its handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group nests routes under a shared path prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register walks the groups and installs every route on mux, joining
// nested prefixes in declaration order.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		g.install(mux, "")
	}
}

func (g Group) install(mux *http.ServeMux, parent string) {
	prefix := parent + g.Prefix
	for _, route := range g.Routes {
		mux.HandleFunc(route.Method+" "+prefix+route.Pattern, route.Handler)
	}
	for _, child := range g.Children {
		child.install(mux, prefix)
	}
}
