// Package middleware provides the HTTP middleware stack and the shared
// cross-cutting middleware: request logging, CORS, and principal resolution.
package middleware

import "net/http"

// System holds an ordered middleware stack. The first middleware added
// wraps outermost.
type System interface {
	Use(mw func(http.Handler) http.Handler)
	Apply(handler http.Handler) http.Handler
}

// New creates an empty stack.
func New() System {
	return &stack{}
}

type stack struct {
	wraps []func(http.Handler) http.Handler
}

func (s *stack) Use(fn func(http.Handler) http.Handler) {
	s.wraps = append(s.wraps, fn)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for i := len(s.wraps) - 1; i >= 0; i-- {
		handler = s.wraps[i](handler)
	}
	return handler
}
