package server

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// BasicRouter implements [Router] over an [http.ServeMux]. Unknown paths are answered with a JSON
// 404 listing the registered routes, so the dashboard API is self-describing.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	routes      []string
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. Middleware added first runs first.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for a single method and path. Other methods get 405 with an Allow header.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	method = strings.ToUpper(method)
	wrapped := r.Apply(handler)

	r.mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed on %s", req.Method, path))
			return
		}
		wrapped.ServeHTTP(w, req)
	}))
	r.addRoute(method + " " + path)
}

// Handler registers every path returned by [Handler.Routes]; method checks are left to the handler.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)

	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
		r.addRoute(route)
	}
}

// Routes returns the registered routes in registration order.
func (r *BasicRouter) Routes() []string {
	return slices.Clone(r.routes)
}

func (r *BasicRouter) addRoute(route string) {
	if !slices.Contains(r.routes, route) {
		r.routes = append(r.routes, route)
	}
}

// ServeHTTP dispatches to the registered handler or answers 404 in JSON.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":  fmt.Sprintf("no route for %s", req.URL.Path),
			"routes": r.routes,
		})
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the middleware stack. The first middleware added is the outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler
	for _, mw := range slices.Backward(r.middlewares) {
		wrapped = mw(wrapped)
	}
	return wrapped
}
