package devserver

import (
	"net/http"
	"time"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// router is a thin wrapper over [http.ServeMux] with a middleware stack.
// Patterns use the method-qualified ServeMux syntax ("POST /auth/v1/token").
type router struct {
	mux         *http.ServeMux
	middlewares []Middleware
}

func newRouter() *router {
	return &router{mux: http.NewServeMux()}
}

// Use adds middleware, applied in the order it's added.
func (r *router) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler wrapped with all registered middleware.
func (r *router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, r.apply(handler))
}

func (r *router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// apply wraps a handler in reverse order (last added wraps first).
func (r *router) apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logging records every request with its status and duration.
func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		s.logger.Debug("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
