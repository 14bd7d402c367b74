package api

import (
	"net/http"
	"reflect"
	"runtime"
	"sync"
)

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Handler string `json:"handler"`
}

// RouteRegistry wraps http.ServeMux and records registered routes for introspection.
type RouteRegistry struct {
	mux    *http.ServeMux
	mu     sync.Mutex
	routes []RouteInfo
}

func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{mux: http.NewServeMux()}
}

// HandleRoute registers handler for method and pattern. An empty name is derived from the handler.
func (r *RouteRegistry) HandleRoute(method, pattern, name string, handler http.Handler) {
	if name == "" {
		name = handlerName(handler)
	}
	r.mu.Lock()
	r.routes = append(r.routes, RouteInfo{
		Method:  method,
		Path:    pattern,
		Handler: name,
	})
	r.mu.Unlock()

	if method != "" {
		pattern = method + " " + pattern
	}
	r.mux.Handle(pattern, handler)
}

func (r *RouteRegistry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *RouteRegistry) Routes() []RouteInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RouteInfo, len(r.routes))
	copy(out, r.routes)
	return out
}

func handlerName(handler http.Handler) string {
	if handler == nil {
		return ""
	}
	if fn, ok := handler.(http.HandlerFunc); ok {
		ptr := reflect.ValueOf(fn).Pointer()
		if f := runtime.FuncForPC(ptr); ptr != 0 && f != nil {
			return f.Name()
		}
		return ""
	}
	return reflect.TypeOf(handler).String()
}
