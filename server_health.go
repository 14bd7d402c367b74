package localesync

import (
	"errors"
	"io"
	"net/http"
)

var ErrHealthCheckFailed = errors.New("health check failed")

// Checker reports nil when the resource is healthy. CheckHealth must be safe to
// call from multiple goroutines.
type Checker interface {
	CheckHealth() error
}

// CheckerFunc adapts an ordinary function to a Checker.
type CheckerFunc func() error

// CheckHealth calls f().
func (f CheckerFunc) CheckHealth() error {
	return f()
}

// AddHealthCheck registers a checker consulted by the health endpoint.
func (s *Service) AddHealthCheck(checker Checker) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()
	s.healthCheckers = append(s.healthCheckers, checker)
}

func (s *Service) HealthCheckers() []Checker {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()
	out := make([]Checker, len(s.healthCheckers))
	copy(out, s.healthCheckers)
	return out
}

// HandleHealth returns 200 if it is healthy, 500 otherwise.
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	for _, c := range s.HealthCheckers() {
		if err := c.CheckHealth(); err != nil {
			s.Log(r.Context()).WithError(errors.Join(ErrHealthCheckFailed, err)).Warn("unhealthy")
			writeUnhealthy(w)
			return
		}
	}
	writeHealthy(w)
}

func writeHeaders(statusLen string, w http.ResponseWriter) {
	w.Header().Set("Content-Length", statusLen)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

func writeUnhealthy(w http.ResponseWriter) {
	const (
		status    = "unhealthy"
		statusLen = "9"
	)

	writeHeaders(statusLen, w)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = io.WriteString(w, status)
}

func writeHealthy(w http.ResponseWriter) {
	const (
		status    = "ok"
		statusLen = "2"
	)

	writeHeaders(statusLen, w)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, status)
}
