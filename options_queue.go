package localesync

import (
	"context"
)

// WithSyncEvents publishes sync reports to url. An empty url disables them.
func WithSyncEvents(url string) Option {
	return func(_ context.Context, s *Service) {
		s.eventsURL = url
	}
}
