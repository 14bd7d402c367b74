package localesync

import (
	"context"

	"github.com/pitabwire/localesync/workerpool"
)

// WithWorkerPoolOptions adjusts the pool running uploads.
func WithWorkerPoolOptions(opts ...workerpool.Option) Option {
	return func(_ context.Context, s *Service) {
		s.poolOptions = append(s.poolOptions, opts...)
	}
}
