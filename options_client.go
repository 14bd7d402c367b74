package localesync

import (
	"context"

	"github.com/pitabwire/localesync/client"
)

// WithHTTPClient configures the outbound invoker used for the platform and HTTP storage.
func WithHTTPClient(opts ...client.HTTPOption) Option {
	return func(ctx context.Context, s *Service) {
		s.invoker = client.NewManager(ctx, append(s.defaultHTTPOptions(), opts...)...)
	}
}

// WithInvoker replaces the outbound invoker.
func WithInvoker(invoker client.Manager) Option {
	return func(_ context.Context, s *Service) {
		s.invoker = invoker
	}
}

func (s *Service) defaultHTTPOptions() []client.HTTPOption {
	var opts []client.HTTPOption
	if timeout := s.cfg.GetPlatformTimeout(); timeout > 0 {
		opts = append(opts, client.WithHTTPTimeout(timeout))
	}
	if s.cfg.TraceReq() {
		opts = append(opts, client.WithHTTPTraceRequests())
	}
	if s.cfg.TraceReqHeaders() {
		opts = append(opts, client.WithHTTPTraceRequestHeaders())
	}
	return opts
}
