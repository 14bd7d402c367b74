package localesync

import (
	"context"

	"github.com/pitabwire/localesync/telemetry"
)

// WithTelemetry sets up the OpenTelemetry providers.
func WithTelemetry(opts ...telemetry.Option) Option {
	return func(ctx context.Context, s *Service) {
		extOpts := append([]telemetry.Option{
			telemetry.WithService(s.Name(), s.Version(), s.Environment()),
		}, opts...)

		if s.telemetryManager != nil {
			_ = s.telemetryManager.Shutdown(ctx)
		}

		s.telemetryManager = telemetry.NewManager(ctx, s.cfg, extOpts...)
		if err := s.telemetryManager.Init(ctx); err != nil {
			s.AddStartupError(err)
			return
		}

		m := s.telemetryManager
		s.AddCleanupMethod(func(ctx context.Context) {
			if err := m.Shutdown(ctx); err != nil {
				s.Log(ctx).WithError(err).Warn("telemetry shutdown failed")
			}
		})
	}
}
