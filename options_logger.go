package localesync

import (
	"context"
	"log/slog"

	"github.com/pitabwire/util"
)

// WithLogger builds the service logger from the logging configuration.
func WithLogger(opts ...util.Option) Option {
	return func(ctx context.Context, s *Service) {
		logLevel, err := util.ParseLevel(s.cfg.LoggingLevel())
		if err == nil {
			opts = append([]util.Option{util.WithLogLevel(logLevel)}, opts...)
		}
		opts = append([]util.Option{
			util.WithLogTimeFormat(s.cfg.LoggingTimeFormat()),
			util.WithLogNoColor(!s.cfg.LoggingColored()),
			util.WithLogStackTrace(),
		}, opts...)

		if s.telemetryManager != nil && s.telemetryManager.LogHandler() != nil {
			opts = append(opts, util.WithLogHandler(s.telemetryManager.LogHandler()))
		}

		s.logger = util.NewLogger(ctx, opts...).WithField("service", s.Name())
	}
}

func (s *Service) Log(ctx context.Context) *util.LogEntry {
	return s.logger.WithContext(ctx)
}

func (s *Service) SLog(ctx context.Context) *slog.Logger {
	return s.Log(ctx).SLog()
}
