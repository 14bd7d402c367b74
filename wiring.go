package localesync

import (
	"context"
	"errors"
	"fmt"

	"github.com/pitabwire/localesync/client"
	"github.com/pitabwire/localesync/internal/api"
	"github.com/pitabwire/localesync/internal/lokalise"
	"github.com/pitabwire/localesync/internal/syncer"
	"github.com/pitabwire/localesync/internal/translations"
	"github.com/pitabwire/localesync/internal/upload"
	"github.com/pitabwire/localesync/internal/webhook"
	"github.com/pitabwire/localesync/locale"
	"github.com/pitabwire/localesync/telemetry"
	"github.com/pitabwire/localesync/workerpool"
)

// wire fills in every component an option did not provide and mounts the routes.
func (s *Service) wire(ctx context.Context) {
	cfg := s.cfg
	log := s.Log(ctx)

	locales, err := locale.NewSet(cfg.DefaultLocale(), cfg.SupportedLocales())
	if err != nil {
		s.AddStartupError(err)
		return
	}
	s.locales = locales

	if s.invoker == nil {
		s.invoker = client.NewManager(ctx, s.defaultHTTPOptions()...)
	}

	if s.pool == nil {
		opts := append([]workerpool.Option{
			workerpool.WithSinglePoolCapacity(cfg.GetPublishConcurrency()),
			workerpool.WithPoolNonblocking(false),
		}, s.poolOptions...)
		s.pool, err = workerpool.NewManager(ctx, cfg, nil, opts...)
		if err != nil {
			s.AddStartupError(err)
			return
		}
		pool := s.pool
		s.AddCleanupMethod(func(ctx context.Context) {
			_ = pool.Shutdown(ctx)
		})
	}

	raw, ok := s.cacheManager.GetRawCache(TranslationsCache)
	if !ok {
		WithCacheURI(cfg.CacheURI)(ctx, s)
		if raw, ok = s.cacheManager.GetRawCache(TranslationsCache); !ok {
			return
		}
	}
	// Cached resources live for one process, shared backends included.
	if err = raw.Flush(ctx); err != nil {
		s.AddStartupError(fmt.Errorf("reset translation cache: %w", err))
		return
	}
	cacheManager := s.cacheManager
	s.AddCleanupMethod(func(ctx context.Context) {
		if closeErr := cacheManager.Close(); closeErr != nil {
			s.Log(ctx).WithError(closeErr).Warn("cache close failed")
		}
	})

	if s.bucket == nil {
		s.bucket, err = s.openBucket(ctx)
		if err != nil {
			s.AddStartupError(fmt.Errorf("open storage: %w", err))
			return
		}
	}
	bucket := s.bucket
	s.AddCleanupMethod(func(ctx context.Context) {
		if closeErr := bucket.Close(); closeErr != nil {
			s.Log(ctx).WithError(closeErr).Warn("storage close failed")
		}
	})

	s.loader = translations.NewLoader(s.bucket,
		translations.WithCache(raw),
		translations.WithPrefix(cfg.GetLocalesSubdir()),
		translations.WithTimeout(cfg.GetStorageTimeout()))

	pipelineOpts := []syncer.PipelineOption{syncer.WithRunTimeout(cfg.GetSyncTimeout())}

	if s.eventsURL != "" {
		if err = s.queueManager.AddPublisher(ctx, syncer.EventsReference, s.eventsURL); err != nil {
			s.AddStartupError(fmt.Errorf("sync events publisher: %w", err))
			return
		}
		pipelineOpts = append(pipelineOpts, syncer.WithEvents(s.queueManager))
	}
	queueManager := s.queueManager
	s.AddCleanupMethod(func(ctx context.Context) {
		if closeErr := queueManager.Close(ctx); closeErr != nil {
			s.Log(ctx).WithError(closeErr).Warn("queue close failed")
		}
	})
	s.AddHealthCheck(CheckerFunc(func() error {
		for _, info := range queueManager.Publishers() {
			if !info.Initiated {
				return fmt.Errorf("%w: publisher %s is not open", ErrHealthCheckFailed, info.Reference)
			}
		}
		return nil
	}))

	metrics, err := telemetry.NewSyncMetrics()
	if err != nil {
		log.WithError(err).Warn("sync metrics unavailable")
	} else {
		pipelineOpts = append(pipelineOpts, syncer.WithMetrics(metrics))
	}

	platform, err := lokalise.New(cfg.GetPlatformProjectID(), cfg.GetPlatformAPIKey(), s.invoker,
		lokalise.WithBaseURL(cfg.GetPlatformAPIURL()),
		lokalise.WithTimeout(cfg.GetPlatformTimeout()))
	if err != nil && !errors.Is(err, lokalise.ErrMissingProject) {
		s.AddStartupError(err)
		return
	}

	deps := api.Dependencies{Loader: s.loader, Locales: s.locales}
	if platform != nil {
		s.pipeline = syncer.NewPipeline(
			syncer.NewResolver(platform),
			syncer.NewDownloader(platform, cfg.GetStagingDir()),
			syncer.NewPublisher(s.bucket, s.pool,
				syncer.WithSubdir(cfg.GetLocalesSubdir()),
				syncer.WithCacheControl(cfg.GetCacheControl()),
				syncer.WithUploadTimeout(cfg.GetStorageTimeout()),
				syncer.WithRetries(cfg.GetPublishRetries())),
			pipelineOpts...)

		s.uploader = upload.New(platform, s.pool, cfg.GetUploadSourceDir(), cfg.GetUploadRootDir(),
			upload.WithTag(cfg.GetUploadTag()),
			upload.WithPolling(cfg.GetUploadPoll(), cfg.GetUploadPollTimeout()))

		deps.Webhook = webhook.NewHandler(cfg.GetWebhookSecret(), platform.ProjectID(), s.pipeline)
		deps.Upload = upload.NewHandler(s.uploader)
	}

	s.router = api.NewRouter(deps)
	s.handler = s.router

	s.AddHealthCheck(CheckerFunc(func() error {
		if s.pool == nil {
			return workerpool.ErrPoolNotConfigured
		}
		_, poolErr := s.pool.GetPool()
		return poolErr
	}))

	log.WithField("locales", s.locales.Supported()).
		WithField("default_locale", s.locales.Default()).
		WithField("routes", len(s.router.Routes())).
		Info("service wired")
}
