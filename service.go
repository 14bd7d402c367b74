// Package localesync assembles the locale sync service: webhook, upload and translation
// endpoints backed by the translation platform and an object store.
package localesync

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pitabwire/util"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pitabwire/localesync/cache"
	"github.com/pitabwire/localesync/client"
	"github.com/pitabwire/localesync/config"
	"github.com/pitabwire/localesync/internal/api"
	"github.com/pitabwire/localesync/internal/syncer"
	"github.com/pitabwire/localesync/internal/translations"
	"github.com/pitabwire/localesync/internal/upload"
	"github.com/pitabwire/localesync/locale"
	"github.com/pitabwire/localesync/queue"
	"github.com/pitabwire/localesync/storage"
	"github.com/pitabwire/localesync/telemetry"
	"github.com/pitabwire/localesync/workerpool"
)

type contextKey string

func (c contextKey) String() string {
	return "localesync/" + string(c)
}

const (
	ctxKeyService = contextKey("serviceKey")

	defaultHTTPReadTimeoutSeconds  = 15
	defaultHTTPWriteTimeoutSeconds = 15
	defaultHTTPIdleTimeoutSeconds  = 60
	shutdownTimeoutSeconds         = 30

	healthCheckPath = "/healthz"
)

// Service holds together all application components for the lifetime of the process.
type Service struct {
	name        string
	version     string
	environment string
	cfg         *config.Configuration

	logger           *util.LogEntry
	telemetryManager telemetry.Manager

	invoker      client.Manager
	pool         workerpool.Manager
	poolOptions  []workerpool.Option
	cacheManager cache.Manager
	queueManager queue.Manager
	bucket       storage.Bucket
	eventsURL    string

	locales  *locale.Set
	loader   *translations.Loader
	pipeline *syncer.Pipeline
	uploader *upload.Uploader
	router   *api.RouteRegistry

	handler        http.Handler
	healthCheckers []Checker

	startupErrors []error
	cleanup       func(ctx context.Context)
	cancelFunc    context.CancelFunc
	stopMutex     sync.Mutex
	stopped       bool
}

type Option func(ctx context.Context, service *Service)

// NewService creates the service from cfg. Options run before the components are wired, so
// they can replace any of them. Problems are collected and reported by Run.
func NewService(ctx context.Context, cfg *config.Configuration, opts ...Option) (context.Context, *Service) {
	ctx, signalCancelFunc := signal.NotifyContext(ctx,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	if cfg == nil {
		cfg = &config.Configuration{}
	}

	s := &Service{
		name:         cfg.Name(),
		version:      cfg.Version(),
		environment:  cfg.Environment(),
		cfg:          cfg,
		logger:       util.Log(ctx),
		cacheManager: cache.NewManager(),
		queueManager: queue.NewQueueManager(ctx),
		eventsURL:    cfg.GetSyncEventsURL(),
		cancelFunc:   signalCancelFunc,
	}
	if s.name == "" {
		s.name = "localesync"
	}

	ctx = config.ToContext(ctx, cfg)

	if err := cfg.Validate(); err != nil {
		s.AddStartupError(err)
	}

	opts = append([]Option{WithTelemetry(), WithLogger()}, opts...)
	s.Init(ctx, opts...)

	ctx = util.ContextWithLogger(ctx, s.logger)
	s.wire(ctx)

	return ToContext(ctx, s), s
}

// ToContext pushes a service instance into the supplied context.
func ToContext(ctx context.Context, service *Service) context.Context {
	return context.WithValue(ctx, ctxKeyService, service)
}

// FromContext obtains the service propagated through the context.
func FromContext(ctx context.Context) *Service {
	service, ok := ctx.Value(ctxKeyService).(*Service)
	if !ok {
		return nil
	}
	return service
}

// Init applies options to the service.
func (s *Service) Init(ctx context.Context, opts ...Option) {
	for _, opt := range opts {
		opt(ctx, s)
	}
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Version() string {
	return s.version
}

func (s *Service) Environment() string {
	return s.environment
}

func (s *Service) Config() *config.Configuration {
	return s.cfg
}

// Loader returns the translation loader used by the read endpoints.
func (s *Service) Loader() *translations.Loader {
	return s.loader
}

// Pipeline returns the sync pipeline run by the webhook.
func (s *Service) Pipeline() *syncer.Pipeline {
	return s.pipeline
}

// Locales returns the supported locale set.
func (s *Service) Locales() *locale.Set {
	return s.locales
}

// Routes lists the application routes.
func (s *Service) Routes() []api.RouteInfo {
	if s.router == nil {
		return nil
	}
	return s.router.Routes()
}

// AddStartupError records a problem found while building the service.
func (s *Service) AddStartupError(err error) {
	if err != nil {
		s.startupErrors = append(s.startupErrors, err)
	}
}

// StartupError joins every recorded start-up problem.
func (s *Service) StartupError() error {
	return errors.Join(s.startupErrors...)
}

// AddCleanupMethod adds a function run while the service stops. Later additions run first.
func (s *Service) AddCleanupMethod(f func(ctx context.Context)) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()

	if s.cleanup == nil {
		s.cleanup = f
		return
	}

	old := s.cleanup
	s.cleanup = func(ctx context.Context) { f(ctx); old(ctx) }
}

// Handler is the complete HTTP handler: health check plus application routes, traced.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(healthCheckPath, s.HandleHealth)

	if s.handler != nil {
		mux.Handle("/", s.handler)
	} else {
		mux.Handle("/", http.NotFoundHandler())
	}

	return otelhttp.NewHandler(mux, s.name)
}

// Run serves HTTP on address, or the configured port when empty, until ctx ends.
func (s *Service) Run(ctx context.Context, address string) error {
	if err := s.StartupError(); err != nil {
		s.Log(ctx).WithError(err).Error("service cannot start")
		return err
	}

	if address == "" {
		address = s.cfg.HTTPPort()
	}

	server := &http.Server{
		Addr:    address,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadTimeout:  defaultHTTPReadTimeoutSeconds * time.Second,
		// webhook requests run a whole sync before answering
		WriteTimeout: s.cfg.GetSyncTimeout() + defaultHTTPWriteTimeoutSeconds*time.Second,
		IdleTimeout:  defaultHTTPIdleTimeoutSeconds * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Log(ctx).WithField("address", address).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeoutSeconds*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.Stop(context.WithoutCancel(ctx))
	if err != nil {
		s.Log(ctx).WithError(err).Error("system exit in error")
		return err
	}
	if ctx.Err() != nil {
		s.Log(ctx).Debug("system exit")
		return ctx.Err()
	}
	return nil
}

// Stop runs the cleanup methods and releases every component. It is safe to call more than once.
func (s *Service) Stop(ctx context.Context) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true

	s.Log(ctx).Info("service stopping")

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	if s.cleanup != nil {
		s.cleanup(ctx)
	}
}
