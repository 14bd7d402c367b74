package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/pitabwire/localesync/locale"
)

type contextKey string

func (c contextKey) String() string {
	return "localesync/config/" + string(c)
}

const ctxKeyConfiguration = contextKey("configurationKey")

var (
	ErrMissingValue       = errors.New("required configuration value is missing")
	ErrDefaultUnsupported = errors.New("default locale is not in the supported locales")
	ErrUnsafeStagingDir   = errors.New("staging directory must be an absolute path below the filesystem root")
)

// ToContext adds service configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts service configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

// ConfigurationDefault holds the settings every deployment of the service shares.
type ConfigurationDefault struct {
	LogLevel      string `envDefault:"info"                      env:"LOG_LEVEL"       yaml:"log_level"`
	LogTimeFormat string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT" yaml:"log_time_format"`
	LogColored    bool   `envDefault:"true"                      env:"LOG_COLORED"     yaml:"log_colored"`

	TraceRequests        bool `envDefault:"false" env:"TRACE_REQUESTS"          yaml:"trace_requests"`
	TraceRequestsHeaders bool `envDefault:"false" env:"TRACE_REQUESTS_HEADERS"  yaml:"trace_requests_headers"`

	OpenTelemetryDisable    bool    `envDefault:"false" env:"OPENTELEMETRY_DISABLE"        yaml:"opentelemetry_disable"`
	OpenTelemetryTraceRatio float64 `envDefault:"0.1"   env:"OPENTELEMETRY_TRACE_ID_RATIO" yaml:"opentelemetry_trace_id_ratio"`

	ServiceName        string `envDefault:"localesync" env:"SERVICE_NAME"        yaml:"service_name"`
	ServiceEnvironment string `envDefault:""           env:"SERVICE_ENVIRONMENT" yaml:"service_environment"`
	ServiceVersion     string `envDefault:""           env:"SERVICE_VERSION"     yaml:"service_version"`

	HTTPServerPort string `envDefault:":8080" env:"HTTP_PORT" yaml:"http_server_port"`

	WorkerPoolCapacity       int    `envDefault:"16" env:"WORKER_POOL_CAPACITY"        yaml:"worker_pool_capacity"`
	WorkerPoolCount          int    `envDefault:"1"  env:"WORKER_POOL_COUNT"           yaml:"worker_pool_count"`
	WorkerPoolExpiryDuration string `envDefault:"1s" env:"WORKER_POOL_EXPIRY_DURATION" yaml:"worker_pool_expiry_duration"`
}

type ConfigurationService interface {
	Name() string
	Environment() string
	Version() string
}

var _ ConfigurationService = new(ConfigurationDefault)

func (c *ConfigurationDefault) Name() string {
	return c.ServiceName
}

func (c *ConfigurationDefault) Environment() string {
	return c.ServiceEnvironment
}

func (c *ConfigurationDefault) Version() string {
	return c.ServiceVersion
}

type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingTimeFormat() string
	LoggingColored() bool
	LoggingLevelIsDebug() bool
}

var _ ConfigurationLogLevel = new(ConfigurationDefault)

func (c *ConfigurationDefault) LoggingLevel() string {
	return c.LogLevel
}

func (c *ConfigurationDefault) LoggingTimeFormat() string {
	return c.LogTimeFormat
}

func (c *ConfigurationDefault) LoggingColored() bool {
	return c.LogColored
}

func (c *ConfigurationDefault) LoggingLevelIsDebug() bool {
	return c.LoggingLevel() == "debug" || c.LoggingLevel() == "trace"
}

type ConfigurationTraceRequests interface {
	TraceReq() bool
	TraceReqHeaders() bool
}

var _ ConfigurationTraceRequests = new(ConfigurationDefault)

func (c *ConfigurationDefault) TraceReq() bool {
	return c.TraceRequests
}

func (c *ConfigurationDefault) TraceReqHeaders() bool {
	return c.TraceRequestsHeaders
}

type ConfigurationPorts interface {
	HTTPPort() string
}

var _ ConfigurationPorts = new(ConfigurationDefault)

func (c *ConfigurationDefault) HTTPPort() string {
	if i, err := strconv.Atoi(c.HTTPServerPort); err == nil && i > 0 {
		return fmt.Sprintf(":%s", strings.TrimSpace(c.HTTPServerPort))
	}

	if strings.Contains(c.HTTPServerPort, ":") {
		return c.HTTPServerPort
	}

	return ":8080"
}

type ConfigurationTelemetry interface {
	DisableOpenTelemetry() bool
	SamplingRatio() float64
}

var _ ConfigurationTelemetry = new(ConfigurationDefault)

func (c *ConfigurationDefault) DisableOpenTelemetry() bool {
	return c.OpenTelemetryDisable
}

func (c *ConfigurationDefault) SamplingRatio() float64 {
	return c.OpenTelemetryTraceRatio
}

type ConfigurationWorkerPool interface {
	GetCapacity() int
	GetCount() int
	GetExpiryDuration() time.Duration
}

var _ ConfigurationWorkerPool = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetCapacity() int {
	return c.WorkerPoolCapacity
}

func (c *ConfigurationDefault) GetCount() int {
	return c.WorkerPoolCount
}

func (c *ConfigurationDefault) GetExpiryDuration() time.Duration {
	if c.WorkerPoolExpiryDuration != "" {
		duration, err := time.ParseDuration(c.WorkerPoolExpiryDuration)
		if err == nil {
			return duration
		}
	}

	return time.Second
}

// Configuration is the full localesync configuration, loaded once at start up.
type Configuration struct {
	ConfigurationDefault

	WebhookSecret string `env:"WEBHOOK_SECRET" yaml:"webhook_secret"`

	PlatformAPIKey    string        `env:"PLATFORM_API_KEY"    yaml:"platform_api_key"`
	PlatformProjectID string        `env:"PLATFORM_PROJECT_ID" yaml:"platform_project_id"`
	PlatformAPIURL    string        `env:"PLATFORM_API_URL"    yaml:"platform_api_url"    envDefault:"https://api.lokalise.com/api2"`
	PlatformTimeout   time.Duration `env:"PLATFORM_TIMEOUT"    yaml:"platform_timeout"    envDefault:"30s"`

	StorageURL     string        `env:"STORAGE_URL"     yaml:"storage_url"`
	StorageKey     string        `env:"STORAGE_KEY"     yaml:"storage_key"`
	StorageBucket  string        `env:"STORAGE_BUCKET"  yaml:"storage_bucket"  envDefault:"i18ndemo"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" yaml:"storage_timeout" envDefault:"15s"`
	CacheControl   string        `env:"CACHE_CONTROL"   yaml:"cache_control"   envDefault:"max-age=3600"`

	DefaultLocaleValue    string   `env:"DEFAULT_LOCALE"    yaml:"default_locale"    envDefault:"en"`
	SupportedLocaleValues []string `env:"SUPPORTED_LOCALES" yaml:"supported_locales" envDefault:"en" envSeparator:","`

	CacheURI string `env:"CACHE_URI" yaml:"cache_uri" envDefault:"mem://"`

	StagingDir         string        `env:"STAGING_DIR"         yaml:"staging_dir"         envDefault:"/tmp/localesync"`
	LocalesSubdir      string        `env:"LOCALES_SUBDIR"      yaml:"locales_subdir"      envDefault:"locales"`
	SyncTimeout        time.Duration `env:"SYNC_TIMEOUT"        yaml:"sync_timeout"        envDefault:"2m"`
	PublishConcurrency int           `env:"PUBLISH_CONCURRENCY" yaml:"publish_concurrency" envDefault:"8"`
	PublishRetries     int           `env:"PUBLISH_RETRIES"     yaml:"publish_retries"     envDefault:"2"`
	SyncEventsURL      string        `env:"SYNC_EVENTS_URL"     yaml:"sync_events_url"`

	UploadSourceDir   string        `env:"UPLOAD_SOURCE_DIR"   yaml:"upload_source_dir"   envDefault:"app/locales/en"`
	UploadRootDir     string        `env:"UPLOAD_ROOT_DIR"     yaml:"upload_root_dir"     envDefault:"app"`
	UploadTag         string        `env:"UPLOAD_TAG"          yaml:"upload_tag"          envDefault:"api"`
	UploadPoll        bool          `env:"UPLOAD_POLL"         yaml:"upload_poll"         envDefault:"true"`
	UploadPollTimeout time.Duration `env:"UPLOAD_POLL_TIMEOUT" yaml:"upload_poll_timeout" envDefault:"1m"`
}

type ConfigurationLocales interface {
	DefaultLocale() string
	SupportedLocales() []string
}

var _ ConfigurationLocales = new(Configuration)

// DefaultLocale returns the normalized default locale.
func (c *Configuration) DefaultLocale() string {
	return locale.Normalize(c.DefaultLocaleValue)
}

// SupportedLocales returns the normalized, de-duplicated supported locales in configured order.
func (c *Configuration) SupportedLocales() []string {
	locales := make([]string, 0, len(c.SupportedLocaleValues))
	for _, l := range c.SupportedLocaleValues {
		l = locale.Normalize(l)
		if l == "" || slices.Contains(locales, l) {
			continue
		}
		locales = append(locales, l)
	}
	return locales
}

type ConfigurationPlatform interface {
	GetPlatformAPIKey() string
	GetPlatformProjectID() string
	GetPlatformAPIURL() string
	GetPlatformTimeout() time.Duration
}

var _ ConfigurationPlatform = new(Configuration)

func (c *Configuration) GetPlatformAPIKey() string {
	return c.PlatformAPIKey
}

func (c *Configuration) GetPlatformProjectID() string {
	return strings.TrimSpace(c.PlatformProjectID)
}

func (c *Configuration) GetPlatformAPIURL() string {
	return strings.TrimSuffix(c.PlatformAPIURL, "/")
}

func (c *Configuration) GetPlatformTimeout() time.Duration {
	return c.PlatformTimeout
}

type ConfigurationStorage interface {
	GetStorageURL() string
	GetStorageKey() string
	GetStorageBucket() string
	GetStorageTimeout() time.Duration
	GetCacheControl() string
}

var _ ConfigurationStorage = new(Configuration)

func (c *Configuration) GetStorageURL() string {
	return c.StorageURL
}

func (c *Configuration) GetStorageKey() string {
	return c.StorageKey
}

func (c *Configuration) GetStorageBucket() string {
	return c.StorageBucket
}

func (c *Configuration) GetStorageTimeout() time.Duration {
	return c.StorageTimeout
}

func (c *Configuration) GetCacheControl() string {
	return c.CacheControl
}

type ConfigurationSync interface {
	GetWebhookSecret() string
	GetStagingDir() string
	GetLocalesSubdir() string
	GetSyncTimeout() time.Duration
	GetPublishConcurrency() int
	GetPublishRetries() int
	GetSyncEventsURL() string
}

var _ ConfigurationSync = new(Configuration)

func (c *Configuration) GetWebhookSecret() string {
	return c.WebhookSecret
}

func (c *Configuration) GetStagingDir() string {
	return c.StagingDir
}

func (c *Configuration) GetLocalesSubdir() string {
	return strings.Trim(c.LocalesSubdir, "/")
}

func (c *Configuration) GetSyncTimeout() time.Duration {
	return c.SyncTimeout
}

func (c *Configuration) GetPublishConcurrency() int {
	if c.PublishConcurrency < 1 {
		return 1
	}
	return c.PublishConcurrency
}

func (c *Configuration) GetPublishRetries() int {
	if c.PublishRetries < 0 {
		return 0
	}
	return c.PublishRetries
}

func (c *Configuration) GetSyncEventsURL() string {
	return c.SyncEventsURL
}

type ConfigurationUpload interface {
	GetUploadSourceDir() string
	GetUploadRootDir() string
	GetUploadTag() string
	GetUploadPoll() bool
	GetUploadPollTimeout() time.Duration
}

var _ ConfigurationUpload = new(Configuration)

func (c *Configuration) GetUploadSourceDir() string {
	return c.UploadSourceDir
}

func (c *Configuration) GetUploadRootDir() string {
	return c.UploadRootDir
}

func (c *Configuration) GetUploadTag() string {
	return c.UploadTag
}

func (c *Configuration) GetUploadPoll() bool {
	return c.UploadPoll
}

func (c *Configuration) GetUploadPollTimeout() time.Duration {
	return c.UploadPollTimeout
}

// Validate reports every required value that is missing and whether the default
// locale belongs to the supported set. The process must not start when it fails.
func (c *Configuration) Validate() error {
	var errs []error

	required := map[string]string{
		"WEBHOOK_SECRET":      c.WebhookSecret,
		"PLATFORM_API_KEY":    c.PlatformAPIKey,
		"PLATFORM_PROJECT_ID": c.GetPlatformProjectID(),
		"STORAGE_URL":         c.StorageURL,
	}
	for _, name := range slices.Sorted(maps.Keys(required)) {
		if strings.TrimSpace(required[name]) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingValue, name))
		}
	}

	if err := checkStagingDir(c.StagingDir); err != nil {
		errs = append(errs, err)
	}

	supported := c.SupportedLocales()
	if !slices.Contains(supported, c.DefaultLocale()) {
		errs = append(errs, fmt.Errorf("%w: %q not in [%s]",
			ErrDefaultUnsupported, c.DefaultLocale(), strings.Join(supported, ", ")))
	}

	return errors.Join(errs...)
}

// checkStagingDir rejects directories a sync run must never wipe.
func checkStagingDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" || !filepath.IsAbs(dir) {
		return fmt.Errorf("%w: STAGING_DIR=%q", ErrUnsafeStagingDir, dir)
	}
	clean := filepath.Clean(dir)
	if clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return fmt.Errorf("%w: STAGING_DIR=%q", ErrUnsafeStagingDir, dir)
	}
	return nil
}
