package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jonwraymond/respcache/cache"
	"github.com/jonwraymond/respcache/observe"
	"github.com/jonwraymond/respcache/observe/exporters"
	"github.com/jonwraymond/respcache/secret"
)

// Prefix is prepended to every variable name.
const Prefix = "RESPCACHE_"

// minJWTSecret is the shortest accepted HS256 secret.
const minJWTSecret = 32

// Config is the complete process configuration.
type Config struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"respcached"`
	Version         string        `env:"VERSION" envDefault:"dev"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Cache     CacheConfig     `envPrefix:"CACHE_"`
	Warmup    WarmupConfig    `envPrefix:"WARMUP_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Telemetry TelemetryConfig `envPrefix:"OTEL_"`
	Log       LogConfig       `envPrefix:"LOG_"`
}

// CacheConfig sizes the general and api pools.
type CacheConfig struct {
	Codec             string        `env:"CODEC" envDefault:"msgpack"`
	MaxBodyBytes      int           `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	CapacityThreshold float64       `env:"CAPACITY_THRESHOLD" envDefault:"0.9"`
	GeneralEntries    int           `env:"GENERAL_ENTRIES" envDefault:"10000"`
	GeneralTTL        time.Duration `env:"GENERAL_TTL" envDefault:"5m"`
	GeneralMaxTTL     time.Duration `env:"GENERAL_MAX_TTL" envDefault:"1h"`
	APIEntries        int           `env:"API_ENTRIES" envDefault:"5000"`
	APITTL            time.Duration `env:"API_TTL" envDefault:"30s"`
	APIMaxTTL         time.Duration `env:"API_MAX_TTL" envDefault:"10m"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
}

// WarmupConfig controls the periodic warmup scheduler.
type WarmupConfig struct {
	Enabled     bool          `env:"ENABLED" envDefault:"true"`
	Interval    time.Duration `env:"INTERVAL" envDefault:"5m"`
	Concurrency int           `env:"CONCURRENCY" envDefault:"4"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// AuthConfig holds admin credentials. With neither set, admin routes are
// not mounted.
type AuthConfig struct {
	JWTSecret   string   `env:"JWT_SECRET"`
	JWTIssuer   string   `env:"JWT_ISSUER"`
	JWTAudience string   `env:"JWT_AUDIENCE"`
	AdminKeys   []string `env:"ADMIN_API_KEYS" envSeparator:","`
	SecretsDir  string   `env:"SECRETS_DIR" envDefault:"/run/secrets"`
}

// Enabled reports whether any admin credential is configured.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != "" || len(a.AdminKeys) > 0
}

// TelemetryConfig selects otel exporters.
type TelemetryConfig struct {
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingExporter string  `env:"TRACING_EXPORTER" envDefault:"stdout"`
	SamplePct       float64 `env:"SAMPLE_PCT" envDefault:"0.1"`
	MetricsEnabled  bool    `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsExporter string  `env:"METRICS_EXPORTER" envDefault:"prometheus"`
	Endpoint        string  `env:"ENDPOINT"`
	Insecure        bool    `env:"INSECURE" envDefault:"false"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level   string `env:"LEVEL" envDefault:"info"`
	Backend string `env:"BACKEND" envDefault:"json"`
}

// Load reads the process environment.
func Load(ctx context.Context) (Config, error) {
	return LoadFrom(ctx, env.ToMap(os.Environ()))
}

// LoadFrom reads environ instead of the process environment. Secret
// references still resolve against the process environment and filesystem.
func LoadFrom(ctx context.Context, environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      Prefix,
		Environment: environ,
	}); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	if err := cfg.resolveSecrets(ctx); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolveSecrets(ctx context.Context) error {
	r := secret.NewResolver(true, secret.FileProvider{Dir: c.Auth.SecretsDir}, secret.EnvProvider{})

	jwtSecret, err := r.ResolveValue(ctx, c.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("config: JWT secret: %w", err)
	}
	keys, err := r.ResolveSlice(ctx, c.Auth.AdminKeys)
	if err != nil {
		return fmt.Errorf("config: admin API keys: %w", err)
	}

	c.Auth.JWTSecret = jwtSecret
	c.Auth.AdminKeys = slices.DeleteFunc(keys, func(k string) bool { return k == "" })
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrMissingAddr
	}
	if _, err := cache.NewCodec(c.Cache.Codec); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidCodec, c.Cache.Codec)
	}
	if c.Cache.GeneralEntries < 0 || c.Cache.APIEntries < 0 {
		return ErrInvalidCapacity
	}
	if c.Cache.GeneralMaxTTL > 0 && c.Cache.GeneralTTL > c.Cache.GeneralMaxTTL {
		return fmt.Errorf("%w: general pool", ErrInvalidTTL)
	}
	if c.Cache.APIMaxTTL > 0 && c.Cache.APITTL > c.Cache.APIMaxTTL {
		return fmt.Errorf("%w: api pool", ErrInvalidTTL)
	}
	if c.Cache.CapacityThreshold <= 0 || c.Cache.CapacityThreshold > 1 {
		return fmt.Errorf("%w, got: %f", ErrInvalidThreshold, c.Cache.CapacityThreshold)
	}
	if c.Warmup.Enabled && c.Warmup.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minJWTSecret {
		return ErrWeakJWTSecret
	}

	obs := c.Observe()
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Observe returns the telemetry configuration.
func (c *Config) Observe() observe.Config {
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     c.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.TracingEnabled,
			Exporter:  c.Telemetry.TracingExporter,
			SamplePct: c.Telemetry.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Telemetry.MetricsEnabled,
			Exporter: c.Telemetry.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Log.Level,
			Backend: c.Log.Backend,
		},
		Exporters: exporters.Options{
			Endpoint: c.Telemetry.Endpoint,
			Insecure: c.Telemetry.Insecure,
		},
	}
}

// Pools returns the store configuration for both pools.
func (c *Config) Pools() cache.PoolsConfig {
	return cache.PoolsConfig{
		General: cache.StoreConfig{
			Name:            cache.PoolGeneral,
			Policy:          cache.Policy{DefaultTTL: c.Cache.GeneralTTL, MaxTTL: c.Cache.GeneralMaxTTL},
			MaxEntries:      c.Cache.GeneralEntries,
			CleanupInterval: c.Cache.SweepInterval,
		},
		API: cache.StoreConfig{
			Name:            cache.PoolAPI,
			Policy:          cache.Policy{DefaultTTL: c.Cache.APITTL, MaxTTL: c.Cache.APIMaxTTL},
			MaxEntries:      c.Cache.APIEntries,
			CleanupInterval: c.Cache.SweepInterval,
		},
	}
}
