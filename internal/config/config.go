// Package config loads reportcore settings from defaults, an optional YAML
// file and REPORTCORE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// EnvPrefix is prepended to every environment variable, e.g.
// REPORTCORE_CACHE_TTL for cache.ttl.
const EnvPrefix = "REPORTCORE"

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the complete runtime configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Server     ServerConfig     `mapstructure:"server"`
	DataSource DataSourceConfig `mapstructure:"datasource"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

type EngineConfig struct {
	Locale      string `mapstructure:"locale"` // BCP 47 tag for string ordering
	Parallelism int    `mapstructure:"parallelism"`
}

type CacheConfig struct {
	Backend    string        `mapstructure:"backend"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	DB     int    `mapstructure:"db"`
	Prefix string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`

	// RateLimit is the sustained requests per second allowed per client
	// address. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type DataSourceConfig struct {
	HTTP HTTPSourceConfig `mapstructure:"http"`
}

type HTTPSourceConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{Locale: "en", Parallelism: 1},
		Cache: CacheConfig{
			Backend:    CacheNone,
			TTL:        5 * time.Minute,
			MaxEntries: 1024,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "reportcore:result:",
			},
		},
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 50,
			RateBurst: 100,
		},
		DataSource: DataSourceConfig{HTTP: HTTPSourceConfig{Timeout: 10 * time.Second}},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("engine.locale", d.Engine.Locale)
	v.SetDefault("engine.parallelism", d.Engine.Parallelism)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.redis.prefix", d.Cache.Redis.Prefix)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)
	v.SetDefault("datasource.http.timeout", d.DataSource.HTTP.Timeout)
}

// Load builds the configuration. path names an optional YAML file; when
// empty no file is read. Every key has a default, so environment variables
// override any of them: REPORTCORE_ENGINE_PARALLELISM=4.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	if _, err := language.Parse(c.Engine.Locale); err != nil {
		errs = append(errs, fmt.Errorf("engine.locale: %w", err))
	}
	if c.Engine.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("engine.parallelism: must not be negative (got %d)", c.Engine.Parallelism))
	}

	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr: required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q (want none, memory or redis)", c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl: must not be negative (got %s)", c.Cache.TTL))
	}

	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit: must not be negative (got %g)", c.Server.RateLimit))
	}
	if c.DataSource.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("datasource.http.timeout: must not be negative (got %s)", c.DataSource.HTTP.Timeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Tag returns the collation locale.
func (c EngineConfig) Tag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}
