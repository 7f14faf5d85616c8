// Package config loads tala settings from defaults, an optional YAML file,
// TALA_ environment variables and command line flags, in that order.
package config

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/lborres/tala/core"
)

const EnvPrefix = "TALA_"

// Session store backends
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	Server   ServerConfig   `koanf:"server" json:"server"`
	Database DatabaseConfig `koanf:"database" json:"database"`
	Session  SessionConfig  `koanf:"session" json:"session"`
	Redis    RedisConfig    `koanf:"redis" json:"redis"`
	Cache    CacheConfig    `koanf:"cache" json:"cache"`
	Password PasswordConfig `koanf:"password" json:"password"`
	Log      LogConfig      `koanf:"log" json:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" json:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL string `koanf:"url" json:"url"`
}

type SessionConfig struct {
	// Store selects where sessions live: postgres, redis or memory
	Store        string        `koanf:"store" json:"store"`
	MaxAge       time.Duration `koanf:"max_age" json:"max_age"`
	CookieName   string        `koanf:"cookie_name" json:"cookie_name"`
	CookieSecure bool          `koanf:"cookie_secure" json:"cookie_secure"`

	// PruneSchedule is a cron spec for deleting expired sessions.
	// Empty disables the job.
	PruneSchedule string `koanf:"prune_schedule" json:"prune_schedule"`
}

type RedisConfig struct {
	URL       string `koanf:"url" json:"url"`
	KeyPrefix string `koanf:"key_prefix" json:"key_prefix"`
}

type CacheConfig struct {
	Enabled bool          `koanf:"enabled" json:"enabled"`
	TTL     time.Duration `koanf:"ttl" json:"ttl"`
	MaxSize int           `koanf:"max_size" json:"max_size"`
}

// PasswordConfig holds the argon2id cost parameters for new digests
type PasswordConfig struct {
	Memory      uint32 `koanf:"memory" json:"memory"`
	Iterations  uint32 `koanf:"iterations" json:"iterations"`
	Parallelism uint8  `koanf:"parallelism" json:"parallelism"`
}

type LogConfig struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			URL: "postgres://localhost:5432/tala?sslmode=disable",
		},
		Session: SessionConfig{
			Store:         StorePostgres,
			MaxAge:        core.DefaultSessionConfig().MaxAge,
			CookieName:    core.DefaultCookieName,
			PruneSchedule: "@hourly",
		},
		Redis: RedisConfig{
			URL:       "redis://localhost:6379/0",
			KeyPrefix: "tala:",
		},
		Cache: CacheConfig{
			TTL:     time.Minute,
			MaxSize: 10000,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Iterations:  3,
			Parallelism: 2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// flagKeys maps command line flags onto config keys
var flagKeys = map[string]string{
	"addr":          "server.addr",
	"database-url":  "database.url",
	"session-store": "session.store",
	"redis-url":     "redis.url",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

// RegisterFlags adds the flags Load understands to fs
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.Server.Addr, "HTTP listen address")
	fs.String("database-url", d.Database.URL, "PostgreSQL connection URL")
	fs.String("session-store", d.Session.Store, "session store (postgres, redis or memory)")
	fs.String("redis-url", d.Redis.URL, "Redis connection URL")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
}

// Load builds a Config. path may be empty, and flags may be nil.
// Only flags that were set on the command line override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

// envKey turns TALA_SESSION__MAX_AGE into session.max_age
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Session),
		validation.Field(&c.Cache),
		validation.Field(&c.Password),
		validation.Field(&c.Log),
	)
	if err != nil {
		return err
	}

	// identities live in postgres unless everything is in memory
	if c.Session.Store == StoreMemory {
		return nil
	}
	if err := validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.URL, validation.Required),
	); err != nil {
		return err
	}
	if c.Session.Store == StoreRedis {
		return validation.ValidateStruct(&c.Redis,
			validation.Field(&c.Redis.URL, validation.Required),
		)
	}
	return nil
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.ShutdownTimeout, validation.Required),
	)
}

func (s SessionConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Store, validation.Required, validation.In(StorePostgres, StoreRedis, StoreMemory)),
		validation.Field(&s.MaxAge, validation.Required),
		validation.Field(&s.CookieName, validation.Required),
	)
}

func (c CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.Required),
		validation.Field(&c.MaxSize, validation.Required, validation.Min(1)),
	)
}

func (p PasswordConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Memory, validation.Required),
		validation.Field(&p.Iterations, validation.Required),
		validation.Field(&p.Parallelism, validation.Required),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("json", "text")),
	)
}
