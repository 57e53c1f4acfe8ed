// Package config loads application configuration from defaults, an optional
// YAML file and POSTSCHED_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bissquit/post-scheduler/internal/delivery"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every configuration environment variable. Nested keys
// are separated by a double underscore, e.g. POSTSCHED_DATABASE__URL.
const EnvPrefix = "POSTSCHED_"

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	CORS     CORSConfig     `koanf:"cors"`
	Auth     AuthConfig     `koanf:"auth"`
	Calendar CalendarConfig `koanf:"calendar"`
	Delivery DeliveryConfig `koanf:"delivery"`
	Channels ChannelsConfig `koanf:"channels"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	MigrateOnStart  bool          `koanf:"migrate_on_start"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// AuthConfig contains bearer token settings.
type AuthConfig struct {
	Enabled bool          `koanf:"enabled"`
	Secret  string        `koanf:"secret"`
	Issuer  string        `koanf:"issuer"`
	Leeway  time.Duration `koanf:"leeway"`
}

// CalendarConfig contains calendar settings.
type CalendarConfig struct {
	Timezone string `koanf:"timezone"`
}

// DeliveryConfig contains trigger-check settings.
type DeliveryConfig struct {
	SchedulerEnabled bool          `koanf:"scheduler_enabled"`
	Schedule         string        `koanf:"schedule"`
	RetryPolicy      string        `koanf:"retry_policy"`
	StatsInterval    time.Duration `koanf:"stats_interval"`
}

// ChannelsConfig contains publishing channel credentials.
type ChannelsConfig struct {
	Graph     GraphConfig     `koanf:"graph"`
	Facebook  FacebookConfig  `koanf:"facebook"`
	Instagram InstagramConfig `koanf:"instagram"`
}

// GraphConfig contains Graph API settings shared by facebook and instagram.
type GraphConfig struct {
	BaseURL     string        `koanf:"base_url"`
	PageID      string        `koanf:"page_id"`
	AccessToken string        `koanf:"access_token"`
	Timeout     time.Duration `koanf:"timeout"`
	RateLimit   float64       `koanf:"rate_limit"`
}

// FacebookConfig contains facebook publisher settings.
type FacebookConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
}

// InstagramConfig contains instagram publisher settings.
type InstagramConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			ConnectAttempts: 5,
			ConnectTimeout:  60 * time.Second,
			MigrationsPath:  "migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Calendar: CalendarConfig{
			Timezone: "UTC",
		},
		Delivery: DeliveryConfig{
			SchedulerEnabled: true,
			Schedule:         delivery.DefaultSchedule,
			RetryPolicy:      string(delivery.RetryFailedOnly),
			StatsInterval:    delivery.DefaultStatsInterval,
		},
	}
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables are used.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf(&cfg)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// unmarshalConf decodes durations from strings and splits comma separated
// strings into lists, so POSTSCHED_CORS__ALLOWED_ORIGINS=a,b yields two origins.
func unmarshalConf(cfg *Config) koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	}
}

// envKey maps POSTSCHED_CHANNELS__GRAPH__ACCESS_TOKEN to channels.graph.access_token.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", c.Log.Format))
	}

	if c.Auth.Enabled && c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required when auth is enabled"))
	}

	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("calendar.timezone: %w", err))
	}

	if _, err := delivery.ParseRetryPolicy(c.Delivery.RetryPolicy); err != nil {
		errs = append(errs, fmt.Errorf("delivery.retry_policy: %w", err))
	}

	if c.Channels.Facebook.Enabled || c.Channels.Instagram.Enabled {
		if c.Channels.Graph.AccessToken == "" {
			errs = append(errs, errors.New("channels.graph.access_token is required when a graph channel is enabled"))
		}
	}
	if c.Channels.Instagram.Enabled && c.Channels.Graph.PageID == "" {
		errs = append(errs, errors.New("channels.graph.page_id is required when instagram is enabled"))
	}
	if c.Channels.Facebook.Enabled && c.Channels.Graph.PageID == "" && c.Channels.Facebook.Endpoint == "" {
		errs = append(errs, errors.New("channels.graph.page_id or channels.facebook.endpoint is required when facebook is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the calendar timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Calendar.Timezone)
}
