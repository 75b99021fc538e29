// Package config loads crmdesk settings.
//
// Sources, lowest precedence first:
//   - built-in defaults
//   - the YAML config file (~/.crmdesk/config.yaml or --config)
//   - .env files in the working directory
//   - CRMDESK_* environment variables
//   - command-line flags (applied by the caller through Overrides)
package config

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/richmansdream/crmdesk/internal/errors"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "CRMDESK_"

// MaxPageSize is the largest page the backend accepts
const MaxPageSize = 100

// Token store kinds
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the effective crmdesk configuration
type Config struct {
	API     APIConfig     `yaml:"api" json:"api" envPrefix:"API_"`
	Session SessionConfig `yaml:"session" json:"session" envPrefix:"SESSION_"`
	Redis   RedisConfig   `yaml:"redis" json:"redis" envPrefix:"REDIS_"`
	Lists   ListsConfig   `yaml:"lists" json:"lists" envPrefix:"LISTS_"`
	Log     LogConfig     `yaml:"log" json:"log" envPrefix:"LOG_"`
	Mock    MockConfig    `yaml:"mock" json:"mock" envPrefix:"MOCK_"`
	Stub    StubConfig    `yaml:"stub" json:"stub" envPrefix:"STUB_"`
}

// APIConfig locates the CRM REST API
type APIConfig struct {
	BaseURL   string `yaml:"base_url" json:"base_url" env:"URL"`
	UserAgent string `yaml:"user_agent,omitempty" json:"user_agent,omitempty" env:"USER_AGENT"`
}

// SessionConfig selects where the bearer token is persisted
type SessionConfig struct {
	// Store is one of file, memory or redis
	Store string `yaml:"store" json:"store" env:"STORE"`
	File  string `yaml:"file" json:"file" env:"FILE"`
	Key   string `yaml:"key" json:"key" env:"KEY"`
}

// RedisConfig is used when Session.Store is redis
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr" env:"ADDR"`
	Password string `yaml:"password,omitempty" json:"-" env:"PASSWORD"`
	DB       int    `yaml:"db" json:"db" env:"DB"`
	Prefix   string `yaml:"prefix" json:"prefix" env:"PREFIX"`
}

// ListsConfig tunes the paginated views
type ListsConfig struct {
	PageSize int `yaml:"page_size" json:"page_size" env:"PAGE_SIZE"`
}

// LogConfig configures the structured logger
type LogConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`
	Format string `yaml:"format" json:"format" env:"FORMAT"`
	// File receives console logs; the terminal is owned by the UI
	File string `yaml:"file" json:"file" env:"FILE"`
}

// MockConfig controls the bundled sample data
type MockConfig struct {
	// Fallback serves sample data when an endpoint is missing (404/501)
	Fallback bool `yaml:"fallback" json:"fallback" env:"FALLBACK"`
	// Enabled serves sample data without contacting the API
	Enabled bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
}

// StubConfig configures `crmdesk stub serve`
type StubConfig struct {
	Addr     string        `yaml:"addr" json:"addr" env:"ADDR"`
	Secret   string        `yaml:"secret,omitempty" json:"-" env:"SECRET"`
	TokenTTL time.Duration `yaml:"token_ttl" json:"token_ttl" env:"TOKEN_TTL"`
	Latency  time.Duration `yaml:"latency" json:"latency" env:"LATENCY"`
	Validate bool          `yaml:"validate" json:"validate" env:"VALIDATE"`
}

// Default returns the built-in configuration
func Default() *Config {
	home := Home()
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000/api",
		},
		Session: SessionConfig{
			Store: StoreFile,
			File:  filepath.Join(home, "auth.json"),
			Key:   "authToken",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "crmdesk:",
		},
		Lists: ListsConfig{PageSize: 10},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
			File:   filepath.Join(home, "crmdesk.log"),
		},
		Mock: MockConfig{Fallback: true},
		Stub: StubConfig{
			Addr:     "127.0.0.1:8000",
			TokenTTL: 24 * time.Hour,
			Validate: true,
		},
	}
}

// Home is the crmdesk state directory, ~/.crmdesk
func Home() string {
	if h := os.Getenv(EnvPrefix + "HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crmdesk"
	}
	return filepath.Join(home, ".crmdesk")
}

// DefaultPath is the config file read when --config is not given
func DefaultPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// Path is an explicit config file; it must exist when set
	Path string
	// EnvFiles are dotenv files; missing files are skipped. Defaults to .env
	EnvFiles []string
	// Environment replaces the process environment, for tests
	Environment map[string]string
}

// Load builds the configuration from every source except flags
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return nil, err
	}

	environ, err := environment(opts)
	if err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, "failed to parse environment", err)
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && stderrors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeConfigLoad, fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.NewFileUnmarshalError(path, "YAML", err)
	}
	return nil
}

// environment merges dotenv files under the process environment, which wins
func environment(opts LoadOptions) (map[string]string, error) {
	files := opts.EnvFiles
	if files == nil {
		files = []string{".env"}
	}

	merged := map[string]string{}
	for _, f := range files {
		values, err := godotenv.Read(f)
		if err != nil {
			var pathErr *os.PathError
			if stderrors.As(err, &pathErr) {
				continue
			}
			return nil, errors.Wrap(errors.ErrCodeConfigLoad, fmt.Sprintf("failed to load %s", f), err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}

	base := opts.Environment
	if base == nil {
		base = map[string]string{}
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				base[k] = v
			}
		}
	}
	for k, v := range base {
		merged[k] = v
	}
	return merged, nil
}

// Overrides are command-line flag values; empty fields are ignored
type Overrides struct {
	BaseURL   string
	LogLevel  string
	LogFormat string
	PageSize  int
	Mock      *bool
}

// Apply layers flag values on top of c and re-sanitizes
func (c *Config) Apply(o Overrides) error {
	if o.BaseURL != "" {
		c.API.BaseURL = o.BaseURL
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Log.Format = o.LogFormat
	}
	if o.PageSize != 0 {
		c.Lists.PageSize = o.PageSize
	}
	if o.Mock != nil {
		c.Mock.Enabled = *o.Mock
	}
	c.Sanitize()
	return c.Validate()
}

// Sanitize applies guardrails to loaded values
func (c *Config) Sanitize() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")

	switch {
	case c.Lists.PageSize < 1:
		c.Lists.PageSize = 10
	case c.Lists.PageSize > MaxPageSize:
		c.Lists.PageSize = MaxPageSize
	}

	c.Session.Store = strings.ToLower(strings.TrimSpace(c.Session.Store))
	if c.Session.Store == "" {
		c.Session.Store = StoreFile
	}
	if c.Session.Key == "" {
		c.Session.Key = "authToken"
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.NewConfigInvalidError(fmt.Sprintf("api.base_url %q is not an http(s) URL", c.API.BaseURL))
	}

	switch c.Session.Store {
	case StoreFile:
		if c.Session.File == "" {
			return errors.NewConfigInvalidError("session.file is required for the file store")
		}
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.NewConfigInvalidError("redis.addr is required for the redis store")
		}
	default:
		return errors.NewConfigInvalidError(fmt.Sprintf("session.store %q must be file, memory or redis", c.Session.Store))
	}

	if c.Stub.TokenTTL < 0 || c.Stub.Latency < 0 {
		return errors.NewConfigInvalidError("stub durations must not be negative")
	}
	return nil
}
