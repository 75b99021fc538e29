package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richmansdream/crmdesk/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func load(t *testing.T, opts LoadOptions) *Config {
	t.Helper()
	t.Setenv(EnvPrefix+"HOME", t.TempDir())
	if opts.Environment == nil {
		opts.Environment = map[string]string{}
	}
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{}
	}
	cfg, err := Load(opts)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := load(t, LoadOptions{})

	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	assert.Equal(t, StoreFile, cfg.Session.Store)
	assert.Equal(t, "authToken", cfg.Session.Key)
	assert.Equal(t, 10, cfg.Lists.PageSize)
	assert.True(t, cfg.Mock.Fallback)
	assert.False(t, cfg.Mock.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Stub.TokenTTL)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
api:
  base_url: http://file.example/api
lists:
  page_size: 25
log:
  level: debug
stub:
  latency: 150ms
`)
	dotenv := writeFile(t, dir, ".env", "CRMDESK_LISTS_PAGE_SIZE=30\nCRMDESK_LOG_LEVEL=warn\n")

	cfg := load(t, LoadOptions{
		Path:     path,
		EnvFiles: []string{dotenv},
		Environment: map[string]string{
			"CRMDESK_LOG_LEVEL": "error",
		},
	})

	// file beats defaults
	assert.Equal(t, "http://file.example/api", cfg.API.BaseURL)
	assert.Equal(t, 150*time.Millisecond, cfg.Stub.Latency)
	// .env beats file
	assert.Equal(t, 30, cfg.Lists.PageSize)
	// environment beats .env
	assert.Equal(t, "error", cfg.Log.Level)
	// untouched keys keep their defaults
	assert.Equal(t, "authToken", cfg.Session.Key)
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	cfg := load(t, LoadOptions{EnvFiles: []string{filepath.Join(t.TempDir(), "nope.env")}})
	assert.NotNil(t, cfg)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	t.Setenv(EnvPrefix+"HOME", t.TempDir())
	_, err := Load(LoadOptions{
		Path:        filepath.Join(t.TempDir(), "missing.yaml"),
		Environment: map[string]string{},
		EnvFiles:    []string{},
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigLoad, errors.CodeOf(err))
}

func TestLoad_BadYAML(t *testing.T) {
	t.Setenv(EnvPrefix+"HOME", t.TempDir())
	path := writeFile(t, t.TempDir(), "config.yaml", "api: [unterminated")
	_, err := Load(LoadOptions{Path: path, Environment: map[string]string{}, EnvFiles: []string{}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileUnmarshal, errors.CodeOf(err))
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv(EnvPrefix+"HOME", t.TempDir())
	_, err := Load(LoadOptions{
		Environment: map[string]string{"CRMDESK_LISTS_PAGE_SIZE": "lots"},
		EnvFiles:    []string{},
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigLoad, errors.CodeOf(err))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		pageSize int
		want     int
	}{
		{"zero uses default", 0, 10},
		{"negative uses default", -5, 10},
		{"in range kept", 50, 50},
		{"above backend limit clamped", 500, MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Lists.PageSize = tt.pageSize
			cfg.Sanitize()
			assert.Equal(t, tt.want, cfg.Lists.PageSize)
		})
	}

	cfg := Default()
	cfg.API.BaseURL = " http://crm.example/api/ "
	cfg.Session.Store = "REDIS"
	cfg.Sanitize()
	assert.Equal(t, "http://crm.example/api", cfg.API.BaseURL)
	assert.Equal(t, StoreRedis, cfg.Session.Store)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.API.BaseURL = "/api" }},
		{"unsupported scheme", func(c *Config) { c.API.BaseURL = "ftp://crm.example" }},
		{"unknown store", func(c *Config) { c.Session.Store = "keychain" }},
		{"redis without addr", func(c *Config) { c.Session.Store = StoreRedis; c.Redis.Addr = "" }},
		{"negative latency", func(c *Config) { c.Stub.Latency = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(err))
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestApply(t *testing.T) {
	cfg := Default()
	mock := true

	require.NoError(t, cfg.Apply(Overrides{
		BaseURL:  "http://127.0.0.1:9000/api/",
		LogLevel: "DEBUG",
		PageSize: 1000,
		Mock:     &mock,
	}))

	assert.Equal(t, "http://127.0.0.1:9000/api", cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, MaxPageSize, cfg.Lists.PageSize)
	assert.True(t, cfg.Mock.Enabled)

	assert.Error(t, cfg.Apply(Overrides{BaseURL: "not a url"}))
}
