package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spatalkback/talkback/pkg/endpoints"
)

func TestLoadConfig_Success(t *testing.T) {
	t.Setenv("API_SERVICE_PORT", "9090")
	t.Setenv("MAX_FILE_SIZE", "10485760")
	t.Setenv("CAPTCHA_TTL", "60")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://example.test")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.NotNil(t, cfg)
	assert.Equal(t, "9090", cfg.ApiServicePort)
	assert.Equal(t, int64(10485760), cfg.MaxFileSize)
	assert.Equal(t, int64(60), cfg.CaptchaTTL)
	assert.Equal(t, []string{"http://localhost:5173", "https://example.test"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.ApiServicePort)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, endpoints.DevelopmentBaseURL, cfg.APIBaseURL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, int64(6), cfg.CaptchaLength)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Setenv("MAX_FILE_SIZE", "invalid")
	t.Setenv("MINIO_USE_SSL", "maybe")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	// Should use default when invalid
	assert.Equal(t, int64(5*1024*1024), cfg.MaxFileSize)
	assert.False(t, cfg.MinioUseSSL)
}

func TestLoadConfig_LogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	os.Clearenv()
	envFile := filepath.Join(t.TempDir(), "test.env")
	assert.NoError(t, os.WriteFile(envFile, []byte("APP_ENV=production\nPAGE_SIZE=25\n"), 0o600))
	t.Cleanup(os.Clearenv)

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, int64(25), cfg.PageSize)
	assert.Equal(t, endpoints.ProductionBaseURL, cfg.APIBaseURL)
}

func TestLoadConfig_MalformedEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "bad.env")
	require.NoError(t, os.WriteFile(envFile, []byte("BAD-KEY=1\n"), 0o600))

	cfg, err := LoadConfig(envFile)

	require.Error(t, err)
	assert.Contains(t, err.Error(), envFile)
	assert.Nil(t, cfg)
}

func TestLoadConfig_APIBaseURLOverride(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("API_BASE_URL", "https://staging.example.test/api")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.test/api", cfg.APIBaseURL)
}

func TestResolveAPIBaseURL(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"production", endpoints.ProductionBaseURL},
		{"PRODUCTION", endpoints.ProductionBaseURL},
		{" production ", endpoints.ProductionBaseURL},
		{"development", endpoints.DevelopmentBaseURL},
		{"test", endpoints.DevelopmentBaseURL},
		{"", endpoints.DevelopmentBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAPIBaseURL(tt.env))
			// Deterministic for the same input
			assert.Equal(t, ResolveAPIBaseURL(tt.env), ResolveAPIBaseURL(tt.env))
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{
		PostgreSQLHost:     "localhost",
		PostgreSQLPort:     5433,
		PostgreSQLUser:     "u",
		PostgreSQLPassword: "p",
		PostgreSQLDatabase: "d",
	}

	assert.Equal(t, "host=localhost user=u password=p dbname=d port=5433 sslmode=disable TimeZone=UTC", cfg.PostgresDSN())
}
