package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Mode: "debug"},
		JWT:     JWTConfig{Secret: "dev-secret"},
		Storage: StorageConfig{MaxUploadMB: 5},
		Cleanup: CleanupConfig{RetentionDays: 30},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }, "jwt.secret"},
		{"short secret in release", func(c *Config) { c.Server.Mode = "release" }, "too short"},
		{"long secret in release", func(c *Config) {
			c.Server.Mode = "release"
			c.JWT.Secret = strings.Repeat("s", 32)
		}, ""},
		{"zero upload size", func(c *Config) { c.Storage.MaxUploadMB = 0 }, "max_upload_mb"},
		{"negative retention", func(c *Config) { c.Cleanup.RetentionDays = -1 }, "retention_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	uploads := filepath.Join(dir, "uploads")
	yaml := `
server:
  port: "9090"
  mode: debug
jwt:
  secret: file-secret
storage:
  type: local
  local_path: ` + uploads + `
platform:
  whatsapp_number: "+966 50 000 0000"
cors:
  allowed_origins:
    - https://manhaj.test
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, "7070", cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, 168*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(5<<20), cfg.Storage.MaxUploadBytes())
	assert.Equal(t, 30, cfg.Cleanup.RetentionDays)
	assert.Equal(t, "@daily", cfg.Cleanup.Schedule)
	assert.Equal(t, "+966 50 000 0000", cfg.Platform.WhatsAppNumber)
	assert.Equal(t, "منهج", cfg.Platform.SiteNameAr)
	assert.Equal(t, []string{"https://manhaj.test"}, cfg.CORS.AllowedOrigins)

	_, err = os.Stat(uploads)
	assert.NoError(t, err, "local storage directory is created")
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("jwt:\n  secret: short\nserver:\n  mode: release\n"), 0o644))
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SERVER_MODE", "")

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
