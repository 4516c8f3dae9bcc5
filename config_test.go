package rilis

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()
	assert.Equal(t, "Blog", cfg.Name)
	assert.Equal(t, "http://localhost:3000", cfg.URL)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "data/cms.db", cfg.DatabasePath)
	assert.Equal(t, "public", cfg.OutputDir)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, time.Hour, cfg.SessionLifetime)
	assert.Equal(t, "info", cfg.Log.Level)

	cfg = SiteConfig{URL: "https://example.com/"}
	cfg.setDefaults()
	assert.Equal(t, "https://example.com", cfg.URL)
}

func TestValidate(t *testing.T) {
	cfg := SiteConfig{}
	assert.Error(t, cfg.validate())
	cfg.AdminPassword = "pw"
	assert.Error(t, cfg.validate())
	cfg.SessionSecret = "secret"
	assert.NoError(t, cfg.validate())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yml := `name: "Notes"
url: "https://notes.example/"
admin_password: "from-file"
session_secret: "s3cret"
session_lifetime: "30m"
search_requires_auth: true
log:
  level: "debug"
  format: "json"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o644))
	t.Setenv("RILIS_ADMIN_PASSWORD", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "Notes", cfg.Name)
	assert.Equal(t, "https://notes.example", cfg.URL)
	assert.Equal(t, "from-env", cfg.AdminPassword)
	assert.Equal(t, "s3cret", cfg.SessionSecret)
	assert.Equal(t, 30*time.Minute, cfg.SessionLifetime)
	assert.True(t, cfg.SearchRequiresAuth)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "public", cfg.OutputDir)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("RILIS_LOG_LEVEL", "warn")
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "Blog", cfg.Name)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.SearchRequiresAuth)
}
