package rilis

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/eringen/rilis/logger"
)

// SiteConfig holds all configuration for a rilis site.
type SiteConfig struct {
	Name        string `mapstructure:"name"`        // Site name (default "Blog")
	URL         string `mapstructure:"url"`         // Public base URL of the exported site
	Description string `mapstructure:"description"` // Site description for RSS and meta tags
	Author      string `mapstructure:"author"`      // Author name for JSON-LD and the article feed

	Addr         string `mapstructure:"addr"`          // Listen address (default ":3000")
	DatabasePath string `mapstructure:"database_path"` // SQLite path (default "data/cms.db")
	OutputDir    string `mapstructure:"output_dir"`    // Root for exported files (default "public")
	UploadDir    string `mapstructure:"upload_dir"`    // Image uploads (default "uploads")

	AdminUsername string `mapstructure:"admin_username"` // Default account name (default "admin")
	AdminPassword string `mapstructure:"admin_password"` // Required: default account password

	SessionSecret   string        `mapstructure:"session_secret"`   // Required: session signing secret
	SessionDir      string        `mapstructure:"session_dir"`      // Server-side session files (default "data/sessions")
	SessionLifetime time.Duration `mapstructure:"session_lifetime"` // Session expiry (default 1h)
	CookieSecure    bool          `mapstructure:"cookie_secure"`    // Set true for HTTPS

	// SearchRequiresAuth puts GET /search/:query behind the login.
	SearchRequiresAuth bool `mapstructure:"search_requires_auth"`

	Log logger.Config `mapstructure:"log"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/cms.db"
	}
	if c.OutputDir == "" {
		c.OutputDir = "public"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.SessionDir == "" {
		c.SessionDir = "data/sessions"
	}
	if c.SessionLifetime == 0 {
		c.SessionLifetime = time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (c *SiteConfig) validate() error {
	if c.AdminPassword == "" {
		return errors.New("rilis: AdminPassword is required")
	}
	if c.SessionSecret == "" {
		return errors.New("rilis: SessionSecret is required")
	}
	return nil
}

// LoadConfig reads config.yml (from the working directory, ./configs or
// /etc/rilis) and RILIS_* environment variables, e.g. RILIS_ADMIN_PASSWORD or
// RILIS_LOG_LEVEL. A missing config file is not an error.
func LoadConfig(paths ...string) (SiteConfig, error) {
	v := viper.New()

	v.SetDefault("name", "Blog")
	v.SetDefault("url", "http://localhost:3000")
	v.SetDefault("description", "")
	v.SetDefault("author", "")
	v.SetDefault("addr", ":3000")
	v.SetDefault("database_path", "data/cms.db")
	v.SetDefault("output_dir", "public")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "")
	v.SetDefault("session_secret", "")
	v.SetDefault("session_dir", "data/sessions")
	v.SetDefault("session_lifetime", "1h")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("search_requires_auth", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{".", "./configs", "/etc/rilis/"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return SiteConfig{}, err
		}
	}

	v.SetEnvPrefix("RILIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithFs replaces the filesystem used for exported files and uploads.
func WithFs(fs afero.Fs) Option {
	return func(a *App) {
		a.fs = fs
	}
}

// WithClock overrides the time source used for post creation and upload
// file names.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}
