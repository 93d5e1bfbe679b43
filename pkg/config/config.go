// Package config loads tripdesk settings from YAML with an environment overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/goliatone/go-tripdesk/components/tripdesk/session"
	"github.com/goliatone/go-tripdesk/pkg/devapi"
)

// EnvPrefix marks environment variables that override file values.
const EnvPrefix = "TRIPDESK__"

// Config is the top-level configuration shared by tripctl subcommands.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Session  SessionConfig  `koanf:"session"`
	Log      LogConfig      `koanf:"log"`
	Fallback FallbackConfig `koanf:"fallback"`
	Activity ActivityConfig `koanf:"activity"`
	DevAPI   DevAPIConfig   `koanf:"devapi"`
}

// ServerConfig holds the dashboard HTTP server settings.
type ServerConfig struct {
	Addr    string `koanf:"addr" validate:"required"`
	Mode    string `koanf:"mode" validate:"oneof=debug release test"`
	Locale  string `koanf:"locale" validate:"required"`
	OwnerID string `koanf:"owner_id"`
}

// APIConfig points the remote client at the upstream REST API.
type APIConfig struct {
	BaseURL  string        `koanf:"base_url" validate:"required,url"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	Retry    RetryConfig   `koanf:"retry"`
}

// RetryConfig bounds read retries.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts" validate:"gte=1,lte=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `koanf:"max_interval" validate:"gt=0"`
}

// SessionConfig selects the tenant area and where tokens persist.
type SessionConfig struct {
	Area      string `koanf:"area" validate:"oneof=office bus_operator"`
	StorePath string `koanf:"store_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb" validate:"gte=0"`
	RetentionDays   int    `koanf:"retention_days" validate:"gte=0"`
	MaxBackups      int    `koanf:"max_backups" validate:"gte=0"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// FallbackConfig points at a directory of dataset overrides. Empty uses the embedded data.
type FallbackConfig struct {
	Dir string `koanf:"dir"`
}

// ActivityConfig toggles the activity feed emitter.
type ActivityConfig struct {
	Enabled bool   `koanf:"enabled"`
	Channel string `koanf:"channel"`
}

// DevAPIConfig configures the local upstream used for development and demos.
type DevAPIConfig struct {
	Addr     string           `koanf:"addr" validate:"required"`
	Secret   string           `koanf:"secret" validate:"required,min=8"`
	TokenTTL time.Duration    `koanf:"token_ttl" validate:"gt=0"`
	Latency  time.Duration    `koanf:"latency" validate:"gte=0"`
	FailRate float64          `koanf:"fail_rate" validate:"gte=0,lte=1"`
	Accounts []devapi.Account `koanf:"accounts" validate:"dive"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:    ":8080",
			Mode:    "debug",
			Locale:  "en",
			OwnerID: "office-1",
		},
		API: APIConfig{
			BaseURL:  "http://localhost:8090/api",
			Timeout:  10 * time.Second,
			CacheTTL: 30 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 200 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
		Session: SessionConfig{Area: string(session.AreaOffice)},
		Log:     LogConfig{Level: "info", Format: "text"},
		Activity: ActivityConfig{
			Enabled: true,
			Channel: "tripdesk",
		},
		DevAPI: DevAPIConfig{
			Addr:     ":8090",
			Secret:   "tripdesk-dev-secret",
			TokenTTL: 12 * time.Hour,
			Accounts: devapi.DefaultAccounts(),
		},
	}
}

// Load reads configuration from a YAML file and overlays environment variables.
// An empty path skips the file. Environment variables use the prefix "TRIPDESK__" and
// double-underscore as the hierarchy separator, so TRIPDESK__API__BASE_URL overrides
// api.base_url.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config: stat %s: %w", configPath, err)
		}
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.TrimPrefix(s, EnvPrefix)
		key = strings.ToLower(key)
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct tag checks followed by cross-field constraints.
func (c *Config) Validate() error {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.Session.Area = strings.TrimSpace(c.Session.Area)

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("config: invalid %s %v: failed %q", fieldPath(first.Namespace()), first.Value(), first.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json", "custom":
	default:
		return fmt.Errorf("config: invalid log.format %q: must be one of %q, %q, %q", c.Log.Format, "text", "json", "custom")
	}

	if c.API.Retry.MaxInterval < c.API.Retry.InitialInterval {
		return fmt.Errorf("config: api.retry.max_interval %s is shorter than initial_interval %s", c.API.Retry.MaxInterval, c.API.Retry.InitialInterval)
	}
	if c.Activity.Enabled && strings.TrimSpace(c.Activity.Channel) == "" {
		return fmt.Errorf("config: activity.channel is required when activity is enabled")
	}

	seen := make(map[string]struct{}, len(c.DevAPI.Accounts))
	for i, account := range c.DevAPI.Accounts {
		if _, err := session.ParseArea(account.Area); err != nil {
			return fmt.Errorf("config: devapi.accounts[%d]: %w", i, err)
		}
		if _, dup := seen[account.Email]; dup {
			return fmt.Errorf("config: devapi.accounts[%d]: duplicate email %q", i, account.Email)
		}
		seen[account.Email] = struct{}{}
	}
	if c.Server.Mode == "release" && c.DevAPI.Secret == Default().DevAPI.Secret {
		return fmt.Errorf("config: devapi.secret must be changed in release mode")
	}
	return nil
}

// Area returns the parsed session area.
func (c *Config) Area() session.Area {
	area, err := session.ParseArea(c.Session.Area)
	if err != nil {
		return session.AreaOffice
	}
	return area
}

// fieldPath turns a validator namespace like Config.API.BaseURL into api.baseurl.
func fieldPath(namespace string) string {
	namespace = strings.TrimPrefix(namespace, "Config.")
	return strings.ToLower(namespace)
}
