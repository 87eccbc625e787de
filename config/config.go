package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

const EnvPrefix = "MEDIREMIND_"

const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Telegram TelegramConfig `koanf:"telegram"`
	Database DatabaseConfig `koanf:"database"`
	Timezone string         `koanf:"timezone"`
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Log      LogConfig      `koanf:"log"`
	Notify   NotifyConfig   `koanf:"notify"`
	CalDAV   CalDAVConfig   `koanf:"caldav"`
	Todoist  TodoistConfig  `koanf:"todoist"`
	Expiry   ExpiryConfig   `koanf:"expiry"`

	Location *time.Location `koanf:"-"`
}

type TelegramConfig struct {
	Token     string `koanf:"token"`
	OwnerID   int64  `koanf:"owner_id"`
	PartnerID int64  `koanf:"partner_id"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
	URL    string `koanf:"url"`
}

type ServerConfig struct {
	Port       string `koanf:"port"`
	WebhookURL string `koanf:"webhook_url"`
}

// APIConfig holds the Basic Auth credentials; the JSON API is off when either is empty.
type APIConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

func (a APIConfig) Enabled() bool {
	return a.Username != "" && a.Password != ""
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type NotifyConfig struct {
	Enabled    bool    `koanf:"enabled"`
	RatePerSec float64 `koanf:"rate_per_sec"`
}

// CalDAVConfig configures the calendar mirror; empty URL disables it.
type CalDAVConfig struct {
	URL      string `koanf:"url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Calendar string `koanf:"calendar"`
}

func (c CalDAVConfig) Enabled() bool {
	return c.URL != ""
}

// TodoistConfig configures the task mirror; empty token disables it.
// Project is a project name or ID; empty means the inbox.
type TodoistConfig struct {
	Token   string `koanf:"token"`
	Project string `koanf:"project"`
}

func (t TodoistConfig) Enabled() bool {
	return t.Token != ""
}

type ExpiryConfig struct {
	Cron string `koanf:"cron"`
}

// legacyEnv maps the plain variable names used by older deployments.
var legacyEnv = map[string]string{
	"TELEGRAM_BOT_TOKEN":  "telegram.token",
	"OWNER_TELEGRAM_ID":   "telegram.owner_id",
	"PARTNER_TELEGRAM_ID": "telegram.partner_id",
	"DATABASE_PATH":       "database.path",
	"DATABASE_URL":        "database.url",
	"TIMEZONE":            "timezone",
	"SERVER_PORT":         "server.port",
	"WEBHOOK_URL":         "server.webhook_url",
	"API_USERNAME":        "api.username",
	"API_PASSWORD":        "api.password",
	"CALDAV_URL":          "caldav.url",
	"CALDAV_USERNAME":     "caldav.username",
	"CALDAV_PASSWORD":     "caldav.password",
	"TODOIST_TOKEN":       "todoist.token",
}

// Load reads defaults, then the optional YAML file at path, then the
// environment (a .env file in the working directory is honoured). Later
// sources win.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	for name, key := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("set %s: %w", key, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns MEDIREMIND_TELEGRAM__OWNER_ID into telegram.owner_id.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks required values and resolves the timezone.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required (TELEGRAM_BOT_TOKEN)")
	}
	if c.Telegram.OwnerID == 0 {
		return errors.New("telegram owner_id is required and must be a number (OWNER_TELEGRAM_ID)")
	}

	switch c.Database.Driver {
	case DriverSQLite3, DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database url is required for postgres")
		}
	default:
		return fmt.Errorf("unknown database driver: %s (supported: %s, %s, %s)",
			c.Database.Driver, DriverSQLite3, DriverSQLite, DriverPostgres)
	}

	tz, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	c.Location = tz

	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Notify.RatePerSec <= 0 {
		return errors.New("notify rate_per_sec must be positive")
	}
	if _, err := cron.ParseStandard(c.Expiry.Cron); err != nil {
		return fmt.Errorf("invalid expiry cron %q: %w", c.Expiry.Cron, err)
	}
	return nil
}

func (c *Config) IsAllowedUser(telegramID int64) bool {
	return telegramID == c.Telegram.OwnerID || (c.Telegram.PartnerID != 0 && telegramID == c.Telegram.PartnerID)
}
