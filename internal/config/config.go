// Package config loads billfold settings from defaults, an optional TOML
// file and BILLFOLD_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	// Zone names must resolve in minimal containers without /usr/share/zoneinfo.
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/dukerupert/billfold/internal/database"
	"github.com/dukerupert/billfold/internal/notify"
	"github.com/dukerupert/billfold/internal/reminder"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	Reminders RemindersConfig `toml:"reminders"`
	Email     EmailConfig     `toml:"email"`
	Push      PushConfig      `toml:"push"`
	Telegram  TelegramConfig  `toml:"telegram"`
	AMQP      AMQPConfig      `toml:"amqp"`
	Backup    BackupConfig    `toml:"backup"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	FrontendURL    string   `toml:"frontend_url"`
	LogLevel       string   `toml:"log_level"`
	LogFormat      string   `toml:"log_format"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type AuthConfig struct {
	JWTSecret string        `toml:"jwt_secret"`
	TokenTTL  time.Duration `toml:"token_ttl"`
}

type RemindersConfig struct {
	Enabled     bool     `toml:"enabled"`
	ScanTime    string   `toml:"scan_time"`
	TimeZone    string   `toml:"time_zone"`
	Channels    []string `toml:"channels"`
	Concurrency int      `toml:"concurrency"`
}

type EmailConfig struct {
	PostmarkToken string `toml:"postmark_token"`
	From          string `toml:"from"`
}

type PushConfig struct {
	VAPIDPublicKey  string `toml:"vapid_public_key"`
	VAPIDPrivateKey string `toml:"vapid_private_key"`
	Subscriber      string `toml:"subscriber"`
}

type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
}

type AMQPConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
	Queue    string `toml:"queue"`
}

type BackupConfig struct {
	Endpoint      string `toml:"endpoint"`
	Bucket        string `toml:"bucket"`
	Region        string `toml:"region"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	Passphrase    string `toml:"passphrase"`
	Prefix        string `toml:"prefix"`
	RetentionDays int    `toml:"retention_days"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           5000,
			AllowedOrigins: []string{"http://localhost:5173"},
			FrontendURL:    "http://localhost:5173",
			LogLevel:       "info",
			LogFormat:      "text",
		},
		Database: DatabaseConfig{
			Driver: database.DriverSQLite,
			DSN:    "billfold.db",
		},
		Auth: AuthConfig{
			TokenTTL: 7 * 24 * time.Hour,
		},
		Reminders: RemindersConfig{
			Enabled:     true,
			ScanTime:    "08:00",
			TimeZone:    "UTC",
			Concurrency: 4,
		},
		AMQP: AMQPConfig{
			Exchange: "billfold",
			Queue:    "due_bills",
		},
		Backup: BackupConfig{
			Region:        "us-east-1",
			Prefix:        "billfold",
			RetentionDays: 30,
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// BILLFOLD_CONFIG is consulted; a missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("BILLFOLD_CONFIG")
	}
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("parse config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var problems []string

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = splitList(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %q is not a number", key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %q is not a duration", key, v))
				return
			}
			*dst = d
		}
	}

	num("BILLFOLD_PORT", &cfg.Server.Port)
	list("BILLFOLD_ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)
	str("BILLFOLD_FRONTEND_URL", &cfg.Server.FrontendURL)
	str("BILLFOLD_LOG_LEVEL", &cfg.Server.LogLevel)
	str("BILLFOLD_LOG_FORMAT", &cfg.Server.LogFormat)

	str("BILLFOLD_DB_DRIVER", &cfg.Database.Driver)
	str("BILLFOLD_DB_DSN", &cfg.Database.DSN)

	str("BILLFOLD_JWT_SECRET", &cfg.Auth.JWTSecret)
	dur("BILLFOLD_TOKEN_TTL", &cfg.Auth.TokenTTL)

	flag("BILLFOLD_REMINDERS_ENABLED", &cfg.Reminders.Enabled)
	str("BILLFOLD_SCAN_TIME", &cfg.Reminders.ScanTime)
	str("BILLFOLD_TIME_ZONE", &cfg.Reminders.TimeZone)
	list("BILLFOLD_NOTIFY_CHANNELS", &cfg.Reminders.Channels)
	num("BILLFOLD_SCAN_CONCURRENCY", &cfg.Reminders.Concurrency)

	str("BILLFOLD_POSTMARK_TOKEN", &cfg.Email.PostmarkToken)
	str("BILLFOLD_EMAIL_FROM", &cfg.Email.From)

	str("BILLFOLD_VAPID_PUBLIC_KEY", &cfg.Push.VAPIDPublicKey)
	str("BILLFOLD_VAPID_PRIVATE_KEY", &cfg.Push.VAPIDPrivateKey)
	str("BILLFOLD_PUSH_SUBSCRIBER", &cfg.Push.Subscriber)

	str("BILLFOLD_TELEGRAM_TOKEN", &cfg.Telegram.BotToken)

	str("BILLFOLD_AMQP_URL", &cfg.AMQP.URL)
	str("BILLFOLD_AMQP_EXCHANGE", &cfg.AMQP.Exchange)
	str("BILLFOLD_AMQP_QUEUE", &cfg.AMQP.Queue)

	str("BILLFOLD_S3_ENDPOINT", &cfg.Backup.Endpoint)
	str("BILLFOLD_S3_BUCKET", &cfg.Backup.Bucket)
	str("BILLFOLD_S3_REGION", &cfg.Backup.Region)
	str("BILLFOLD_S3_ACCESS_KEY", &cfg.Backup.AccessKey)
	str("BILLFOLD_S3_SECRET_KEY", &cfg.Backup.SecretKey)
	str("BILLFOLD_BACKUP_PASSPHRASE", &cfg.Backup.Passphrase)
	str("BILLFOLD_BACKUP_PREFIX", &cfg.Backup.Prefix)
	num("BILLFOLD_BACKUP_RETENTION_DAYS", &cfg.Backup.RetentionDays)

	if len(problems) > 0 {
		return fmt.Errorf("invalid environment:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every problem at once rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}

	validDrivers := []string{database.DriverSQLite, database.DriverPostgres}
	if !slices.Contains(validDrivers, c.Database.Driver) {
		problems = append(problems, fmt.Sprintf("invalid database driver %q: must be one of %v", c.Database.Driver, validDrivers))
	}
	if c.Database.DSN == "" {
		problems = append(problems, "database dsn cannot be empty")
	}

	if c.Auth.JWTSecret == "" {
		problems = append(problems, "jwt secret is required (BILLFOLD_JWT_SECRET)")
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, fmt.Sprintf("invalid token ttl %v: must be positive", c.Auth.TokenTTL))
	}

	if _, err := reminder.ParseTimeOfDay(c.Reminders.ScanTime); err != nil {
		problems = append(problems, fmt.Sprintf("invalid scan time %q: must be HH:MM", c.Reminders.ScanTime))
	}
	if _, err := time.LoadLocation(c.Reminders.TimeZone); err != nil {
		problems = append(problems, fmt.Sprintf("unknown time zone %q", c.Reminders.TimeZone))
	}
	if c.Reminders.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf("invalid scan concurrency %d: must be at least 1", c.Reminders.Concurrency))
	}
	channels, err := notify.ParseChannels(strings.Join(c.Reminders.Channels, ","))
	if err != nil {
		problems = append(problems, err.Error())
	}
	for _, ch := range channels {
		switch ch {
		case notify.ChannelEmail:
			if c.Email.PostmarkToken == "" || c.Email.From == "" {
				problems = append(problems, "email channel needs a postmark token and from address")
			}
		case notify.ChannelPush:
			if c.Push.VAPIDPublicKey == "" || c.Push.VAPIDPrivateKey == "" {
				problems = append(problems, "push channel needs VAPID keys")
			}
		case notify.ChannelTelegram:
			if c.Telegram.BotToken == "" {
				problems = append(problems, "telegram channel needs a bot token")
			}
		case notify.ChannelAMQP:
			if c.AMQP.URL == "" {
				problems = append(problems, "amqp channel needs an AMQP url")
			}
		}
	}

	if c.AMQP.URL != "" {
		if u, err := url.Parse(c.AMQP.URL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQP.Exchange == "" || c.AMQP.Queue == "" {
			problems = append(problems, "AMQP exchange and queue names cannot be empty")
		}
	}

	if c.Backup.RetentionDays < 0 {
		problems = append(problems, fmt.Sprintf("invalid backup retention %d: cannot be negative", c.Backup.RetentionDays))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Location returns the zone "today" is computed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reminders.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotifyChannels returns the normalized channel list.
func (c *Config) NotifyChannels() []string {
	channels, _ := notify.ParseChannels(strings.Join(c.Reminders.Channels, ","))
	return channels
}

// BackupEnabled reports whether S3 storage is fully configured.
func (c *Config) BackupEnabled() bool {
	b := c.Backup
	return b.Bucket != "" && b.AccessKey != "" && b.SecretKey != ""
}
