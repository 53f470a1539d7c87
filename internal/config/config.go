// Package config loads runtime configuration from a YAML file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/berealtors/wrapsheet/internal/util"
)

// Config is the complete service configuration.
type Config struct {
	Addr     string         `yaml:"addr"`
	DBPath   string         `yaml:"db_path"`
	Log      LogConfig      `yaml:"log"`
	GZ       GrowthZone     `yaml:"growthzone"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Listings ListingsConfig `yaml:"listings"`
	Mail     MailConfig     `yaml:"mail"`
	Admin    AdminConfig    `yaml:"admin"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GrowthZone configures the membership API client and the office sync job.
type GrowthZone struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	SyncInterval time.Duration `yaml:"sync_interval"`
	SyncLookback time.Duration `yaml:"sync_lookback"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type ListingsConfig struct {
	BridgeToken string        `yaml:"bridge_token"`
	UpstreamURL string        `yaml:"upstream_url"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// MailConfig holds both providers: MailChannels for task notifications and
// Mailjet for LOGS requests.
type MailConfig struct {
	From           string `yaml:"from"`
	FromName       string `yaml:"from_name"`
	MailChannelURL string `yaml:"mailchannels_url"`
	MailjetKey     string `yaml:"mailjet_key"`
	MailjetSecret  string `yaml:"mailjet_secret"`
	MailjetURL     string `yaml:"mailjet_url"`
	LogsFrom       string `yaml:"logs_from"`
}

// AdminConfig holds the admin credentials. TokenHash is a bcrypt hash of the
// admin token; the plain token is never stored.
type AdminConfig struct {
	TokenHash string `yaml:"token_hash"`
	UploadKey string `yaml:"upload_key"`
	JWTSecret string `yaml:"jwt_secret"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Addr:   ":8787",
		DBPath: filepath.Join(util.DataDir(AppName), DBFileName),
		Log:    LogConfig{Level: "info", Format: "text"},
		GZ: GrowthZone{
			BaseURL:      "https://bonitaspringsesterorealtorsfl.growthzoneapp.com",
			SyncInterval: 24 * time.Hour,
			SyncLookback: 30 * 24 * time.Hour,
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-2.0-flash",
		},
		Listings: ListingsConfig{
			UpstreamURL: "https://api.bridgedataoutput.com",
			CacheTTL:    300 * time.Second,
		},
		Mail: MailConfig{
			FromName:       "BER Wrap Sheet",
			MailChannelURL: "https://api.mailchannels.net/tx/v1/send",
			MailjetURL:     "https://api.mailjet.com/v3.1/send",
			LogsFrom:       "no-reply@ccorealtors.org",
		},
	}
}

// Load builds the configuration: .env first, then the YAML file at path (if
// it exists), then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Addr, "WRAPSHEET_ADDR")
	setString(&c.DBPath, "WRAPSHEET_DB_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	setString(&c.GZ.APIKey, "GZ_API_KEY")
	setString(&c.GZ.BaseURL, "GZ_BASE_URL")
	if err := setDuration(&c.GZ.SyncInterval, "GZ_SYNC_INTERVAL"); err != nil {
		return err
	}

	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Listings.BridgeToken, "BRIDGE_TOKEN")
	if err := setDuration(&c.Listings.CacheTTL, "LISTINGS_CACHE_TTL"); err != nil {
		return err
	}

	setString(&c.Mail.From, "MAIL_FROM")
	setString(&c.Mail.FromName, "MAIL_FROM_NAME")
	setString(&c.Mail.MailjetKey, "MJ_API_KEY")
	setString(&c.Mail.MailjetSecret, "MJ_API_SECRET")
	setString(&c.Mail.LogsFrom, "LOGS_FROM_EMAIL")

	setString(&c.Admin.TokenHash, "ADMIN_TOKEN_HASH")
	setString(&c.Admin.UploadKey, "ADMIN_UPLOAD_KEY")
	setString(&c.Admin.JWTSecret, "JWT_SECRET")
	return nil
}

// Validate rejects unusable settings and returns warnings for features that
// will answer 500 until their secret is configured.
func (c *Config) Validate() ([]string, error) {
	if strings.TrimSpace(c.Addr) == "" {
		return nil, fmt.Errorf("addr is required")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return nil, fmt.Errorf("db_path is required")
	}
	if c.GZ.SyncInterval < 0 {
		return nil, fmt.Errorf("growthzone.sync_interval must not be negative")
	}
	if c.Listings.CacheTTL < 0 {
		return nil, fmt.Errorf("listings.cache_ttl must not be negative")
	}

	var warnings []string
	warn := func(value, feature string) {
		if strings.TrimSpace(value) == "" {
			warnings = append(warnings, feature)
		}
	}
	warn(c.GZ.APIKey, "GZ_API_KEY unset: GrowthZone proxy and office sync disabled")
	warn(c.Gemini.APIKey, "GEMINI_API_KEY unset: OCR disabled")
	warn(c.Listings.BridgeToken, "BRIDGE_TOKEN unset: listings proxy disabled")
	warn(c.Mail.From, "MAIL_FROM unset: completion emails disabled")
	if c.Mail.MailjetKey == "" || c.Mail.MailjetSecret == "" {
		warnings = append(warnings, "MJ_API_KEY/MJ_API_SECRET unset: LOGS emails disabled")
	}
	warn(c.Admin.TokenHash, "ADMIN_TOKEN_HASH unset: LOGS admin endpoints locked")
	warn(c.Admin.JWTSecret, "JWT_SECRET unset: LOGS admin endpoints locked")
	warn(c.Admin.UploadKey, "ADMIN_UPLOAD_KEY unset: member upload locked")
	return warnings, nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// setDuration accepts Go durations ("90s") or a bare number of seconds.
func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
