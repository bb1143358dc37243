package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken string         `yaml:"discord_token"`
	GuildID      string         `yaml:"guild_id"`
	DatabasePath string         `yaml:"database_path"`
	LogLevel     string         `yaml:"log_level"`
	Web          WebConfig      `yaml:"web"`
	Announce     AnnounceConfig `yaml:"announce"`
}

type WebConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Addr          string `yaml:"addr"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	RedirectURL   string `yaml:"redirect_url"`
	SessionSecret string `yaml:"session_secret"`
}

// AnnounceConfig drives the weekly war reminder. Spec is a standard
// five-field cron expression evaluated in Timezone.
type AnnounceConfig struct {
	Spec     string `yaml:"spec"`
	Timezone string `yaml:"timezone"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/guildgate.db",
		LogLevel:     "info",
		Web: WebConfig{
			Enabled: false,
			Addr:    ":3000",
		},
		Announce: AnnounceConfig{
			Spec:     "0 16 * * 6",
			Timezone: "America/Sao_Paulo",
		},
	}
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.GuildID == "" {
		return Config{}, errors.New("GUILD_ID is required")
	}
	if cfg.Web.Enabled {
		if cfg.Web.ClientID == "" || cfg.Web.ClientSecret == "" || cfg.Web.RedirectURL == "" {
			return Config{}, errors.New("web dashboard requires OAUTH_CLIENT_ID, OAUTH_CLIENT_SECRET and OAUTH_REDIRECT_URL")
		}
		if cfg.Web.SessionSecret == "" {
			return Config{}, errors.New("web dashboard requires SESSION_SECRET")
		}
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.GuildID = envString("GUILD_ID", cfg.GuildID)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Web.Enabled = envBool("WEB_ENABLED", cfg.Web.Enabled)
	cfg.Web.Addr = envString("WEB_ADDR", cfg.Web.Addr)
	cfg.Web.ClientID = envString("OAUTH_CLIENT_ID", cfg.Web.ClientID)
	cfg.Web.ClientSecret = envString("OAUTH_CLIENT_SECRET", cfg.Web.ClientSecret)
	cfg.Web.RedirectURL = envString("OAUTH_REDIRECT_URL", cfg.Web.RedirectURL)
	cfg.Web.SessionSecret = envString("SESSION_SECRET", cfg.Web.SessionSecret)
	cfg.Announce.Spec = envString("ANNOUNCE_SPEC", cfg.Announce.Spec)
	cfg.Announce.Timezone = envString("ANNOUNCE_TIMEZONE", cfg.Announce.Timezone)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
