package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Discord  DiscordConfig  `json:"discord"`
	Tickets  TicketsConfig  `json:"tickets"`
	Database DatabaseConfig `json:"database"`
	Events   EventsConfig   `json:"events"`
	Redis    RedisConfig    `json:"redis"`
	Log      LogConfig      `json:"log"`
	Lang     LangConfig     `json:"lang"`
}

type DiscordConfig struct {
	Token   string `json:"token"`
	GuildID string `json:"guild_id"`
	Prefix  string `json:"prefix"`
}

type TicketsConfig struct {
	CategoryID          string `json:"category_id"`
	TranscriptChannelID string `json:"transcript_channel_id"`
	SupportRoleID       string `json:"support_role_id"`
	ChannelPrefix       string `json:"channel_prefix"`
	DeleteDelaySeconds  int    `json:"delete_delay_seconds"`
	TranscriptLimit     int    `json:"transcript_limit"`
	TempDir             string `json:"temp_dir"`
	Timezone            string `json:"timezone"`
}

type DatabaseConfig struct {
	Driver  string        `json:"driver"`
	SQLite  SQLiteConfig  `json:"sqlite"`
	MongoDB MongoDBConfig `json:"mongodb"`
}

type SQLiteConfig struct {
	Path string `json:"path"`
}

type MongoDBConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// EventsConfig enables publishing ticket lifecycle events to RabbitMQ.
// Leaving URL empty keeps events in-process only.
type EventsConfig struct {
	AMQPURL  string `json:"amqp_url"`
	Exchange string `json:"exchange"`
}

// RedisConfig enables the per-user open lock. Leaving Addr empty
// disables it.
type RedisConfig struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	LockTTLSec int    `json:"lock_ttl_seconds"`
}

type LogConfig struct {
	Level    string `json:"level"`
	Encoding string `json:"encoding"`
}

type LangConfig struct {
	Path     string `json:"path"`
	Language string `json:"language"`
}

var ErrMissingToken = errors.New("discord token is not set")
var ErrMissingSupportRole = errors.New("support role is not set")

// LoadConfig reads the JSON file at path (a missing file is not an error),
// loads .env if present and lets environment variables override the file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Discord.Token, "DISCORD_TOKEN")
	setFromEnv(&cfg.Discord.GuildID, "GUILD_ID")
	setFromEnv(&cfg.Tickets.CategoryID, "TICKET_CATEGORY_ID")
	setFromEnv(&cfg.Tickets.TranscriptChannelID, "TRANSCRIPT_CHANNEL_ID")
	setFromEnv(&cfg.Tickets.SupportRoleID, "SUPPORT_ROLE_ID")
	setFromEnv(&cfg.Log.Level, "LOG_LEVEL")
	setFromEnv(&cfg.Database.Driver, "DATABASE_DRIVER")
	setFromEnv(&cfg.Database.MongoDB.URI, "MONGODB_URI")
	setFromEnv(&cfg.Events.AMQPURL, "AMQP_URL")
	setFromEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&cfg.Redis.Password, "REDIS_PASSWORD")
	if v := os.Getenv("TICKET_DELETE_DELAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tickets.DeleteDelaySeconds = n
		}
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Discord.Prefix == "" {
		cfg.Discord.Prefix = "!"
	}
	if cfg.Tickets.ChannelPrefix == "" {
		cfg.Tickets.ChannelPrefix = "ticket-"
	}
	if cfg.Tickets.DeleteDelaySeconds <= 0 {
		cfg.Tickets.DeleteDelaySeconds = 2
	}
	if cfg.Tickets.TranscriptLimit <= 0 || cfg.Tickets.TranscriptLimit > 100 {
		cfg.Tickets.TranscriptLimit = 100
	}
	if cfg.Tickets.TempDir == "" {
		cfg.Tickets.TempDir = os.TempDir()
	}
	if cfg.Tickets.Timezone == "" {
		cfg.Tickets.Timezone = "America/Sao_Paulo"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/tickets.db"
	}
	if cfg.Database.MongoDB.Database == "" {
		cfg.Database.MongoDB.Database = "tickets"
	}
	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "tickets"
	}
	if cfg.Redis.LockTTLSec <= 0 {
		cfg.Redis.LockTTLSec = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = "json"
	}
}

func (c *Config) Validate() error {
	if c.Discord.Token == "" || c.Discord.Token == "YOUR_DISCORD_BOT_TOKEN_HERE" {
		return ErrMissingToken
	}
	if c.Tickets.SupportRoleID == "" {
		return ErrMissingSupportRole
	}
	return nil
}

func (t TicketsConfig) DeleteDelay() time.Duration {
	return time.Duration(t.DeleteDelaySeconds) * time.Second
}

// Location falls back to UTC when the zone database lacks the configured
// timezone.
func (t TicketsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (r RedisConfig) LockTTL() time.Duration {
	return time.Duration(r.LockTTLSec) * time.Second
}

func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
