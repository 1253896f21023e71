// Package config loads runtime settings for stepchat. Values come from
// built-in defaults, then an optional YAML file, then a .env file and the
// process environment. CLI flags are applied last by cmd/stepchat.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvLogLevel          = "STEPCHAT_LOG_LEVEL"
	EnvLogFile           = "STEPCHAT_LOG_FILE"
	EnvCachePath         = "STEPCHAT_CACHE_PATH"
	EnvIdleTTL           = "STEPCHAT_IDLE_TTL"
	EnvMCPAddr           = "STEPCHAT_MCP_ADDR"
	EnvTelegramToken     = "TELEGRAM_BOT_TOKEN"
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
	EnvWhisperBin        = "STEPCHAT_WHISPER_BIN"
	EnvWhisperModel      = "STEPCHAT_WHISPER_MODEL"
)

// Errors returned by the transport prerequisite checks.
var (
	ErrMissingTelegramToken = errors.New("telegram bot token is not set")
	ErrMissingSpeechKeys    = errors.New("azure speech key and region are not set")
)

// Config is the full runtime configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Recipes  RecipesConfig  `yaml:"recipes"`
	Sessions SessionsConfig `yaml:"sessions"`
	Telegram TelegramConfig `yaml:"telegram"`
	MCP      MCPConfig      `yaml:"mcp"`
	Speech   SpeechConfig   `yaml:"speech"`
	Listen   ListenConfig   `yaml:"listen"`
}

// LogConfig controls the leveled logger.
type LogConfig struct {
	Level string `yaml:"level"` // off, normal, verbose
	File  string `yaml:"file"`  // "stderr" logs to the console; empty uses the command's default
}

// RecipesConfig controls recipe fetching and the on-disk cache.
type RecipesConfig struct {
	UserAgent    string `yaml:"user_agent"`
	FetchTimeout string `yaml:"fetch_timeout"`
	CachePath    string `yaml:"cache_path"` // empty disables the cache
	CacheMaxAge  string `yaml:"cache_max_age"`
}

// SessionsConfig controls idle session expiry.
type SessionsConfig struct {
	IdleTTL      string `yaml:"idle_ttl"`
	ReapInterval string `yaml:"reap_interval"`
}

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	PollTimeout int    `yaml:"poll_timeout"` // seconds
}

// MCPConfig controls the tool-call endpoint.
type MCPConfig struct {
	Addr string `yaml:"addr"`
}

// SpeechConfig controls spoken replies in the terminal chat.
type SpeechConfig struct {
	Enabled bool   `yaml:"enabled"`
	Key     string `yaml:"key"`
	Region  string `yaml:"region"`
	Voice   string `yaml:"voice"`
}

// ListenConfig controls voice input for the terminal chat (chat --voice).
type ListenConfig struct {
	WhisperBin string   `yaml:"whisper_bin"`
	Model      string   `yaml:"model"`    // GGML model file
	TempDir    string   `yaml:"temp_dir"` // recorded clips
	WakeWords  []string `yaml:"wake_words"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "normal",
			File:  "", // each command picks its own default
		},
		Recipes: RecipesConfig{
			UserAgent:    "StepChatBot/0.1",
			FetchTimeout: "15s",
			CachePath:    ".stepchat/recipes.db",
			CacheMaxAge:  "168h",
		},
		Sessions: SessionsConfig{
			IdleTTL:      "30m",
			ReapInterval: "1m",
		},
		Telegram: TelegramConfig{
			PollTimeout: 60,
		},
		MCP: MCPConfig{
			Addr: ":8080",
		},
		Speech: SpeechConfig{
			Enabled: true,
			Voice:   "en-US-AvaNeural",
		},
		Listen: ListenConfig{
			WhisperBin: "whisper-cli",
			Model:      "models/ggml-small.bin",
			TempDir:    ".stepchat/stt",
		},
	}
}

// Load builds the configuration. A missing YAML file or .env file is not an
// error; defaults apply. Process environment wins over the .env file.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = m
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("reading env file %s: %w", envFile, err)
		}
	}

	cfg.applyEnvOverrides(func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	})
	return cfg, nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Log.Level, EnvLogLevel)
	set(&c.Log.File, EnvLogFile)
	set(&c.Recipes.CachePath, EnvCachePath)
	set(&c.Sessions.IdleTTL, EnvIdleTTL)
	set(&c.MCP.Addr, EnvMCPAddr)
	set(&c.Telegram.Token, EnvTelegramToken)
	set(&c.Speech.Key, EnvAzureSpeechKey)
	set(&c.Speech.Region, EnvAzureSpeechRegion)
	set(&c.Listen.WhisperBin, EnvWhisperBin)
	set(&c.Listen.Model, EnvWhisperModel)
}

// Validate checks durations and the MCP listen address.
func (c *Config) Validate() error {
	durations := []struct {
		name  string
		value string
	}{
		{"recipes.fetch_timeout", c.Recipes.FetchTimeout},
		{"recipes.cache_max_age", c.Recipes.CacheMaxAge},
		{"sessions.idle_ttl", c.Sessions.IdleTTL},
		{"sessions.reap_interval", c.Sessions.ReapInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		if v < 0 {
			return fmt.Errorf("%s: must not be negative", d.name)
		}
	}
	if d, _ := time.ParseDuration(c.Sessions.ReapInterval); d == 0 {
		return errors.New("sessions.reap_interval: must be positive")
	}

	if c.Telegram.PollTimeout < 0 {
		return fmt.Errorf("telegram.poll_timeout: must not be negative")
	}

	_, port, err := net.SplitHostPort(c.MCP.Addr)
	if err != nil {
		return fmt.Errorf("mcp.addr: %w", err)
	}
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("mcp.addr: invalid port %q", port)
	}
	return nil
}

// RequireTelegram reports whether the Telegram transport can start.
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: set %s", ErrMissingTelegramToken, EnvTelegramToken)
	}
	return nil
}

// RequireSpeech reports whether spoken replies can be turned on.
func (c *Config) RequireSpeech() error {
	if c.Speech.Key == "" || c.Speech.Region == "" {
		return fmt.Errorf("%w: set %s and %s", ErrMissingSpeechKeys, EnvAzureSpeechKey, EnvAzureSpeechRegion)
	}
	return nil
}

// SpeechAvailable reports whether spoken replies are enabled and configured.
func (c *Config) SpeechAvailable() bool {
	return c.Speech.Enabled && c.RequireSpeech() == nil
}

// FetchTimeout returns the recipe fetch timeout. Call Validate first.
func (c *Config) FetchTimeout() time.Duration {
	return mustDuration(c.Recipes.FetchTimeout, 15*time.Second)
}

// CacheMaxAge returns how long cached recipes stay fresh.
func (c *Config) CacheMaxAge() time.Duration {
	return mustDuration(c.Recipes.CacheMaxAge, 0)
}

// IdleTTL returns how long a session may sit without a turn.
func (c *Config) IdleTTL() time.Duration {
	return mustDuration(c.Sessions.IdleTTL, 30*time.Minute)
}

// ReapInterval returns how often idle sessions are swept.
func (c *Config) ReapInterval() time.Duration {
	return mustDuration(c.Sessions.ReapInterval, time.Minute)
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
