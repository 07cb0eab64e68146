package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for quiz-console
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Remote  RemoteConfig  `yaml:"remote"`
	Auth    AuthConfig    `yaml:"auth"`
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds the local console API configuration
type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// RemoteConfig points at the quiz administration API
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig holds where operator credentials come from. Static values win
// when both are configured.
type AuthConfig struct {
	Token string      `yaml:"token"`
	Email string      `yaml:"email"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis configuration for the token source
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TokenKey string `yaml:"token_key"`
	EmailKey string `yaml:"email_key"`
}

// JournalConfig holds the workflow journal database. An empty DSN keeps the
// journal in memory.
type JournalConfig struct {
	DSN          string        `yaml:"dsn"`
	ScanInterval time.Duration `yaml:"scan_interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Remote: RemoteConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Redis: RedisConfig{
				TokenKey: "quiz-console:token",
				EmailKey: "quiz-console:email",
			},
		},
		Journal: JournalConfig{
			ScanInterval: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads defaults, then the optional YAML file at path, then environment
// variables
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.APIKey = getEnv("SERVER_API_KEY", c.Server.APIKey)

	c.Remote.BaseURL = getEnv("REMOTE_BASE_URL", c.Remote.BaseURL)
	c.Remote.Timeout = getEnvAsDuration("REMOTE_TIMEOUT", c.Remote.Timeout)

	c.Auth.Token = getEnv("AUTH_TOKEN", c.Auth.Token)
	c.Auth.Email = getEnv("AUTH_EMAIL", c.Auth.Email)
	c.Auth.Redis.Address = getEnv("REDIS_ADDRESS", c.Auth.Redis.Address)
	c.Auth.Redis.Password = getEnv("REDIS_PASSWORD", c.Auth.Redis.Password)
	c.Auth.Redis.DB = getEnvAsInt("REDIS_DB", c.Auth.Redis.DB)
	c.Auth.Redis.TokenKey = getEnv("REDIS_TOKEN_KEY", c.Auth.Redis.TokenKey)
	c.Auth.Redis.EmailKey = getEnv("REDIS_EMAIL_KEY", c.Auth.Redis.EmailKey)

	c.Journal.DSN = getEnv("JOURNAL_DSN", c.Journal.DSN)
	c.Journal.ScanInterval = getEnvAsDuration("JOURNAL_SCAN_INTERVAL", c.Journal.ScanInterval)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote base URL is required")
	}
	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid remote base URL: %q", c.Remote.BaseURL)
	}

	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote timeout must be positive")
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Log.Format)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
