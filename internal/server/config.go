// Package server provides configuration helpers that define runtime
// defaults, validation, and rate-limiting parameters for the Cyber Chat
// service.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `toml:"burst"`
	RefillInterval time.Duration `toml:"refill_interval"`
}

// Config holds the chat server configuration settings.
type Config struct {
	Host           string          `toml:"host"`
	Port           int             `toml:"port"`
	MaxClients     int             `toml:"max_clients"`
	MaxMessageSize int             `toml:"max_message_size"`
	AdminAddr      string          `toml:"admin_addr"`
	AllowedOrigins []string        `toml:"allowed_origins"`
	RateLimit      RateLimitConfig `toml:"rate_limit"`
	PingInterval   time.Duration   `toml:"ping_interval"`
	IdleTimeout    time.Duration   `toml:"idle_timeout"`
	LogLevel       string          `toml:"log_level"`
	LogFile        string          `toml:"log_file"`
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           12345,
		MaxClients:     50,
		MaxMessageSize: 4096,
		AdminAddr:      ":8080",
		AllowedOrigins: []string{"http://localhost:8080"},
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		PingInterval: 5 * time.Second,
		IdleTimeout:  0, // liveness enforcement disabled unless configured
		LogLevel:     "info",
	}
}

// Sanitize replaces zero or nonsensical values with defaults and returns
// the receiver for chaining.
func (c *Config) Sanitize() *Config {
	def := defaultConfig()

	if c.Host == "" {
		c.Host = def.Host
	}
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = def.Port
	}
	if c.MaxClients <= 0 {
		c.MaxClients = def.MaxClients
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.AdminAddr == "" {
		c.AdminAddr = def.AdminAddr
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	return c
}

// ListenAddr returns the host:port the chat listener binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfigFromEnv creates a Config from environment variables, falling
// back to default values for anything unset.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()
	applyEnv(&cfg)
	cfg.Sanitize()
	return &cfg
}

// LoadConfigFile reads a TOML configuration file and applies environment
// overrides on top of it.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	applyEnv(&cfg)
	cfg.Sanitize()
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if host := os.Getenv("CHAT_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("CHAT_PORT"); port != "" {
		cfg.Port = parseIntValue(port, cfg.Port)
	}
	if max := os.Getenv("CHAT_MAX_CLIENTS"); max != "" {
		cfg.MaxClients = parseIntValue(max, cfg.MaxClients)
	}
	if size := os.Getenv("CHAT_MAX_MESSAGE_SIZE"); size != "" {
		cfg.MaxMessageSize = parseIntValue(size, cfg.MaxMessageSize)
	}
	if addr := os.Getenv("CHAT_ADMIN_ADDR"); addr != "" {
		cfg.AdminAddr = addr
	}
	if origins := os.Getenv("CHAT_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if burst := os.Getenv("CHAT_RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("CHAT_RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseDurationValue(interval, cfg.RateLimit.RefillInterval)
	}
	if interval := os.Getenv("CHAT_PING_INTERVAL"); interval != "" {
		cfg.PingInterval = parseDurationValue(interval, cfg.PingInterval)
	}
	if timeout := os.Getenv("CHAT_IDLE_TIMEOUT"); timeout != "" {
		cfg.IdleTimeout = parseDurationValue(timeout, cfg.IdleTimeout)
	}
	if level := os.Getenv("CHAT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if file := os.Getenv("CHAT_LOG_FILE"); file != "" {
		cfg.LogFile = file
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseDurationValue(value string, defaultValue time.Duration) time.Duration {
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
