// Package config provides environment configuration for the assistant front-end.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is used when no completion endpoint host is configured.
const DefaultAPIURL = "https://assistant-api.capitalize.app"

// Config holds all configuration for the application.
type Config struct {
	// Completion endpoint
	APIURL      string        `yaml:"api_url"`
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Provider keys
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`

	// Session
	CancelOnClear bool `yaml:"cancel_on_clear"`

	// Persistent store
	Store    string `yaml:"store"`
	StoreDir string `yaml:"store_dir"`

	// NATS settings
	NATSURL      string `yaml:"nats_url"`
	NATSCAFile   string `yaml:"nats_ca_file"`
	NATSCertFile string `yaml:"nats_cert_file"`
	NATSKeyFile  string `yaml:"nats_key_file"`
	NATSToken    string `yaml:"-"`
	NATSBucket   string `yaml:"nats_bucket"`

	// Bridge server
	ServerPort        string        `yaml:"port"`
	ServerReadTimeout time.Duration `yaml:"read_timeout"`
	JWTSecret         string        `yaml:"-"`
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Tracing
	TracingEndpoint string `yaml:"tracing_endpoint"`
	TracingEnabled  bool   `yaml:"tracing_enabled"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		APIURL:            DefaultAPIURL,
		Provider:          "endpoint",
		Store:             "file",
		StoreDir:          defaultStoreDir(),
		NATSURL:           "nats://localhost:4222",
		NATSBucket:        "assistant_session",
		ServerPort:        "8080",
		ServerReadTimeout: 30 * time.Second,
		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,
		LogLevel:          "info",
		TracingEndpoint:   "localhost:4318",
	}
}

// Load reads configuration from the optional YAML file named by
// ASSISTANT_CONFIG, then applies environment variables on top.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("ASSISTANT_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFile overlays values from a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Completion endpoint
	c.APIURL = getEnv("ASSISTANT_API_URL", c.APIURL)
	c.Provider = getEnv("ASSISTANT_PROVIDER", c.Provider)
	c.Model = getEnv("ASSISTANT_MODEL", c.Model)
	c.HTTPTimeout = getDurationEnv("ASSISTANT_HTTP_TIMEOUT", c.HTTPTimeout)

	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)

	c.CancelOnClear = getBoolEnv("ASSISTANT_CANCEL_ON_CLEAR", c.CancelOnClear)

	// Store
	c.Store = getEnv("ASSISTANT_STORE", c.Store)
	c.StoreDir = getEnv("ASSISTANT_STORE_DIR", c.StoreDir)

	// NATS
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.NATSCAFile = getEnv("NATS_CA_FILE", c.NATSCAFile)
	c.NATSCertFile = getEnv("NATS_CERT_FILE", c.NATSCertFile)
	c.NATSKeyFile = getEnv("NATS_KEY_FILE", c.NATSKeyFile)
	c.NATSToken = getEnv("NATS_TOKEN", c.NATSToken)
	c.NATSBucket = getEnv("NATS_KV_BUCKET", c.NATSBucket)

	// Bridge
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.ServerReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.ServerReadTimeout)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.RateLimitRequests = getIntEnv("RATE_LIMIT_REQUESTS", c.RateLimitRequests)
	c.RateLimitWindow = getDurationEnv("RATE_LIMIT_WINDOW", c.RateLimitWindow)
	c.AllowedOrigins = getListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)

	// Logging
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	// Tracing
	c.TracingEndpoint = getEnv("TRACING_ENDPOINT", c.TracingEndpoint)
	c.TracingEnabled = getBoolEnv("TRACING_ENABLED", c.TracingEnabled)
}

func defaultStoreDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + string(os.PathSeparator) + "capitalize-assistant"
	}
	return ".capitalize-assistant"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
