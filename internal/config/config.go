// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"workspacegen/internal/ai"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// defaultDBPassword is rejected in production.
const defaultDBPassword = "changeme"

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// Persistence
	StorageBackend string // "file" or "postgres"
	DataDir        string // templates.json and mcp-servers.json live here

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache). Empty host disables the preview cache.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// AI providers
	AIProvider string
	Providers  map[string]ai.ProviderConfig

	// Document service
	NotionToken   string
	NotionBaseURL string
	NotionVersion string

	// S3-compatible object storage for published exports
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	ThemePresetsFile  string
	MaxToolIterations int
	GenerateRateLimit int // requests per minute per client IP
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. A .env file in the working directory
// is loaded first when present; real environment variables win over it.
// Returns an error if critical values are invalid or missing in production.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		StorageBackend: strings.ToLower(envOrDefault("STORAGE_BACKEND", BackendFile)),
		DataDir:        envOrDefault("DATA_DIR", "./data"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "workspacegen"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", defaultDBPassword),
		DBName:     envOrDefault("POSTGRES_DB", "workspacegen"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		AIProvider: strings.ToLower(os.Getenv("AI_PROVIDER")),
		Providers:  make(map[string]ai.ProviderConfig),

		NotionToken:   os.Getenv("NOTION_TOKEN"),
		NotionBaseURL: os.Getenv("NOTION_BASE_URL"),
		NotionVersion: os.Getenv("NOTION_VERSION"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		ThemePresetsFile: os.Getenv("THEME_PRESETS_FILE"),
	}

	for _, name := range []string{"openai", "gemini", "claude", "mistral"} {
		prefix := strings.ToUpper(name) + "_"
		pc := ai.ProviderConfig{
			APIKey:  os.Getenv(prefix + "API_KEY"),
			Model:   envOrDefault(prefix+"MODEL", defaultModels[name]),
			BaseURL: os.Getenv(prefix + "BASE_URL"),
		}
		if pc.APIKey != "" {
			cfg.Providers[name] = pc
		}
	}

	var err error
	if cfg.MaxToolIterations, err = intOrDefault("MAX_TOOL_ITERATIONS", 3); err != nil {
		return nil, err
	}
	if cfg.GenerateRateLimit, err = intOrDefault("GENERATE_RATE_LIMIT", 20); err != nil {
		return nil, err
	}

	switch cfg.StorageBackend {
	case BackendFile, BackendPostgres:
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendFile, BackendPostgres, cfg.StorageBackend)
	}
	if cfg.AIProvider != "" {
		if _, ok := defaultModels[cfg.AIProvider]; !ok {
			return nil, fmt.Errorf("AI_PROVIDER %q is not supported", cfg.AIProvider)
		}
	}

	if cfg.Env == "production" && cfg.StorageBackend == BackendPostgres {
		if cfg.DBPassword == defaultDBPassword {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// defaultModels names the model used when <PROVIDER>_MODEL is unset.
var defaultModels = map[string]string{
	"openai":  "gpt-4o-mini",
	"gemini":  "gemini-2.0-flash",
	"claude":  "claude-sonnet-4-20250514",
	"mistral": "mistral-small-latest",
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// CacheEnabled reports whether a Valkey host is configured.
func (c *Config) CacheEnabled() bool {
	return c.ValkeyHost != ""
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// intOrDefault reads a positive integer variable.
func intOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
