// Package config provides application configuration management with support for
// command-line flags, environment variables and .env files.
package config

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Data        DataConfig
	Catalog     CatalogConfig
	Server      ServerConfig
	Auth        AuthConfig
	Rebrickable RebrickableConfig
	Cache       CacheConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds the location of mutable service data.
type DataConfig struct {
	// BasePath holds the user store, search index and auth key (default: ~/BrickComplete)
	BasePath string
}

// UserStorePath is the Badger directory for user inventories.
func (d DataConfig) UserStorePath() string { return filepath.Join(d.BasePath, "inventories") }

// SearchPath is the Bleve index directory.
func (d DataConfig) SearchPath() string { return filepath.Join(d.BasePath, "search") }

// CatalogConfig holds reference catalog configuration.
type CatalogConfig struct {
	DBPath      string        // SQLite file (default: {data}/catalog.db)
	CSVDir      string        // Rebrickable CSV dump directory, optional
	Watch       bool          // Re-import when files in CSVDir change (default: false)
	SettleDelay time.Duration // Quiet period before a changed dump is imported (default: 5s)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 60s, upstream lookups can be slow)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed CORS origins (default: *)

	RateLimitPerMinute int // API requests per client IP per minute, 0 disables (default: 300)
	RateLimitBurst     int // Requests allowed above the steady rate (default: 60)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// TokenKey is the PASETO v4 symmetric key (32 bytes). Nil means
	// auth.LoadOrGenerateKey provides one from the data directory.
	TokenKey []byte
}

// RebrickableConfig holds the upstream inventory source configuration.
type RebrickableConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
}

// CacheConfig holds the resolved-inventory cache configuration.
type CacheConfig struct {
	InventorySize int
	InventoryTTL  time.Duration
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds configuration from args with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("brickcomplete", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for service data")

	catalogDB := fs.String("catalog-db", "", "Path to the catalog SQLite database")
	catalogCSV := fs.String("catalog-csv-dir", "", "Directory of Rebrickable CSV dumps")
	catalogWatch := fs.String("catalog-watch", "", "Re-import CSV dumps when they change")
	catalogSettle := fs.String("catalog-settle-delay", "", "Quiet period before importing a changed dump")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins")
	rateLimit := fs.String("rate-limit", "", "API requests per client IP per minute, 0 disables (default: 300)")

	rebrickableKey := fs.String("rebrickable-api-key", "", "Rebrickable API key")
	rebrickableEnabled := fs.String("rebrickable-enabled", "", "Use Rebrickable for sets missing from the catalog")

	cacheSize := fs.String("inventory-cache-size", "", "Resolved inventories kept in memory (default: 512)")
	cacheTTL := fs.String("inventory-cache-ttl", "", "Lifetime of a cached inventory (default: 1h)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine; values already in the environment win.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", *envFile, err)
	}

	apiKey := getConfigValue(*rebrickableKey, "REBRICKABLE_API_KEY", "")

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Catalog: CatalogConfig{
			DBPath: getConfigValue(*catalogDB, "CATALOG_DB_PATH", ""),
			CSVDir: getConfigValue(*catalogCSV, "CATALOG_CSV_DIR", ""),
			Watch:  getBoolConfigValue(*catalogWatch, "CATALOG_WATCH", false),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),

			RateLimitPerMinute: getIntConfigValue(*rateLimit, "RATE_LIMIT_PER_MINUTE", 300),
			RateLimitBurst:     getIntConfigValue("", "RATE_LIMIT_BURST", 60),
		},
		Rebrickable: RebrickableConfig{
			APIKey:  apiKey,
			BaseURL: getConfigValue("", "REBRICKABLE_BASE_URL", "https://rebrickable.com"),
			Enabled: getBoolConfigValue(*rebrickableEnabled, "REBRICKABLE_ENABLED", apiKey != ""),
		},
		Cache: CacheConfig{
			InventorySize: getIntConfigValue(*cacheSize, "INVENTORY_CACHE_SIZE", 512),
		},
	}

	durations := []struct {
		dest  *time.Duration
		flag  string
		env   string
		deflt string
	}{
		{&cfg.Catalog.SettleDelay, *catalogSettle, "CATALOG_SETTLE_DELAY", "5s"},
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "60s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Cache.InventoryTTL, *cacheTTL, "INVENTORY_CACHE_TTL", "1h"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.env, d.deflt)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.env, raw, err)
		}
		*d.dest = parsed
	}

	if raw := os.Getenv("AUTH_TOKEN_KEY"); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTH_TOKEN_KEY: %w", err)
		}
		cfg.Auth.TokenKey = key
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Catalog.DBPath == "" {
		return errors.New("catalog database path cannot be empty after expansion")
	}
	if c.Catalog.Watch && c.Catalog.CSVDir == "" {
		return errors.New("CATALOG_WATCH requires CATALOG_CSV_DIR")
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}

	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %d", c.Server.RateLimitPerMinute)
	}

	if c.Auth.TokenKey != nil && len(c.Auth.TokenKey) != 32 {
		return fmt.Errorf("AUTH_TOKEN_KEY must be 32 bytes, got %d", len(c.Auth.TokenKey))
	}

	if c.Rebrickable.Enabled && c.Rebrickable.APIKey == "" {
		return errors.New("REBRICKABLE_API_KEY is required when Rebrickable is enabled")
	}

	if c.Cache.InventorySize < 1 {
		return fmt.Errorf("inventory cache size must be positive, got %d", c.Cache.InventorySize)
	}
	if c.Cache.InventoryTTL <= 0 {
		return fmt.Errorf("inventory cache TTL must be positive, got %s", c.Cache.InventoryTTL)
	}

	return nil
}

// expandPaths makes configured paths absolute and fills path defaults.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.Data.BasePath, err = expandPath(c.Data.BasePath, filepath.Join(homeDir, "BrickComplete")); err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	if c.Catalog.DBPath, err = expandPath(c.Catalog.DBPath, filepath.Join(c.Data.BasePath, "catalog.db")); err != nil {
		return fmt.Errorf("invalid catalog database path: %w", err)
	}
	if c.Catalog.CSVDir, err = expandPath(c.Catalog.CSVDir, ""); err != nil {
		return fmt.Errorf("invalid catalog CSV directory: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envKey != "" {
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
