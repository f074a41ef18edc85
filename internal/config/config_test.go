package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"ENV", "LOG_LEVEL", "DATA_PATH",
	"CATALOG_DB_PATH", "CATALOG_CSV_DIR", "CATALOG_WATCH", "CATALOG_SETTLE_DELAY",
	"SERVER_PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT", "CORS_ORIGINS",
	"AUTH_TOKEN_KEY",
	"REBRICKABLE_API_KEY", "REBRICKABLE_BASE_URL", "REBRICKABLE_ENABLED",
	"INVENTORY_CACHE_SIZE", "INVENTORY_CACHE_TTL",
}

// isolate unsets every variable Load reads and points it at a missing .env.
// Unset rather than empty: godotenv never overrides a variable that exists.
func isolate(t *testing.T) []string {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "") // restores the original value on cleanup
		require.NoError(t, os.Unsetenv(key))
	}
	return []string{"-env-file", filepath.Join(t.TempDir(), "missing.env"), "-data-path", t.TempDir()}
}

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Data:    DataConfig{BasePath: "/data"},
		Catalog: CatalogConfig{DBPath: "/data/catalog.db"},
		Server:  ServerConfig{Port: "8080"},
		Cache:   CacheConfig{InventorySize: 10, InventoryTTL: time.Minute},
	}
}

func TestLoad_Defaults(t *testing.T) {
	args := isolate(t)

	cfg, err := Load(args)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, filepath.Join(cfg.Data.BasePath, "catalog.db"), cfg.Catalog.DBPath)
	assert.Empty(t, cfg.Catalog.CSVDir)
	assert.False(t, cfg.Catalog.Watch)
	assert.Equal(t, 5*time.Second, cfg.Catalog.SettleDelay)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Nil(t, cfg.Auth.TokenKey)
	assert.False(t, cfg.Rebrickable.Enabled, "disabled without an API key")
	assert.Equal(t, "https://rebrickable.com", cfg.Rebrickable.BaseURL)
	assert.Equal(t, 512, cfg.Cache.InventorySize)
	assert.Equal(t, time.Hour, cfg.Cache.InventoryTTL)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	args := isolate(t)
	csvDir := t.TempDir()

	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CATALOG_CSV_DIR", csvDir)
	t.Setenv("CATALOG_WATCH", "true")
	t.Setenv("REBRICKABLE_API_KEY", "abc")
	t.Setenv("INVENTORY_CACHE_TTL", "10m")
	t.Setenv("CORS_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("AUTH_TOKEN_KEY", strings.Repeat("ab", 32))

	cfg, err := Load(args)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, csvDir, cfg.Catalog.CSVDir)
	assert.True(t, cfg.Catalog.Watch)
	assert.True(t, cfg.Rebrickable.Enabled, "enabled by default once a key is present")
	assert.Equal(t, "abc", cfg.Rebrickable.APIKey)
	assert.Equal(t, 10*time.Minute, cfg.Cache.InventoryTTL)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.CORSOrigins)
	assert.Len(t, cfg.Auth.TokenKey, 32)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	args := isolate(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(append(args, "-port", "9100"))
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logger.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	args := isolate(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"# local settings\nLOG_LEVEL=error\nINVENTORY_CACHE_SIZE=64\nSERVER_PORT=\"7000\"\n",
	), 0o600))

	// The real environment wins over the file.
	t.Setenv("SERVER_PORT", "7100")

	cfg, err := Load(append(args, "-env-file", envFile))
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logger.Level)
	assert.Equal(t, 64, cfg.Cache.InventorySize)
	assert.Equal(t, "7100", cfg.Server.Port)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"SERVER_READ_TIMEOUT": "soon"}},
		{"bad token key hex", map[string]string{"AUTH_TOKEN_KEY": "zz"}},
		{"short token key", map[string]string{"AUTH_TOKEN_KEY": "abcd"}},
		{"rebrickable enabled without key", map[string]string{"REBRICKABLE_ENABLED": "true"}},
		{"watch without dir", map[string]string{"CATALOG_WATCH": "1"}},
		{"bad environment", map[string]string{"ENV": "test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(args)
			assert.Error(t, err)
		})
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	args := isolate(t)
	_, err := Load(append(args, "-no-such-flag"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"valid", func(*Config) {}, true},
		{"staging", func(c *Config) { c.App.Environment = "staging" }, true},
		{"uppercase environment", func(c *Config) { c.App.Environment = "DEVELOPMENT" }, false},
		{"empty environment", func(c *Config) { c.App.Environment = "" }, false},
		{"uppercase level", func(c *Config) { c.Logger.Level = "DEBUG" }, true},
		{"bad level", func(c *Config) { c.Logger.Level = "verbose" }, false},
		{"empty data path", func(c *Config) { c.Data.BasePath = "" }, false},
		{"empty catalog path", func(c *Config) { c.Catalog.DBPath = "" }, false},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }, false},
		{"port not numeric", func(c *Config) { c.Server.Port = "http" }, false},
		{"zero cache size", func(c *Config) { c.Cache.InventorySize = 0 }, false},
		{"zero cache ttl", func(c *Config) { c.Cache.InventoryTTL = 0 }, false},
		{"token key 32 bytes", func(c *Config) { c.Auth.TokenKey = make([]byte, 32) }, true},
		{"token key 16 bytes", func(c *Config) { c.Auth.TokenKey = make([]byte, 16) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("~/bricks", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "bricks"), got)

	got, err = expandPath("/abs/../path", "")
	require.NoError(t, err)
	assert.Equal(t, "/path", got)

	got, err = expandPath("relative", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestDataConfig_Paths(t *testing.T) {
	d := DataConfig{BasePath: "/data"}
	assert.Equal(t, "/data/inventories", d.UserStorePath())
	assert.Equal(t, "/data/search", d.SearchPath())
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("BC_TEST_VALUE", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "BC_TEST_VALUE", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "BC_TEST_VALUE", "default"))
	assert.Equal(t, "default", getConfigValue("", "BC_TEST_UNSET_VALUE", "default"))
}
