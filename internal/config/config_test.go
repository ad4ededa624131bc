package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "CONFIG_FILE", "SETTINGS_CACHE_TTL_SECONDS", "ACCESS_TOKEN_TTL_MINUTES", "STORE_TIMEZONE", "MIGRATE_ON_START"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, time.Minute, cfg.SettingsCacheTTL())
	assert.Equal(t, 8*time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, "America/Mexico_City", cfg.StoreTimezone)
	assert.False(t, cfg.MigrateOnStart)
}

func TestLoadFallsBackOnInvalidDurations(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SETTINGS_CACHE_TTL_SECONDS", "0")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")

	cfg := Load()
	assert.Equal(t, 60, cfg.SettingsCacheTTLSeconds)
	assert.Equal(t, 480, cfg.AccessTokenTTLMinutes)
}

func TestLoadReadsConfigFileAndEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cheikys.yaml")
	content := "PORT: \"9090\"\nREDIS_ADDR: \"redis:6379\"\nSTORE_TIMEZONE: \"America/Tijuana\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("STORE_TIMEZONE", "")

	cfg := Load()
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "America/Tijuana", cfg.StoreTimezone)
}

func TestLocation(t *testing.T) {
	loc, err := Config{StoreTimezone: "America/Mexico_City"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Mexico_City", loc.String())

	_, err = Config{StoreTimezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)

	loc, err = Config{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
