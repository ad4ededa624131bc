package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                    string
	AllowedOrigin           string
	DatabaseURL             string
	MigrateOnStart          bool
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	SettingsCacheTTLSeconds int
	AuthSecret              string
	AccessTokenTTLMinutes   int
	StoreTimezone           string
}

// Load reads the configuration from the environment, optionally layered over
// the file named by CONFIG_FILE. Environment variables win over the file.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATE_ON_START", false)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SETTINGS_CACHE_TTL_SECONDS", 60)
	v.SetDefault("AUTH_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("STORE_TIMEZONE", "America/Mexico_City")

	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("[config] WARN: could not read %s, using environment only: %v", file, err)
		}
	}

	cacheTTL := v.GetInt("SETTINGS_CACHE_TTL_SECONDS")
	if cacheTTL < 1 {
		cacheTTL = 60
	}
	tokenTTL := v.GetInt("ACCESS_TOKEN_TTL_MINUTES")
	if tokenTTL < 1 {
		tokenTTL = 480
	}

	return Config{
		Port:                    v.GetString("PORT"),
		AllowedOrigin:           v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:             strings.TrimSpace(v.GetString("DATABASE_URL")),
		MigrateOnStart:          v.GetBool("MIGRATE_ON_START"),
		RedisAddr:               strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:           v.GetString("REDIS_PASSWORD"),
		RedisDB:                 v.GetInt("REDIS_DB"),
		SettingsCacheTTLSeconds: cacheTTL,
		AuthSecret:              strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes:   tokenTTL,
		StoreTimezone:           strings.TrimSpace(v.GetString("STORE_TIMEZONE")),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) SettingsCacheTTL() time.Duration {
	return time.Duration(c.SettingsCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// Location resolves StoreTimezone. Day boundaries for cuts and reports use it.
func (c Config) Location() (*time.Location, error) {
	if c.StoreTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.StoreTimezone)
}
