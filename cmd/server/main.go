package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Bodin4747/CheikysAdmin/internal/cache"
	"github.com/Bodin4747/CheikysAdmin/internal/config"
	"github.com/Bodin4747/CheikysAdmin/internal/httpapi"
	"github.com/Bodin4747/CheikysAdmin/internal/metrics"
	"github.com/Bodin4747/CheikysAdmin/internal/service"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
	"github.com/Bodin4747/CheikysAdmin/internal/store/memory"
	pgstore "github.com/Bodin4747/CheikysAdmin/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	loc, err := validateSecurityConfig(cfg)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		if cfg.MigrateOnStart {
			if err := pg.Migrate(ctx); err != nil {
				log.Fatalf("schema migration failed: %v", err)
			}
			log.Println("schema: migrated")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	settingsCache := cache.SettingsCache(cache.NoopSettingsCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSettingsCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			settingsCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	svc := service.New(repo, service.Options{
		Location:      loc,
		SettingsCache: settingsCache,
		SettingsTTL:   cfg.SettingsCacheTTL(),
		Metrics:       m,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin).WithMetrics(m, registry)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("back office listening on %s (timezone %s)", cfg.Address(), loc)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// validateSecurityConfig refuses to start with a weak signing secret or an
// unknown timezone, and returns the resolved store location.
func validateSecurityConfig(cfg config.Config) (*time.Location, error) {
	if len(cfg.AuthSecret) < 32 {
		return nil, fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("STORE_TIMEZONE %q is not a known timezone: %w", cfg.StoreTimezone, err)
	}
	return loc, nil
}
