package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sparkpro/desk/internal/apiclient"
	"sparkpro/desk/internal/cache"
	"sparkpro/desk/internal/catalog"
	"sparkpro/desk/internal/config"
	"sparkpro/desk/internal/httpapi"
	"sparkpro/desk/internal/service"
	"sparkpro/desk/internal/session"
	"sparkpro/desk/internal/store"
	"sparkpro/desk/internal/store/memory"
	pgstore "sparkpro/desk/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.Migrate(); err != nil {
			logger.Fatal("ledger migration failed", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("ledger: postgres")
	} else {
		repo = memory.New()
		logger.Info("ledger: in-memory")
	}

	var catalogCache cache.CatalogCache = cache.NoopCatalogCache{}
	var revoked cache.RevocationList = cache.NewMemoryRevocationList()
	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, using in-process cache", zap.Error(err))
			_ = client.Close()
		} else {
			if cfg.CatalogTTLSeconds > 0 {
				catalogCache = cache.NewRedisCatalogCache(client, cfg.CatalogTTL())
			}
			revoked = cache.NewRedisRevocationList(client)
			closers = append(closers, client.Close)
			logger.Info("cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		logger.Info("cache: noop")
	}

	remote := apiclient.New(cfg.APIBaseURL, cfg.APITimeout())
	remote.SetRateLimit(cfg.APIRateLimit, int(cfg.APIRateLimit)+1)
	fetcher := catalog.NewFetcher(remote, catalogCache, logger.Named("catalog"))
	svc := service.New(remote, fetcher, repo, logger.Named("service"))
	sessions := session.NewManager(cfg.TokenSecret, revoked, remote)
	api := httpapi.New(svc, sessions, cfg.AllowedOrigin, logger.Named("httpapi"))

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.APITimeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("billing desk listening", zap.String("addr", cfg.Address()), zap.String("api", cfg.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func validateConfig(cfg config.Config) error {
	if cfg.APIBaseURL == "" {
		return errors.New("API_BASE_URL must be set")
	}
	parsed, err := url.Parse(cfg.APIBaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", cfg.APIBaseURL)
	}
	if len(cfg.TokenSecret) < 32 {
		return errors.New("TOKEN_SECRET must be set and at least 32 characters")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(parsed)
	return zc.Build()
}
