package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	APIBaseURL        string
	APITimeoutSeconds int
	APIRateLimit      float64
	TokenSecret       string
	AllowedOrigin     string
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	CatalogTTLSeconds int
	LogLevel          string
}

// Load reads the process environment, after merging a .env file from the
// working directory when one exists. Variables already set win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	timeout, err := strconv.Atoi(getEnv("API_TIMEOUT_SECONDS", "15"))
	if err != nil || timeout < 1 {
		timeout = 15
	}
	rateLimit, err := strconv.ParseFloat(getEnv("API_RATE_LIMIT", "0"), 64)
	if err != nil || rateLimit < 0 {
		rateLimit = 0
	}
	catalogTTL, err := strconv.Atoi(getEnv("CATALOG_TTL_SECONDS", "15"))
	if err != nil || catalogTTL < 0 {
		catalogTTL = 15
	}

	cfg := Config{
		Port:              getEnv("PORT", "8090"),
		APIBaseURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("API_BASE_URL")), "/"),
		APITimeoutSeconds: timeout,
		APIRateLimit:      rateLimit,
		TokenSecret:       strings.TrimSpace(os.Getenv("TOKEN_SECRET")),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		CatalogTTLSeconds: catalogTTL,
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

func (c Config) CatalogTTL() time.Duration {
	return time.Duration(c.CatalogTTLSeconds) * time.Second
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
