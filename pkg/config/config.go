package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the cart-service reads from the environment.
type Config struct {
	Port        int
	RedisURL    string
	CatalogURL  string
	AuthURL     string
	FrontendURL string

	CartTTL       time.Duration
	EnrichTimeout time.Duration

	LogLevel string
}

func Load() Config {
	return Config{
		Port:          getEnvInt("PORT", 3003),
		RedisURL:      getEnv("REDIS_URL", ""),
		CatalogURL:    getEnv("CATALOG_SERVICE_URL", "http://catalog-service:3002"),
		AuthURL:       getEnv("AUTH_SERVICE_URL", "http://auth-service:3001"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:8080"),
		CartTTL:       getEnvDuration("CART_TTL", 7*24*time.Hour),
		EnrichTimeout: getEnvDuration("ENRICH_TIMEOUT", 3*time.Second),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
