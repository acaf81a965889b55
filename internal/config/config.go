package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the process reads from the environment. It is
// loaded once in main and injected; packages never read env vars themselves.
type Config struct {
	Env         string
	Port        string
	MetricsAddr string

	DatabaseURL string
	JWTSecret   string
	AdminAPIKey string
	CORSOrigin  string

	// SignupGrant is the number of credits a fresh account starts with.
	SignupGrant int64

	// GenerateTimeout bounds a single call to the generation collaborator.
	GenerateTimeout time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:             getEnv("ENV", "dev"),
		Port:            getEnv("PORT", "8080"),
		MetricsAddr:     getEnv("METRICS_ADDR", ":9090"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AdminAPIKey:     strings.TrimSpace(os.Getenv("ADMIN_API_KEY")),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		SignupGrant:     getEnvInt64("SIGNUP_GRANT_CREDITS", 3),
		GenerateTimeout: getEnvDuration("GENERATE_TIMEOUT_SECONDS", 120*time.Second),
		RateLimitMax:    getEnvInt("RATE_LIMIT_GENERATE_MAX", 30),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_GENERATE_WINDOW_SECONDS", time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.SignupGrant < 0 {
		return nil, fmt.Errorf("SIGNUP_GRANT_CREDITS must not be negative")
	}

	return cfg, nil
}

func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "release")
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return fallback
}
