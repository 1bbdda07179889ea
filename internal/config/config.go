// Package config collects environment configuration at process start.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the process needs, resolved once in main.
type Config struct {
	Addr        string
	DatabaseURL string

	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	BcryptCost    int
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration

	RateLimitWindow   time.Duration
	RateLimitRequests int

	CORSOrigins []string
	EnableCSRF  bool
	DevMode     bool
}

// Load reads configuration from the environment. Both JWT secrets are
// required and must differ; an access token must never verify against the
// refresh secret or vice versa.
func Load() (Config, error) {
	cfg := Config{
		Addr:              getEnv("MENU_API_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("MENU_API_PG_DSN"),
		JWTSecret:         os.Getenv("MENU_API_JWT_SECRET"),
		JWTRefreshSecret:  os.Getenv("MENU_API_JWT_REFRESH_SECRET"),
		AccessTokenTTL:    getDuration("MENU_API_ACCESS_TTL", 15*time.Minute),
		RefreshTokenTTL:   getDuration("MENU_API_REFRESH_TTL", 7*24*time.Hour),
		BcryptCost:        getInt("MENU_API_BCRYPT_COST", 12),
		SessionTTL:        getDuration("MENU_API_SESSION_TTL", 7*24*time.Hour),
		ResetTokenTTL:     getDuration("MENU_API_RESET_TTL", time.Hour),
		RateLimitWindow:   getDuration("MENU_API_RATE_WINDOW", 15*time.Minute),
		RateLimitRequests: getInt("MENU_API_RATE_MAX", 100),
		EnableCSRF:        os.Getenv("MENU_API_ENABLE_CSRF") == "true",
		DevMode:           getEnv("MENU_API_ENV", "development") != "production",
	}

	if origins := strings.TrimSpace(os.Getenv("MENU_API_CORS_ORIGINS")); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000"}
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, errors.New("MENU_API_JWT_SECRET and MENU_API_JWT_REFRESH_SECRET are required")
	}
	if cfg.JWTSecret == cfg.JWTRefreshSecret {
		return Config{}, errors.New("access and refresh token secrets must be distinct")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
