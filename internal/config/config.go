// Package config loads process settings from the environment.
package config

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PabloPavan/swiftsnip/internal/session"
	"github.com/PabloPavan/swiftsnip/internal/theme"
)

const ServiceName = "swiftsnip-api"

type Config struct {
	Port        string
	DatabaseURL string
	// RedisURL is optional; empty selects the in-process stores.
	RedisURL       string
	MigrateOnStart bool
	TelemetryOn    bool
	// TrustProxy reads client addresses from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	SessionPrefix string
	SessionTTL    time.Duration
	Cookie        session.CookieConfig

	LoginRateLimit  int
	LoginRateWindow time.Duration
	RunRateLimit    int
	RunRateWindow   time.Duration

	CacheTTL     time.Duration
	ListCacheTTL time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	ThemeDefault theme.Theme

	RunnerEnabled  bool
	RunnerImage    string
	RunnerTimeout  time.Duration
	RunnerPoolSize int
	RunnerMemoryMB int
}

// Load reads the environment. DATABASE_URL and JWT_SECRET are required.
func Load() (Config, error) {
	cfg := Config{
		Port:           Env("APP_PORT", "8080"),
		DatabaseURL:    Env("DATABASE_URL", ""),
		RedisURL:       Env("REDIS_URL", ""),
		MigrateOnStart: ParseBoolEnv("MIGRATE_ON_START", false),
		TelemetryOn:    ParseBoolEnv("TELEMETRY_ENABLED", true),
		TrustProxy:     ParseBoolEnv("TRUST_PROXY_HEADERS", false),

		SessionPrefix: Env("SESSION_REDIS_PREFIX", "swiftsnip:session:"),
		SessionTTL:    ParseDurationEnv("SESSION_TTL", 7*24*time.Hour),
		Cookie: session.CookieConfig{
			Name:     Env("SESSION_COOKIE_NAME", session.DefaultCookieName),
			Path:     Env("SESSION_COOKIE_PATH", "/"),
			Domain:   Env("SESSION_COOKIE_DOMAIN", ""),
			Secure:   ParseBoolEnv("SESSION_COOKIE_SECURE", true),
			SameSite: ParseSameSiteEnv("SESSION_COOKIE_SAMESITE", http.SameSiteLaxMode),
		},

		LoginRateLimit:  ParseIntEnv("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow: ParseDurationEnv("LOGIN_RATE_WINDOW", time.Minute),
		RunRateLimit:    ParseIntEnv("RUN_RATE_LIMIT", 10),
		RunRateWindow:   ParseDurationEnv("RUN_RATE_WINDOW", time.Minute),

		CacheTTL:     ParseDurationEnv("SNIPPETS_CACHE_TTL", 2*time.Minute),
		ListCacheTTL: ParseDurationEnv("SNIPPETS_LIST_CACHE_TTL", 30*time.Second),

		JWTSecret: Env("JWT_SECRET", ""),
		JWTTTL:    ParseDurationEnv("JWT_TTL", 15*time.Minute),

		RunnerEnabled:  ParseBoolEnv("RUNNER_ENABLED", true),
		RunnerImage:    Env("RUNNER_IMAGE", "node:22-alpine"),
		RunnerTimeout:  ParseDurationEnv("RUNNER_TIMEOUT", 5*time.Second),
		RunnerPoolSize: ParseIntEnv("RUNNER_POOL_SIZE", 2),
		RunnerMemoryMB: ParseIntEnv("RUNNER_MEMORY_MB", 128),
	}

	th, err := theme.ParseTheme(Env("THEME_DEFAULT", string(theme.Light)))
	if err != nil {
		log.Printf("invalid THEME_DEFAULT, using %s", theme.Light)
		th = theme.Light
	}
	cfg.ThemeDefault = th

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return cfg, errors.New("missing env: " + strings.Join(missing, ", "))
	}
	return cfg, nil
}

func Env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func ParseDurationEnv(key string, def time.Duration) time.Duration {
	val := Env(key, "")
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("invalid %s: %q, using default", key, val)
		return def
	}
	return d
}

func ParseIntEnv(key string, def int) int {
	val := Env(key, "")
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("invalid %s: %q, using default", key, val)
		return def
	}
	return n
}

func ParseBoolEnv(key string, def bool) bool {
	val := Env(key, "")
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("invalid %s: %q, using default", key, val)
		return def
	}
	return b
}

func ParseSameSiteEnv(key string, def http.SameSite) http.SameSite {
	val := Env(key, "")
	if val == "" {
		return def
	}
	return session.ParseSameSite(val)
}
