// Package config loads process configuration from the environment, reading
// a .env file first when one is present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-grid/internal/core/gesture"
	"github.com/comitanigiacomo/kanso-grid/internal/core/viewport"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	devSecret = "kanso-dev-secret"
)

type Database struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN is the Postgres connection URL.
func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type Config struct {
	Port       string
	Storage    string
	DB         Database
	SQLitePath string
	Redis      cache.Config

	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	RateLimit  int
	RateWindow time.Duration

	Location *time.Location

	LogLevel string
	LogFile  string

	Tap              gesture.Config
	ViewportDebounce time.Duration
}

// UsesDevSecret reports whether JWT_SECRET was left unset.
func (c Config) UsesDevSecret() bool { return c.JWTSecret == devSecret }

// Load reads the environment. Files listed in envFiles are loaded first
// (missing ones are ignored); with none given, ./.env is tried.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
			}
		}
	}

	p := &parser{}
	cfg := Config{
		Port:    getEnv("PORT", "8080"),
		Storage: strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		DB: Database{
			Driver:   getEnv("DB_DRIVER", "pgx"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "kanso_user"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "kanso_db"),
		},
		SQLitePath: getEnv("SQLITE_PATH", "kanso.db"),
		Redis: cache.Config{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       p.int("REDIS_DB", 0),
		},
		JWTSecret:  getEnv("JWT_SECRET", devSecret),
		JWTIssuer:  getEnv("JWT_ISSUER", "kanso-grid"),
		TokenTTL:   p.duration("TOKEN_TTL", 24*time.Hour),
		RateLimit:  p.int("RATE_LIMIT", 100),
		RateWindow: p.duration("RATE_WINDOW", time.Minute),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", ""),
		Tap: gesture.Config{
			MovementThreshold: p.float("TAP_MOVE_THRESHOLD", gesture.DefaultMovementThreshold),
			DoubleTapWindow:   p.duration("TAP_DOUBLE_WINDOW", gesture.DefaultDoubleTapWindow),
		},
		ViewportDebounce: p.duration("VIEWPORT_DEBOUNCE", viewport.DefaultDebounce),
	}

	cfg.Location = time.Local
	if tz := getEnv("TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			p.fail("TIMEZONE", tz, err)
		} else {
			cfg.Location = loc
		}
	}

	switch cfg.Storage {
	case StorageMemory, StoragePostgres, StorageSQLite:
	default:
		p.fail("STORAGE_DRIVER", cfg.Storage, fmt.Errorf("want memory, postgres or sqlite"))
	}
	switch cfg.DB.Driver {
	case "pgx", "postgres":
	default:
		p.fail("DB_DRIVER", cfg.DB.Driver, fmt.Errorf("want pgx or postgres"))
	}

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
}

func (p *parser) int(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) float(key string, def float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return v
}
