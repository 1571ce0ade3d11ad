// Package config builds typed configuration from environment variables so
// main stays lean. Every knob has a named field and a documented default;
// unparseable values fall back to the default rather than failing startup.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Redis captures the shared counter store connection settings.
type Redis struct {
	Addr     string
	Password string
	DB       int
	// OpTimeout bounds every counter store call so a slow Redis cannot stall
	// the request pipeline.
	OpTimeout time.Duration
}

// Database captures durable storage (users, sessions) connection settings.
// An empty URL selects the in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Tokens captures credential codec settings.
type Tokens struct {
	SigningSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Lockout captures the account guard thresholds.
type Lockout struct {
	Threshold  int
	LockWindow time.Duration
}

// Sessions captures session lifecycle settings.
type Sessions struct {
	// MaxPerUser caps concurrent active sessions per account; zero disables
	// the cap. When exceeded the oldest session is deactivated.
	MaxPerUser      int
	CleanupInterval time.Duration
}

// Config is the root configuration for the service.
type Config struct {
	Server    Server
	Redis     Redis
	Database  Database
	Tokens    Tokens
	Lockout   Lockout
	Sessions  Sessions
	RateLimit RateLimit
	// BcryptCost is the password hashing work factor.
	BcryptCost int
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("AUTHGATE_ADDR", ":8080"),
			RequestTimeout:  envDuration("AUTHGATE_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: envDuration("AUTHGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Redis: Redis{
			Addr:      envString("AUTHGATE_REDIS_ADDR", "localhost:6379"),
			Password:  os.Getenv("AUTHGATE_REDIS_PASSWORD"),
			DB:        envInt("AUTHGATE_REDIS_DB", 0),
			OpTimeout: envDuration("AUTHGATE_REDIS_OP_TIMEOUT", 2*time.Second),
		},
		Database: Database{
			URL:             os.Getenv("AUTHGATE_DATABASE_URL"),
			MaxOpenConns:    envInt("AUTHGATE_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("AUTHGATE_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("AUTHGATE_DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Tokens: Tokens{
			// Default exists for development only and must be overridden in
			// production deployments.
			SigningSecret: envString("AUTHGATE_JWT_SECRET", "dev-secret-change-in-production"),
			Issuer:        envString("AUTHGATE_JWT_ISSUER", "authgate"),
			AccessTTL:     envDuration("AUTHGATE_ACCESS_TTL", 24*time.Hour),
			RefreshTTL:    envDuration("AUTHGATE_REFRESH_TTL", 7*24*time.Hour),
		},
		Lockout: Lockout{
			Threshold:  envInt("AUTHGATE_LOCKOUT_THRESHOLD", 5),
			LockWindow: envDuration("AUTHGATE_LOCKOUT_WINDOW", 30*time.Minute),
		},
		Sessions: Sessions{
			MaxPerUser:      envInt("AUTHGATE_MAX_SESSIONS_PER_USER", 0),
			CleanupInterval: envDuration("AUTHGATE_SESSION_CLEANUP_INTERVAL", time.Hour),
		},
		RateLimit:  RateLimitFromEnv(),
		BcryptCost: envInt("AUTHGATE_BCRYPT_COST", 12),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
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

func envDuration(key string, def time.Duration) time.Duration {
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
