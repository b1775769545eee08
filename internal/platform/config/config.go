// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	MetricsAddr     string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	JWT      JWT
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka

	// SlugMaxAttempts bounds slug disambiguation retries at publish time.
	SlugMaxAttempts int
	// PublishRetries bounds transparent publish-conflict retries at the
	// HTTP boundary before the conflict surfaces to the caller.
	PublishRetries int
}

// JWT configures access token signing and validation.
type JWT struct {
	SigningKey string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
}

// Postgres configures the primary store. An empty URL selects the in-memory
// stores, which is the development default.
type Postgres struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Redis configures the live-version cache. An empty URL disables it.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit event sink. Empty brokers disable it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:            envString("PROFREG_ADDR", ":8080"),
		MetricsAddr:     envString("PROFREG_METRICS_ADDR", ":9090"),
		RequestTimeout:  envDuration("PROFREG_REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: envDuration("PROFREG_SHUTDOWN_TIMEOUT", 10*time.Second),
		JWT: JWT{
			// Development default; override in production.
			SigningKey: envString("PROFREG_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envString("PROFREG_JWT_ISSUER", "profreg"),
			Audience:   envString("PROFREG_JWT_AUDIENCE", "profreg-admin"),
			AccessTTL:  envDuration("PROFREG_JWT_ACCESS_TTL", time.Hour),
		},
		Postgres: Postgres{
			URL:             os.Getenv("PROFREG_POSTGRES_URL"),
			MaxOpenConns:    envInt("PROFREG_POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("PROFREG_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("PROFREG_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("PROFREG_REDIS_URL"),
			PoolSize:     envInt("PROFREG_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("PROFREG_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("PROFREG_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("PROFREG_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("PROFREG_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: envList("PROFREG_KAFKA_BROKERS"),
			Topic:   envString("PROFREG_KAFKA_AUDIT_TOPIC", "profreg.audit"),
		},
		SlugMaxAttempts: envInt("PROFREG_SLUG_MAX_ATTEMPTS", 100),
		PublishRetries:  envInt("PROFREG_PUBLISH_RETRIES", 3),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
