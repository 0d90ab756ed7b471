// Package config loads process configuration from the environment. A .env
// file in the working directory is read first when present; real environment
// variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Auth configures bearer-token validation and the reviewer surface.
type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	ReviewerToken string
}

// DatabaseConfig selects Postgres stores when URL is set.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig selects the Redis evaluation cache and session store when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the audit fan-out when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	Partitions int32
}

// Verification tunes evaluation caching and the stale refresher.
type Verification struct {
	CacheTTL         time.Duration
	RefresherSpec    string
	RefresherEnabled bool
	AuditBuffer      int
	AuditHashKey     string
}

// Roles configures role sessions.
type Roles struct {
	SessionTTL time.Duration
}

type Config struct {
	Server       Server
	Auth         Auth
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Verification Verification
	Roles        Roles
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var errs []string
	dur := func(key string, def time.Duration) time.Duration {
		v, err := durationEnv(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	num := func(key string, def int) int {
		v, err := intEnv(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg := Config{
		Server: Server{
			Addr:            stringEnv("VERIGATE_ADDR", ":8080"),
			WriteTimeout:    dur("HTTP_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: dur("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Auth: Auth{
			JWTSigningKey: stringEnv("JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:     stringEnv("JWT_ISSUER", "verigate"),
			JWTAudience:   stringEnv("JWT_AUDIENCE", "verigate-api"),
			ReviewerToken: os.Getenv("REVIEWER_TOKEN"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    num("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    num("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: dur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     num("REDIS_POOL_SIZE", 10),
			MinIdleConns: num("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  dur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  dur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: dur("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    listEnv("KAFKA_BROKERS"),
			AuditTopic: stringEnv("KAFKA_AUDIT_TOPIC", "verigate.audit"),
			Partitions: int32(num("KAFKA_AUDIT_PARTITIONS", 3)),
		},
		Verification: Verification{
			CacheTTL:         dur("EVALUATION_CACHE_TTL", 24*time.Hour),
			RefresherSpec:    stringEnv("STALE_REFRESH_SCHEDULE", "@every 1m"),
			RefresherEnabled: stringEnv("STALE_REFRESH_ENABLED", "true") == "true",
			AuditBuffer:      num("AUDIT_BUFFER", 1024),
			AuditHashKey:     stringEnv("AUDIT_HASH_KEY", "dev-audit-hash-key"),
		},
		Roles: Roles{
			SessionTTL: dur("ROLE_SESSION_TTL", 24*time.Hour),
		},
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// UsesDevSigningKey reports whether the JWT key was left at its development default.
func (c Config) UsesDevSigningKey() bool {
	return c.Auth.JWTSigningKey == devSigningKey
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func listEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
