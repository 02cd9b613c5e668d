// Package config loads process configuration from the environment. A .env
// file in the working directory is read first when present; real
// environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	reconconfig "tally/internal/reconciliation/config"
	dErrors "tally/pkg/domain-errors"
	pstrings "tally/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	AdminToken string
	LogLevel   string
	LogFormat  string
}

// DatabaseConfig selects the Postgres ledger. An empty URL keeps every store
// in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// RedisConfig enables distributed record locks and the shared merchant
// allow-list. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
}

// KafkaConfig enables event publishing. No brokers means events are only
// logged.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	ClientID    string
	Partitions  int32
	EventBuffer int
}

// RateLimitConfig throttles receipt and payment submissions per tenant.
// Zero disables the limit.
type RateLimitConfig struct {
	IngestPerWindow int
	Window          time.Duration
}

type Config struct {
	Server         Server
	Database       DatabaseConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	RateLimit      RateLimitConfig
	Reconciliation reconconfig.Config
	SweepEnabled   bool
}

// FromEnv builds the process config so main stays lean. Malformed values
// fail with CodeConfiguration.
func FromEnv() (Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	env := &reader{lookup: lookup}
	cfg := Config{
		Server: Server{
			Addr:       env.str("TALLY_ADDR", ":8080"),
			AdminToken: env.str("ADMIN_TOKEN", ""),
			LogLevel:   env.str("LOG_LEVEL", "info"),
			LogFormat:  env.str("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL:             env.str("DATABASE_URL", ""),
			MaxOpenConns:    env.int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.int("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnectTimeout:  env.duration("DB_CONNECT_TIMEOUT", 2*time.Minute),
		},
		Redis: RedisConfig{
			URL:          env.str("REDIS_URL", ""),
			PoolSize:     env.int("REDIS_POOL_SIZE", 20),
			MinIdleConns: env.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      env.duration("REDIS_LOCK_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     pstrings.SplitList(env.str("KAFKA_BROKERS", "")),
			Topic:       env.str("KAFKA_TOPIC", "reconciliation.events"),
			ClientID:    env.str("KAFKA_CLIENT_ID", "tally"),
			Partitions:  int32(env.int("KAFKA_PARTITIONS", 3)),
			EventBuffer: env.int("EVENT_BUFFER", 1024),
		},
		RateLimit: RateLimitConfig{
			IngestPerWindow: env.int("RATE_LIMIT_INGEST", 600),
			Window:          env.duration("RATE_LIMIT_WINDOW", time.Minute),
		},
		SweepEnabled: env.bool("SWEEP_ENABLED", true),
	}
	if env.err != nil {
		return Config{}, env.err
	}

	recon, err := reconconfig.FromLookup(lookup)
	if err != nil {
		return Config{}, err
	}
	cfg.Reconciliation = recon
	return cfg, nil
}

// reader keeps the first parse error so FromLookup reads as a flat list.
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) raw(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) str(key, def string) string {
	if v, ok := r.raw(key); ok {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v, ok := r.raw(key)
	if !ok || r.err != nil {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("%s must be an integer", key))
		return def
	}
	return n
}

func (r *reader) bool(key string, def bool) bool {
	v, ok := r.raw(key)
	if !ok || r.err != nil {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.err = dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("%s must be a boolean", key))
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.raw(key)
	if !ok || r.err != nil {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.err = dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("%s must be a duration such as 30s", key))
		return def
	}
	return d
}
