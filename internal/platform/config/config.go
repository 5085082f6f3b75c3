package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration for the oracle service.
type Server struct {
	Addr string

	// Queue/scheduler
	Workers    int
	QueueDepth int

	// External dependency budgets. The provider is slow by nature; the
	// ledger gets an independent, shorter budget so anchoring can never
	// starve the worker pool.
	ProviderTimeout time.Duration
	LedgerTimeout   time.Duration

	// Submission rate guard
	RateWindow time.Duration
	RateMax    int

	// Backends. Empty values select the in-process implementations.
	PostgresDSN  string
	Redis        RedisConfig
	KafkaBrokers []string
	KafkaTopic   string

	// External collaborators. Empty URLs select the simulated ones.
	ProviderURL string
	LedgerURL   string

	// HS256 key used to authenticate external verification callbacks.
	SignalSigningKey string

	// Static token gating the operator override endpoint. Empty disables
	// the endpoint.
	AdminToken string
}

// RedisConfig holds connection settings for the optional Redis rate window.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:             envString("ORACLE_ADDR", ":8080"),
		Workers:          envInt("ORACLE_WORKERS", 4),
		QueueDepth:       envInt("ORACLE_QUEUE_DEPTH", 1024),
		ProviderTimeout:  envDuration("ORACLE_PROVIDER_TIMEOUT", 30*time.Second),
		LedgerTimeout:    envDuration("ORACLE_LEDGER_TIMEOUT", 5*time.Second),
		RateWindow:       envDuration("ORACLE_RATE_WINDOW", time.Hour),
		RateMax:          envInt("ORACLE_RATE_MAX", 5),
		PostgresDSN:      os.Getenv("ORACLE_POSTGRES_DSN"),
		KafkaTopic:       envString("ORACLE_KAFKA_TOPIC", "verivote.lifecycle"),
		ProviderURL:      os.Getenv("ORACLE_PROVIDER_URL"),
		LedgerURL:        os.Getenv("ORACLE_LEDGER_URL"),
		SignalSigningKey: os.Getenv("ORACLE_SIGNAL_SIGNING_KEY"),
		AdminToken:       os.Getenv("ORACLE_ADMIN_TOKEN"),
		Redis: RedisConfig{
			URL:          os.Getenv("ORACLE_REDIS_URL"),
			PoolSize:     envInt("ORACLE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("ORACLE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("ORACLE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("ORACLE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("ORACLE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if brokers := os.Getenv("ORACLE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
