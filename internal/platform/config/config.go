package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	JWTSigningKey  string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// Providers configures the external evidence providers.
// Mode selects between real HTTP providers and deterministic fixtures.
type Providers struct {
	Mode            string // "live" or "fixture"
	InspectionURL   string
	RegistryURL     string
	ProviderTimeout time.Duration
}

// Policy holds decisioning configuration.
type Policy struct {
	AutoApproveLowRisk bool
}

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds Kafka producer settings for the activity broadcast.
type KafkaConfig struct {
	Brokers       string
	ActivityTopic string
	AuditTopic    string
}

// Config is the full service configuration assembled from the environment.
type Config struct {
	Server    Server
	Providers Providers
	Policy    Policy
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
}

// FromEnv builds the service config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           envOr("ACIP_ADDR", ":8080"),
			Environment:    envOr("ACIP_ENV", "development"),
			JWTSigningKey:  envOr("ACIP_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			RequestTimeout: envDuration("ACIP_REQUEST_TIMEOUT", 60*time.Second),
			MaxBodyBytes:   envInt64("ACIP_MAX_BODY_BYTES", 1<<20),
		},
		Providers: Providers{
			Mode:            envOr("ACIP_PROVIDER_MODE", "fixture"),
			InspectionURL:   os.Getenv("ACIP_INSPECTION_URL"),
			RegistryURL:     os.Getenv("ACIP_REGISTRY_URL"),
			ProviderTimeout: envDuration("ACIP_PROVIDER_TIMEOUT", 30*time.Second),
		},
		Policy: Policy{
			AutoApproveLowRisk: os.Getenv("ACIP_AUTO_APPROVE_LOW_RISK") == "true",
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("ACIP_POSTGRES_URL"),
			MaxOpenConns:    envInt("ACIP_POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("ACIP_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("ACIP_POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("ACIP_REDIS_URL"),
			PoolSize:     envInt("ACIP_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("ACIP_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("ACIP_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("ACIP_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("ACIP_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       os.Getenv("ACIP_KAFKA_BROKERS"),
			ActivityTopic: envOr("ACIP_ACTIVITY_TOPIC", "acip.activity"),
			AuditTopic:    envOr("ACIP_AUDIT_TOPIC", "acip.audit"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
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

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
