// Package config loads runtime configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	liststr "votebooth/pkg/platform/strings"
)

// MinSigningKeyBytes is the shortest HMAC key accepted for stage credentials.
const MinSigningKeyBytes = 32

var (
	// ErrMissingSigningKey is returned when CREDENTIAL_SIGNING_KEY is unset.
	// There is no development fallback: a shared default key would let one
	// deployment forge credentials for another.
	ErrMissingSigningKey = errors.New("CREDENTIAL_SIGNING_KEY is required")
	// ErrWeakSigningKey is returned when the signing key is shorter than MinSigningKeyBytes.
	ErrWeakSigningKey = fmt.Errorf("CREDENTIAL_SIGNING_KEY must be at least %d bytes", MinSigningKeyBytes)
)

// Config is the full runtime configuration for the server.
type Config struct {
	Server     Server
	Credential CredentialConfig
	OTP        OTPConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Liveness   LivenessConfig
	Staff      StaffConfig
	Realtime   RealtimeConfig
	RateLimit  RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	RequestTimeout time.Duration
}

// CredentialConfig configures stage credential minting.
type CredentialConfig struct {
	SigningKey           string
	Issuer               string
	OTPVerifiedTTL       time.Duration
	VoteEligibleTTL      time.Duration
	DeviceBindingEnabled bool
}

// OTPConfig configures one-time code validity.
type OTPConfig struct {
	TTL time.Duration
}

// DatabaseConfig configures the Postgres pool. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures event publishing. Empty brokers disables Kafka.
type KafkaConfig struct {
	Brokers         string
	QueueTopic      string
	AuditTopic      string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
	// Partitions and ReplicationFactor apply when topics are created at startup.
	Partitions        int32
	ReplicationFactor int16
}

// Enabled reports whether brokers were configured.
func (k KafkaConfig) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

// LivenessConfig configures the remote face matcher.
// An empty URL selects the static matcher, which is only allowed outside production.
type LivenessConfig struct {
	URL              string
	Timeout          time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

// StaffConfig holds bcrypt hashes of the staff and admin bearer tokens.
type StaffConfig struct {
	StaffTokenHash string
	AdminTokenHash string
}

// RateLimitConfig bounds unauthenticated check-in requests per client IP.
// A non-positive limit disables limiting.
type RateLimitConfig struct {
	CheckInLimit  int
	CheckInWindow time.Duration
}

// RealtimeConfig configures the queue display channel.
type RealtimeConfig struct {
	AllowedOrigins []string
}

// IsProduction reports whether the server runs in the production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() (Config, error) {
	signingKey := os.Getenv("CREDENTIAL_SIGNING_KEY")
	if signingKey == "" {
		return Config{}, ErrMissingSigningKey
	}
	if len(signingKey) < MinSigningKeyBytes {
		return Config{}, ErrWeakSigningKey
	}

	cfg := Config{
		Server: Server{
			Addr:           envString("VOTEBOOTH_ADDR", ":8080"),
			Environment:    envString("ENVIRONMENT", "development"),
			LogLevel:       envString("LOG_LEVEL", "info"),
			RequestTimeout: envDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Credential: CredentialConfig{
			SigningKey:           signingKey,
			Issuer:               envString("CREDENTIAL_ISSUER", "votebooth"),
			OTPVerifiedTTL:       envDuration("OTP_VERIFIED_TTL", 10*time.Minute),
			VoteEligibleTTL:      envDuration("VOTE_ELIGIBLE_TTL", time.Hour),
			DeviceBindingEnabled: envBool("DEVICE_BINDING_ENABLED", false),
		},
		OTP: OTPConfig{
			TTL: envDuration("OTP_TTL", 5*time.Minute),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			QueueTopic:      envString("KAFKA_QUEUE_TOPIC", "votebooth.queue"),
			AuditTopic:      envString("KAFKA_AUDIT_TOPIC", "votebooth.audit"),
			Acks:            envString("KAFKA_ACKS", "all"),
			Retries:         envInt("KAFKA_RETRIES", 3),
			DeliveryTimeout: envDuration("KAFKA_DELIVERY_TIMEOUT", 10*time.Second),
			Partitions:        int32(envInt("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(envInt("KAFKA_REPLICATION_FACTOR", 1)),
		},
		Liveness: LivenessConfig{
			URL:              os.Getenv("LIVENESS_URL"),
			Timeout:          envDuration("LIVENESS_TIMEOUT", 10*time.Second),
			FailureThreshold: envInt("LIVENESS_FAILURE_THRESHOLD", 5),
			Cooldown:         envDuration("LIVENESS_COOLDOWN", 15*time.Second),
		},
		Staff: StaffConfig{
			StaffTokenHash: os.Getenv("STAFF_TOKEN_HASH"),
			AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		},
		Realtime: RealtimeConfig{
			AllowedOrigins: envList("WS_ALLOWED_ORIGINS"),
		},
		RateLimit: RateLimitConfig{
			CheckInLimit:  envInt("RATE_LIMIT_CHECKIN", 10),
			CheckInWindow: envDuration("RATE_LIMIT_CHECKIN_WINDOW", time.Minute),
		},
	}

	if cfg.IsProduction() && cfg.Liveness.URL == "" {
		return Config{}, errors.New("LIVENESS_URL is required in production")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string) []string {
	return liststr.SplitList(os.Getenv(key))
}
