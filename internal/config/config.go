// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty until DB is wired.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis host:port used for OTP records and rate limiting.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the Redis AUTH password; empty for unauthenticated Redis.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the Redis logical database number.
	RedisDB int `mapstructure:"REDIS_DB"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "gymdesk-auth"); required when auth is enabled.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "gymdesk-api"); required when auth is enabled.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "24h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// WAStorePath is the SQLite path or DSN holding WhatsApp device credentials (whatsmeow sqlstore).
	WAStorePath string `mapstructure:"WA_STORE_PATH"`
	// WACredentialsPath is the file the session manager persists its credential blob to.
	WACredentialsPath string `mapstructure:"WA_CREDENTIALS_PATH"`
	// WACountryPrefix is prepended to bare 10-digit numbers when building a WhatsApp address (e.g. "91").
	WACountryPrefix string `mapstructure:"WA_COUNTRY_PREFIX"`
	// WAReconnectDelay is the fixed wait before reconnecting after a non-terminal disconnect (e.g. "3s").
	WAReconnectDelay string `mapstructure:"WA_RECONNECT_DELAY"`
	// WAMaxReconnects caps reconnect attempts per disconnect streak; 0 means unlimited.
	WAMaxReconnects int `mapstructure:"WA_MAX_RECONNECTS"`

	// OTPTTL is the validity window for phone-change OTP codes (e.g. "10m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// OTPReturnToClient when true enables dev OTP mode: pending codes can be read back
	// from the OTP store via GET /dev/otp, so local testing works without a live
	// WhatsApp session. Must not be true when Env is production (Load returns an error).
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// RateLimitRequests is the request cap per window per client on the auth and OTP endpoints.
	RateLimitRequests int `mapstructure:"RATE_LIMIT_REQUESTS"`
	// RateLimitWindow is the rate limit window (e.g. "10m").
	RateLimitWindow string `mapstructure:"RATE_LIMIT_WINDOW"`

	// ReminderEnabled turns the membership expiry reminder scheduler on.
	ReminderEnabled bool `mapstructure:"REMINDER_ENABLED"`
	// ReminderCheckInterval is how often the scheduler scans for expiring memberships (e.g. "1h").
	ReminderCheckInterval string `mapstructure:"REMINDER_CHECK_INTERVAL"`
	// ReminderDaysBefore is the default days-before-expiry window when an owner has no preference set.
	ReminderDaysBefore int `mapstructure:"REMINDER_DAYS_BEFORE"`

	// Telemetry (optional). When Kafka brokers are set, the HTTP server emits telemetry to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events (default gymdesk-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317); empty disables exporters.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ISSUER", "gymdesk-auth")
	v.SetDefault("JWT_AUDIENCE", "gymdesk-api")
	v.SetDefault("JWT_ACCESS_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("WA_STORE_PATH", "file:wa-store.db?_foreign_keys=on")
	v.SetDefault("WA_CREDENTIALS_PATH", "wa-credentials.json")
	v.SetDefault("WA_COUNTRY_PREFIX", "91")
	v.SetDefault("WA_RECONNECT_DELAY", "3s")
	v.SetDefault("WA_MAX_RECONNECTS", 0)
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("RATE_LIMIT_REQUESTS", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "10m")
	v.SetDefault("REMINDER_ENABLED", true)
	v.SetDefault("REMINDER_CHECK_INTERVAL", "1h")
	v.SetDefault("REMINDER_DAYS_BEFORE", 3)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "gymdesk-telemetry")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "gymdesk-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.RateLimitRequests <= 0 {
		return nil, errors.New("config: RATE_LIMIT_REQUESTS must be positive")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// OTPWindow parses OTPTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) OTPWindow() time.Duration {
	d, err := time.ParseDuration(c.OTPTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// ReconnectDelay parses WAReconnectDelay as a time.Duration. Returns 3s if unset or invalid.
func (c *Config) ReconnectDelay() time.Duration {
	d, err := time.ParseDuration(c.WAReconnectDelay)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// RateWindow parses RateLimitWindow as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) RateWindow() time.Duration {
	d, err := time.ParseDuration(c.RateLimitWindow)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// ReminderInterval parses ReminderCheckInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) ReminderInterval() time.Duration {
	d, err := time.ParseDuration(c.ReminderCheckInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
