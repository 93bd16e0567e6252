package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Ticket     TicketConfig
	Guard      GuardConfig
	Classifier ClassifierConfig
	Mailer     MailerConfig
	Ack        AckConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	WebhookSecret         string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TicketConfig controls ticket number formatting.
type TicketConfig struct {
	Prefix string
}

// GuardConfig controls the inbound idempotency guard.
type GuardConfig struct {
	ClaimTTLMinutes   int
	CompletedTTLHours int
	SweepIntervalSpec string
}

// ClassifierConfig points at the external classification capability.
type ClassifierConfig struct {
	Endpoint       string
	APIKey         string
	TimeoutSeconds int
}

// MailerConfig holds outbound SMTP values.
type MailerConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	UseTLS   bool
}

// AckConfig controls acknowledgement dispatch retries.
type AckConfig struct {
	MaxAttempts        int
	BackoffStepSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "mailroom"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			WebhookSecret:         os.Getenv("WEBHOOK_SHARED_SECRET"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Ticket: TicketConfig{
			Prefix: getEnv("TICKET_PREFIX", "HR"),
		},
		Guard: GuardConfig{
			ClaimTTLMinutes:   getEnvAsInt("GUARD_CLAIM_TTL_MINUTES", 10),
			CompletedTTLHours: getEnvAsInt("GUARD_COMPLETED_TTL_HOURS", 48),
			SweepIntervalSpec: getEnv("GUARD_SWEEP_CRON", "@every 1m"),
		},
		Classifier: ClassifierConfig{
			Endpoint:       os.Getenv("CLASSIFIER_ENDPOINT"),
			APIKey:         os.Getenv("CLASSIFIER_API_KEY"),
			TimeoutSeconds: getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 20),
		},
		Mailer: MailerConfig{
			Host:     getEnv("SMTP_HOST", "127.0.0.1"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "support@example.com"),
			UseTLS:   getEnvAsBool("SMTP_USE_TLS", false),
		},
		Ack: AckConfig{
			MaxAttempts:        getEnvAsInt("ACK_MAX_ATTEMPTS", 3),
			BackoffStepSeconds: getEnvAsInt("ACK_BACKOFF_STEP_SECONDS", 2),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ClaimTTL returns the window after which an unfinished claim is abandoned.
func (g GuardConfig) ClaimTTL() time.Duration {
	if g.ClaimTTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(g.ClaimTTLMinutes) * time.Minute
}

// CompletedTTL returns how long completed claims remain on record.
func (g GuardConfig) CompletedTTL() time.Duration {
	if g.CompletedTTLHours <= 0 {
		return 48 * time.Hour
	}
	return time.Duration(g.CompletedTTLHours) * time.Hour
}

// Timeout returns the classification call deadline.
func (c ClassifierConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffStep returns the base increment between send attempts.
func (a AckConfig) BackoffStep() time.Duration {
	if a.BackoffStepSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(a.BackoffStepSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
