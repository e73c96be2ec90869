package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	SLA      SLAConfig
	Sweeper  SweeperConfig
	Kafka    KafkaConfig
	Calendar CalendarConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	// SlowQueryMs logs queries slower than this; 0 disables the tracer.
	SlowQueryMs     int
	ApplicationName string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SLAConfig tunes SLA evaluation.
type SLAConfig struct {
	ConfigCacheTTLSeconds int
	BatchConcurrency      int
	BatchMaxTickets       int
}

// SweeperConfig controls the periodic SLA level sweep.
type SweeperConfig struct {
	Enabled   bool
	Schedule  string
	PageSize  int
	LevelTTL  time.Duration
	KeyPrefix string
}

// KafkaConfig points the SLA event publisher at a cluster. Empty brokers disable it.
type KafkaConfig struct {
	Brokers  []string
	SLATopic string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	calendar, err := LoadCalendar(os.Getenv("BUSINESS_CALENDAR_FILE"))
	if err != nil {
		return nil, fmt.Errorf("load business calendar: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-sla-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			SlowQueryMs:    getEnvAsInt("POSTGRES_SLOW_QUERY_MS", 250),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		SLA: SLAConfig{
			ConfigCacheTTLSeconds: getEnvAsInt("SLA_CONFIG_CACHE_TTL_SECONDS", 300),
			BatchConcurrency:      getEnvAsInt("SLA_BATCH_CONCURRENCY", 8),
			BatchMaxTickets:       getEnvAsInt("SLA_BATCH_MAX_TICKETS", 200),
		},
		Sweeper: SweeperConfig{
			Enabled:   getEnvAsBool("SLA_SWEEP_ENABLED", true),
			Schedule:  getEnv("SLA_SWEEP_SCHEDULE", "@every 1m"),
			PageSize:  getEnvAsInt("SLA_SWEEP_PAGE_SIZE", 200),
			LevelTTL:  time.Duration(getEnvAsInt("SLA_SWEEP_LEVEL_TTL_HOURS", 24*30)) * time.Hour,
			KeyPrefix: getEnv("SLA_SWEEP_KEY_PREFIX", "sla:level:"),
		},
		Kafka: KafkaConfig{
			Brokers:  getEnvAsList("KAFKA_BROKERS"),
			SLATopic: getEnv("KAFKA_SLA_TOPIC", "ticket-sla-events"),
		},
		Calendar: calendar,
	}
	cfg.Postgres.ApplicationName = cfg.App.Name

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

// ConfigCacheTTL returns how long company SLA configuration stays cached.
func (s SLAConfig) ConfigCacheTTL() time.Duration {
	if s.ConfigCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.ConfigCacheTTLSeconds) * time.Second
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

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
