// Package config reads the service configuration from the environment, with
// an optional .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emrgen/suggest/internal/badge"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	DBDriver    string
	DatabaseURL string
	DBTimeout   time.Duration
	// RedisURL selects the redis queue; empty keeps jobs in memory.
	RedisURL  string
	HTTPPort  string
	PublicURL string

	WorkerCount       int
	JobMaxAttempts    int
	JobAttemptTimeout time.Duration

	Cooldown   time.Duration
	Thresholds badge.Thresholds

	OpenAIKey        string
	OpenAIModel      string
	OpenAIBaseURL    string
	ValidatorTimeout time.Duration
	ValidatorRPS     float64

	KafkaBrokers string
	KafkaTopic   string

	SnapshotCompression string

	PendingStaleAfter    time.Duration
	PendingSweepSchedule string

	LogLevel  string
	LogFormat string
}

// LoadConfig reads the configuration. Malformed values fail loudly instead of
// falling back to defaults.
func LoadConfig() (*Config, error) {
	var err error
	parse := func(key string, f func() error) {
		if err == nil {
			if e := f(); e != nil {
				err = fmt.Errorf("%s: %w", key, e)
			}
		}
	}

	cfg := &Config{
		DBDriver:             getenv("DB_DRIVER", DriverSqlite),
		DatabaseURL:          getenv("DATABASE_URL", "suggest.db"),
		RedisURL:             getenv("REDIS_URL", ""),
		HTTPPort:             getenv("HTTP_PORT", "4021"),
		PublicURL:            getenv("PUBLIC_URL", "http://localhost:4021"),
		OpenAIKey:            getenv("OPENAI_API_KEY", ""),
		OpenAIModel:          getenv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:        getenv("OPENAI_BASE_URL", ""),
		KafkaBrokers:         getenv("KAFKA_BROKERS", ""),
		KafkaTopic:           getenv("KAFKA_TOPIC", "suggestion-events"),
		SnapshotCompression:  getenv("SNAPSHOT_COMPRESSION", "gzip"),
		PendingSweepSchedule: getenv("PENDING_SWEEP_SCHEDULE", "@every 1m"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		LogFormat:            getenv("LOG_FORMAT", "text"),
	}

	parse("DB_TIMEOUT", func() (e error) { cfg.DBTimeout, e = getenvDuration("DB_TIMEOUT", 30*time.Second); return })
	parse("WORKER_COUNT", func() (e error) { cfg.WorkerCount, e = getenvInt("WORKER_COUNT", 2); return })
	parse("JOB_MAX_ATTEMPTS", func() (e error) { cfg.JobMaxAttempts, e = getenvInt("JOB_MAX_ATTEMPTS", 3); return })
	parse("JOB_ATTEMPT_TIMEOUT", func() (e error) {
		cfg.JobAttemptTimeout, e = getenvDuration("JOB_ATTEMPT_TIMEOUT", 2*time.Minute)
		return
	})
	parse("SUGGESTION_COOLDOWN", func() (e error) { cfg.Cooldown, e = getenvDuration("SUGGESTION_COOLDOWN", 60*time.Minute); return })
	parse("BADGE_THRESHOLDS", func() (e error) {
		cfg.Thresholds, e = badge.ParseThresholds(getenv("BADGE_THRESHOLDS", "bronze:1,silver:10,gold:50"))
		return
	})
	parse("VALIDATOR_TIMEOUT", func() (e error) {
		cfg.ValidatorTimeout, e = getenvDuration("VALIDATOR_TIMEOUT", 60*time.Second)
		return
	})
	parse("VALIDATOR_RPS", func() (e error) { cfg.ValidatorRPS, e = getenvFloat("VALIDATOR_RPS", 1); return })
	parse("PENDING_STALE_AFTER", func() (e error) {
		cfg.PendingStaleAfter, e = getenvDuration("PENDING_STALE_AFTER", 10*time.Minute)
		return
	})
	if err != nil {
		return nil, err
	}

	if cfg.DBDriver != DriverSqlite && cfg.DBDriver != DriverPostgres {
		return nil, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DBDriver)
	}

	return cfg, nil
}

// SetupLogging applies the log level and format.
func SetupLogging(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

// GetDb opens the configured database.
func GetDb(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		dialector = sqlite.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}

	if cfg.DBDriver == DriverSqlite {
		// sqlite allows one writer at a time
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	logrus.Infof("connected to %s database", cfg.DBDriver)
	return db, nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func getenvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(value, 64)
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
