package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/vytor/quizflash/internal/logger"
)

type Config struct {
	Addr                 string
	DBDriver             string
	DBDSN                string
	LogLevel             string
	AnswerTimeLimit      time.Duration
	DefaultQuestionCount int
	LockTTL              time.Duration
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	RabbitMQURL          string
	EventsQueue          string
	EventWorkerCount     int
	EventQueueSize       int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                 envOr("ADDR", ":8080"),
		DBDriver:             envOr("DB_DRIVER", "sqlite3"),
		DBDSN:                envOr("DB_DSN", "file:quizflash.db"),
		LogLevel:             envOr("LOG_LEVEL", "INFO"),
		AnswerTimeLimit:      envDurationOr("ANSWER_TIME_LIMIT", 30*time.Second),
		DefaultQuestionCount: envIntOr("DEFAULT_QUESTION_COUNT", 10),
		LockTTL:              envDurationOr("LOCK_TTL", 10*time.Second),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              envIntOr("REDIS_DB", 0),
		RabbitMQURL:          os.Getenv("RABBITMQ_URL"),
		EventsQueue:          envOr("EVENTS_QUEUE", "quizflash.attempts"),
		EventWorkerCount:     envIntOr("EVENT_WORKER_COUNT", 2),
		EventQueueSize:       envIntOr("EVENT_QUEUE_SIZE", 256),
	}
}

// Validate checks that all configuration values are valid.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("ADDR cannot be empty")
	}
	if c.DBDriver != "sqlite3" && c.DBDriver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN cannot be empty")
	}
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel)
	}
	if c.AnswerTimeLimit <= 0 {
		return fmt.Errorf("ANSWER_TIME_LIMIT must be positive, got %s", c.AnswerTimeLimit)
	}
	if c.DefaultQuestionCount < 1 || c.DefaultQuestionCount > 100 {
		return fmt.Errorf("DEFAULT_QUESTION_COUNT must be between 1 and 100, got %d", c.DefaultQuestionCount)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive, got %s", c.LockTTL)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("REDIS_DB cannot be negative, got %d", c.RedisDB)
	}
	if c.RabbitMQURL != "" && c.EventsQueue == "" {
		return fmt.Errorf("EVENTS_QUEUE cannot be empty when RABBITMQ_URL is set")
	}
	if c.EventWorkerCount < 1 {
		return fmt.Errorf("EVENT_WORKER_COUNT must be at least 1, got %d", c.EventWorkerCount)
	}
	if c.EventQueueSize < 1 {
		return fmt.Errorf("EVENT_QUEUE_SIZE must be at least 1, got %d", c.EventQueueSize)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

// envDurationOr accepts Go durations ("45s") or a bare number of seconds.
func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	return def
}
