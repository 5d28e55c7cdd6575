package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const DEFAULT_LOCAL_DB_PATH string = "./database/tours.json"

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageLocal    = "local"

	CapacityAtomic = "atomic"
	CapacityLegacy = "legacy"

	SenderLog  = "log"
	SenderSMTP = "smtp"
)

type Config struct {
	ListenAddr string

	StorageDriver   string
	MongoConnString string
	MongoDatabase   string
	PostgresDSN     string
	LocalDBPath     string
	CapacityMode    string

	NotifySender      string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	DefaultFromEmail  string
	NotifyQueueSize   int
	NotifyMaxAttempts int
	NotifyRetryEvery  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
}

func FromEnv() (Config, error) {
	var c Config
	c.ListenAddr = getString("LISTEN_ADDR", ":8080")

	c.StorageDriver = strings.ToLower(getString("STORAGE_DRIVER", StorageLocal))
	c.MongoConnString, _ = GetSecret("MONGODB_CONNSTRING")
	c.MongoDatabase = getString("MONGODB_DATABASE", "tour-booking")
	c.PostgresDSN, _ = GetSecret("POSTGRES_DSN")
	c.LocalDBPath = getString("LOCAL_DB_PATH", DEFAULT_LOCAL_DB_PATH)
	c.CapacityMode = strings.ToLower(getString("CAPACITY_MODE", CapacityAtomic))

	c.NotifySender = strings.ToLower(getString("NOTIFY_SENDER", SenderLog))
	c.SMTPHost = getString("SMTP_HOST", "")
	c.SMTPPort = getInt("SMTP_PORT", 587)
	c.SMTPUser = getString("SMTP_USER", "")
	c.SMTPPassword, _ = GetSecret("SMTP_PASSWORD")
	c.DefaultFromEmail = getString("DEFAULT_FROM_EMAIL", "noreply@tours.local")
	c.NotifyQueueSize = getInt("NOTIFY_QUEUE_SIZE", 100)
	c.NotifyMaxAttempts = getInt("NOTIFY_MAX_ATTEMPTS", 5)
	c.NotifyRetryEvery = getDuration("NOTIFY_RETRY_EVERY", 30*time.Second)

	c.RedisAddr = getString("REDIS_ADDR", "")
	c.RedisPassword, _ = GetSecret("REDIS_PASSWORD")
	c.RedisDB = getInt("REDIS_DB", 0)

	c.RateLimitRPS = getFloat("RATE_LIMIT_RPS", 1)
	c.RateLimitBurst = getInt("RATE_LIMIT_BURST", 5)

	c.LogLevel = strings.ToLower(getString("LOG_LEVEL", "info"))
	c.LogFormat = strings.ToLower(getString("LOG_FORMAT", "text"))

	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case StorageMongo:
		if c.MongoConnString == "" {
			return fmt.Errorf("MONGODB_CONNSTRING is required for storage driver %q", c.StorageDriver)
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for storage driver %q", c.StorageDriver)
		}
	case StorageLocal:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.CapacityMode != CapacityAtomic && c.CapacityMode != CapacityLegacy {
		return fmt.Errorf("unknown CAPACITY_MODE %q", c.CapacityMode)
	}

	switch c.NotifySender {
	case SenderLog:
	case SenderSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required for notify sender %q", c.NotifySender)
		}
	default:
		return fmt.Errorf("unknown NOTIFY_SENDER %q", c.NotifySender)
	}

	if c.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be > 0")
	}
	if c.NotifyMaxAttempts <= 0 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be > 0")
	}
	if c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 1 when RATE_LIMIT_RPS is set")
	}
	return nil
}

func GetSecret(key string) (string, error) {
	val, exist := os.LookupEnv(key)
	if exist {
		return val, nil
	}
	return "", fmt.Errorf("no env variable with key %v", key)
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
