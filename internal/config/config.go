// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds client settings read from the environment. A .env file is loaded
// by the cmd/ entrypoints through godotenv/autoload before Load is called.
type Config struct {
	APIBaseURL  string
	HTTPTimeout time.Duration

	// SyncInterval is the period of recurring synchronization once the deal is done.
	SyncInterval time.Duration
	// SyncMaxAttempts caps failed synchronization cycles before polling is suspended.
	SyncMaxAttempts int
	CardsPerPlayer  int

	StoreBackend string // "file" or "redis"
	StorePath    string
	RedisAddr    string
	RedisDB      int

	RecordActions      bool
	HistorianQueueName string

	// AuthPublicKeyPath optionally points at the server's raw ed25519 public key.
	AuthPublicKeyPath string

	LogLevel logrus.Level
}

const (
	DefaultAPIBaseURL      = "http://localhost:1731/api"
	DefaultSyncInterval    = 5 * time.Second
	DefaultSyncMaxAttempts = 5
	DefaultCardsPerPlayer  = 7
	DefaultQueueName       = "uno_actions"
)

// Load reads the configuration from environment variables, falling back to defaults.
func Load() Config {
	return Config{
		APIBaseURL:         strings.TrimRight(GetEnv("API_BASE_URL", DefaultAPIBaseURL), "/"),
		HTTPTimeout:        GetEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		SyncInterval:       GetEnvDuration("SYNC_INTERVAL", DefaultSyncInterval),
		SyncMaxAttempts:    GetEnvInt("SYNC_MAX_ATTEMPTS", DefaultSyncMaxAttempts),
		CardsPerPlayer:     GetEnvInt("CARDS_PER_PLAYER", DefaultCardsPerPlayer),
		StoreBackend:       GetEnv("STORE_BACKEND", "file"),
		StorePath:          GetEnv("STORE_PATH", defaultStorePath()),
		RedisAddr:          GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            GetEnvInt("REDIS_DB", 0),
		RecordActions:      GetEnvBool("RECORD_ACTIONS", false),
		HistorianQueueName: GetEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName),
		AuthPublicKeyPath:  GetEnv("AUTH_PUBLIC_KEY_PATH", ""),
		LogLevel:           parseLevel(GetEnv("LOG_LEVEL", "info")),
	}
}

// NewLogger returns a logrus logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	return logger
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".galactic-uno.json"
	}
	return dir + "/galactic-uno/prefs.json"
}

func parseLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt parses an environment variable as integer, else returns def.
func GetEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// GetEnvBool parses an environment variable as bool, else returns def.
func GetEnvBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

// GetEnvDuration accepts either a Go duration ("5s") or a bare number of seconds.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
