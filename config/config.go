package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/legalassist/status-gateway/shared"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort      string
	DatabaseURL     string
	PlatformBaseURL string
	AdminToken      string
	LogLevel        string
	ConfigFile      string

	StatusTTLMinutes    string
	PollIntervalSeconds string
	FetchTimeoutSeconds string
	GuardWaitMillis     string
	SessionIdleMinutes  string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		PlatformBaseURL:     getEnv("PLATFORM_BASE_URL", ""),
		AdminToken:          getEnv("ADMIN_TOKEN", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		ConfigFile:          getEnv("CONFIG_FILE", ""),
		StatusTTLMinutes:    getEnv("STATUS_TTL_MINUTES", "5"),
		PollIntervalSeconds: getEnv("POLL_INTERVAL_SECONDS", "60"),
		FetchTimeoutSeconds: getEnv("FETCH_TIMEOUT_SECONDS", "5"),
		GuardWaitMillis:     getEnv("GUARD_WAIT_MILLIS", "2000"),
		SessionIdleMinutes:  getEnv("SESSION_IDLE_MINUTES", "30"),
	}
}

// SyncConfig resolves the environment overrides into the unified sync timing
// configuration, falling back to the documented defaults for anything
// unparseable.
func (c *Config) SyncConfig() shared.SyncConfig {
	sync := shared.NewDefaultUnifiedConfiguration().Sync
	c.ApplySyncOverrides(&sync)
	return sync
}

// ApplySyncOverrides applies the environment overrides on top of an existing
// sync configuration, leaving anything unset or unparseable alone.
func (c *Config) ApplySyncOverrides(sync *shared.SyncConfig) {
	if minutes, ok := parsePositiveInt(c.StatusTTLMinutes, "STATUS_TTL_MINUTES"); ok {
		sync.StatusTTL = time.Duration(minutes) * time.Minute
	}
	if seconds, ok := parsePositiveInt(c.PollIntervalSeconds, "POLL_INTERVAL_SECONDS"); ok {
		sync.PollInterval = time.Duration(seconds) * time.Second
	}
	if seconds, ok := parsePositiveInt(c.FetchTimeoutSeconds, "FETCH_TIMEOUT_SECONDS"); ok {
		sync.FetchTimeout = time.Duration(seconds) * time.Second
	}
	if millis, ok := parsePositiveInt(c.GuardWaitMillis, "GUARD_WAIT_MILLIS"); ok {
		sync.GuardWaitCeiling = time.Duration(millis) * time.Millisecond
	}
	if minutes, ok := parsePositiveInt(c.SessionIdleMinutes, "SESSION_IDLE_MINUTES"); ok {
		sync.SessionIdleWindow = time.Duration(minutes) * time.Minute
	}
}

func parsePositiveInt(value, envName string) (int, bool) {
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		logrus.Warnf("Invalid %s value: %s, using default", envName, value)
		return 0, false
	}
	return parsed, true
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
