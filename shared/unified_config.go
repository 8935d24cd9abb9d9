package shared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// UnifiedConfiguration holds all tunables for the status-sync pipeline in one
// place. config.LoadConfig builds one of these from the environment; tests
// build theirs by hand.
type UnifiedConfiguration struct {
	Platform PlatformConfig `json:"platform"`
	Database DatabaseConfig `json:"database"`
	Sync     SyncConfig     `json:"sync"`
	Logging  LoggingConfig  `json:"logging"`
}

// PlatformConfig holds upstream platform API configuration.
type PlatformConfig struct {
	BaseURL            string        `json:"base_url"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	EnableMetrics      bool          `json:"enable_metrics"`
}

// DatabaseConfig holds database connection pool configuration.
type DatabaseConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// SyncConfig holds the cache, polling, and guard timing knobs.
type SyncConfig struct {
	StatusTTL         time.Duration `json:"status_ttl"`
	FetchTimeout      time.Duration `json:"fetch_timeout"`
	PollInterval      time.Duration `json:"poll_interval"`
	GuardWaitCeiling  time.Duration `json:"guard_wait_ceiling"`
	SessionIdleWindow time.Duration `json:"session_idle_window"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

// NewDefaultUnifiedConfiguration returns production-ready defaults. The sync
// timings are the documented contract of the pipeline: 5 minute snapshot TTL,
// 5 second fetch timeout, 60 second poll interval, 2 second guard ceiling.
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Platform: PlatformConfig{
			BaseURL:            "https://api.legalassist.example.com",
			HTTPRequestTimeout: 10 * time.Second,
			RequestRateLimit:   200 * time.Millisecond,
			EnableMetrics:      true,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Sync: SyncConfig{
			StatusTTL:         5 * time.Minute,
			FetchTimeout:      5 * time.Second,
			PollInterval:      60 * time.Second,
			GuardWaitCeiling:  2 * time.Second,
			SessionIdleWindow: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "status-gateway",
		},
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for
// zero or invalid values.
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	if c.Platform.BaseURL == "" {
		c.Platform.BaseURL = defaults.Platform.BaseURL
		logger.Debug("Applied default Platform.BaseURL")
	}
	if c.Platform.HTTPRequestTimeout <= 0 {
		c.Platform.HTTPRequestTimeout = defaults.Platform.HTTPRequestTimeout
		logger.Debug("Applied default Platform.HTTPRequestTimeout")
	}
	if c.Platform.RequestRateLimit <= 0 {
		c.Platform.RequestRateLimit = defaults.Platform.RequestRateLimit
		logger.Debug("Applied default Platform.RequestRateLimit")
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
		logger.Debug("Applied default Database.MaxOpenConns")
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
		logger.Debug("Applied default Database.MaxIdleConns")
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}
	if c.Database.ConnMaxIdleTime <= 0 {
		c.Database.ConnMaxIdleTime = defaults.Database.ConnMaxIdleTime
		logger.Debug("Applied default Database.ConnMaxIdleTime")
	}
	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Sync.StatusTTL <= 0 {
		c.Sync.StatusTTL = defaults.Sync.StatusTTL
		logger.Debug("Applied default Sync.StatusTTL")
	}
	if c.Sync.FetchTimeout <= 0 {
		c.Sync.FetchTimeout = defaults.Sync.FetchTimeout
		logger.Debug("Applied default Sync.FetchTimeout")
	}
	if c.Sync.PollInterval <= 0 {
		c.Sync.PollInterval = defaults.Sync.PollInterval
		logger.Debug("Applied default Sync.PollInterval")
	}
	if c.Sync.GuardWaitCeiling <= 0 {
		c.Sync.GuardWaitCeiling = defaults.Sync.GuardWaitCeiling
		logger.Debug("Applied default Sync.GuardWaitCeiling")
	}
	if c.Sync.SessionIdleWindow <= 0 {
		c.Sync.SessionIdleWindow = defaults.Sync.SessionIdleWindow
		logger.Debug("Applied default Sync.SessionIdleWindow")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		logger.Debug("Applied default Logging.Level")
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
		logger.Debug("Applied default Logging.Format")
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = defaults.Logging.ServiceName
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// ToJSON serializes the configuration to JSON.
func (c *UnifiedConfiguration) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFromJSON deserializes configuration from JSON.
func (c *UnifiedConfiguration) LoadFromJSON(jsonData []byte) error {
	if err := json.Unmarshal(jsonData, c); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.ValidateAndApplyDefaults()
	return nil
}
