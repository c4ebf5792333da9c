package sessionguard

import (
	"errors"
	"time"
)

// Config is the complete governor policy. It is read once at Build time.
type Config struct {
	Lockout     LockoutConfig     `yaml:"lockout"`
	Session     SessionConfig     `yaml:"session"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Audit       AuditConfig       `yaml:"audit"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls failed-login counting. An account locks on the
// attempt that takes its counter above MaxAttempts.
type LockoutConfig struct {
	MaxAttempts     int `yaml:"max_attempts"`
	DurationMinutes int `yaml:"duration_minutes"`
}

// Duration returns the lockout flag lifetime.
func (c LockoutConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls per-account session bookkeeping.
type SessionConfig struct {
	// MaxPerAccount caps concurrent sessions. 0 disables enforcement.
	MaxPerAccount int `yaml:"max_per_account"`
	// ListLimit bounds ListSessions.
	ListLimit int `yaml:"list_limit"`
	// KeyPrefix is the key namespace of the default session backend.
	KeyPrefix string `yaml:"key_prefix"`
}

/*
====================================
MAINTENANCE CONFIG
====================================
*/

// MaintenanceConfig controls the system-wide session wipe.
type MaintenanceConfig struct {
	BatchSize int `yaml:"batch_size"`
	// BatchesPerSecond paces the wipe. 0 runs batches back to back.
	BatchesPerSecond float64 `yaml:"batches_per_second"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"latency_histograms"`
}

// DefaultConfig returns the stock policy: lock for 60 minutes after more than
// 5 failed attempts, keep at most 10 sessions per account.
func DefaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxAttempts:     5,
			DurationMinutes: 60,
		},
		Session: SessionConfig{
			MaxPerAccount: 10,
			ListLimit:     20,
			KeyPrefix:     "sess:",
		},
		Maintenance: MaintenanceConfig{
			BatchSize: 1000,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("Lockout.MaxAttempts must be > 0")
	}
	if c.Lockout.DurationMinutes <= 0 {
		return errors.New("Lockout.DurationMinutes must be > 0")
	}
	if c.Session.MaxPerAccount < 0 {
		return errors.New("Session.MaxPerAccount must be >= 0")
	}
	if c.Session.ListLimit <= 0 {
		return errors.New("Session.ListLimit must be > 0")
	}
	if c.Maintenance.BatchSize <= 0 {
		return errors.New("Maintenance.BatchSize must be > 0")
	}
	if c.Maintenance.BatchesPerSecond < 0 {
		return errors.New("Maintenance.BatchesPerSecond must be >= 0")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be > 0 when audit is enabled")
	}
	return nil
}
