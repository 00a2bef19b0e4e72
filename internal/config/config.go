// Package config holds the tunables for every component, validated and
// defaulted the way the driver ancestor's cmd/driver/config.go does:
// a single Check() pass that fills in sane defaults and rejects only
// values it cannot correct.
package config

import (
	"errors"
	"time"
)

// Stabilizer carries C4's tunables (spec.md §3 "Stabilizer configuration").
type Stabilizer struct {
	PollInterval       time.Duration `json:"pollIntervalMs" yaml:"pollIntervalMs"`
	StableCountRequired int          `json:"stableCountRequired" yaml:"stableCountRequired"`
	MaxWait            time.Duration `json:"maxWaitMs" yaml:"maxWaitMs"`
	MinAge             time.Duration `json:"minAgeMs" yaml:"minAgeMs"`
	SettleDelay        time.Duration `json:"settleDelayMs" yaml:"settleDelayMs"`
}

// Monitor carries C3's tunables.
type Monitor struct {
	InitialDelay    time.Duration `json:"initialDelayMs" yaml:"initialDelayMs"`
	PollTimeout     time.Duration `json:"pollTimeoutMs" yaml:"pollTimeoutMs"`
	MinBackoff      time.Duration `json:"minBackoffMs" yaml:"minBackoffMs"`
	MaxBackoff      time.Duration `json:"maxBackoffMs" yaml:"maxBackoffMs"`
	StartupGrace    time.Duration `json:"startupGraceMs" yaml:"startupGraceMs"`
	RestartThrottle time.Duration `json:"restartThrottleMs" yaml:"restartThrottleMs"`
}

// ExportQueue carries C5's tunables.
type ExportQueue struct {
	Backlog int `json:"backlog" yaml:"backlog"`
}

// Sidecar carries the child process launch configuration.
type Sidecar struct {
	BinaryPath string `json:"binaryPath" yaml:"binaryPath"`
	Mode       string `json:"mode" yaml:"mode"` // "mock" | "real"
	PipeName   string `json:"pipeName" yaml:"pipeName"`
}

// Config is the top-level configuration for the whole supervisor.
type Config struct {
	Sidecar     Sidecar     `json:"sidecar" yaml:"sidecar"`
	Stabilizer  Stabilizer  `json:"stabilizer" yaml:"stabilizer"`
	Monitor     Monitor     `json:"monitor" yaml:"monitor"`
	ExportQueue ExportQueue `json:"exportQueue" yaml:"exportQueue"`
	LogFile     string      `json:"logFile" yaml:"logFile"`
	Debug       bool        `json:"debug" yaml:"debug"`
}

// Default returns a Config with every default from spec.md applied.
func Default() Config {
	c := Config{}
	c.Check()
	return c
}

// Check validates the configuration and fills in defaults for anything
// left zero-valued. The only value it rejects is a sidecar mode other
// than "mock" or "real"; every other field gets a default.
func (c *Config) Check() error {
	if c.Sidecar.Mode == "" {
		c.Sidecar.Mode = "mock"
	}
	if c.Sidecar.Mode != "mock" && c.Sidecar.Mode != "real" {
		return errors.New("config: sidecar.mode must be \"mock\" or \"real\"")
	}

	if c.Stabilizer.PollInterval <= 0 {
		c.Stabilizer.PollInterval = 200 * time.Millisecond
	}
	if c.Stabilizer.StableCountRequired <= 0 {
		c.Stabilizer.StableCountRequired = 3
	}
	if c.Stabilizer.MaxWait <= 0 {
		c.Stabilizer.MaxWait = 10_000 * time.Millisecond
	}
	if c.Stabilizer.MinAge <= 0 {
		c.Stabilizer.MinAge = 500 * time.Millisecond
	}
	if c.Stabilizer.SettleDelay <= 0 {
		c.Stabilizer.SettleDelay = 50 * time.Millisecond
	}

	if c.Monitor.InitialDelay <= 0 {
		c.Monitor.InitialDelay = 2 * time.Second
	}
	if c.Monitor.PollTimeout <= 0 {
		c.Monitor.PollTimeout = 4 * time.Second
	}
	if c.Monitor.MinBackoff <= 0 {
		c.Monitor.MinBackoff = 5 * time.Second
	}
	if c.Monitor.MaxBackoff <= 0 {
		c.Monitor.MaxBackoff = 30 * time.Second
	}
	if c.Monitor.StartupGrace <= 0 {
		c.Monitor.StartupGrace = 10 * time.Second
	}
	if c.Monitor.RestartThrottle <= 0 {
		c.Monitor.RestartThrottle = 30 * time.Second
	}

	if c.ExportQueue.Backlog <= 0 {
		c.ExportQueue.Backlog = 64
	}

	return nil
}
