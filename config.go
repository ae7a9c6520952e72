// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package frace

import (
	"time"

	"github.com/gogama/frace/backoff"
	"github.com/gogama/frace/health"
	"github.com/gogama/frace/timeout"
)

// Config holds the tunable parameters of a Scheduler. Use DefaultConfig
// as the starting point and override what differs; a Config decoded
// from YAML on top of DefaultConfig keeps the default for every key
// the document leaves out.
type Config struct {
	// DefaultTimeout is the per-attempt timeout used when neither the
	// request nor the producer specifies one.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	// FailureThreshold is the number of consecutive failures that
	// opens a healthy producer's circuit.
	FailureThreshold int `yaml:"failure_threshold"`
	// BaseBackoffDelay is the unit of the exponential backoff. The
	// circuit stays open for BaseBackoffDelay × 2^level.
	BaseBackoffDelay time.Duration `yaml:"base_backoff_delay"`
	// MaxBackoffDelay caps the backoff delay.
	MaxBackoffDelay time.Duration `yaml:"max_backoff_delay"`
	// DisableThreshold is the backoff level past which a producer is
	// disabled until reset. Use health.NeverDisable to keep backing
	// off forever.
	DisableThreshold int `yaml:"disable_threshold"`
}

// DefaultConfig returns the configuration used by a zero-value
// Scheduler.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:   5 * time.Second,
		FailureThreshold: health.DefaultConfig.FailureThreshold,
		BaseBackoffDelay: 1 * time.Second,
		MaxBackoffDelay:  5 * time.Minute,
		DisableThreshold: health.DefaultConfig.DisableThreshold,
	}
}

// Validate reports the first invalid parameter in c, if any.
func (c Config) Validate() error {
	switch {
	case c.DefaultTimeout <= 0:
		return configError("default_timeout must be positive")
	case c.FailureThreshold <= 0:
		return configError("failure_threshold must be positive")
	case c.BaseBackoffDelay <= 0:
		return configError("base_backoff_delay must be positive")
	case c.MaxBackoffDelay < c.BaseBackoffDelay:
		return configError("max_backoff_delay must be at least base_backoff_delay")
	case c.DisableThreshold < health.NeverDisable:
		return configError("disable_threshold must be non-negative or -1")
	}
	return nil
}

func (c Config) health() health.Config {
	return health.Config{
		FailureThreshold: c.FailureThreshold,
		DisableThreshold: c.DisableThreshold,
		Waiter:           backoff.NewExpWaiter(c.BaseBackoffDelay, c.MaxBackoffDelay, nil),
	}
}

func (c Config) timeoutPolicy() timeout.Policy {
	return timeout.Fixed(c.DefaultTimeout)
}

type configError string

func (err configError) Error() string {
	return "frace: invalid config: " + string(err)
}
