// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gogama/frace"
	"github.com/gogama/frace/internal/sim"
	"github.com/gogama/frace/race"
	"github.com/gogama/frace/throttle"
	"github.com/gogama/frace/timeout"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Config is the YAML document read by the frace command.
//
//	scheduler:
//	  default_timeout: 2s
//	  failure_threshold: 2
//	producers:
//	  - id: primary
//	    latency: 50ms
//	    failure_rate: 0.3
//	buckets:
//	  - [primary, mirror]
//	  - [cache]
//	timeouts:
//	  after_timeout: [3s, 5s]
//	throttle:
//	  limits:
//	    - {max_attempts: 10, period: 1s}
type Config struct {
	Scheduler frace.Config `yaml:"scheduler"`
	Producers []sim.Spec   `yaml:"producers"`
	Buckets   [][]string   `yaml:"buckets"`
	Timeouts  struct {
		AfterTimeout []time.Duration `yaml:"after_timeout"`
	} `yaml:"timeouts"`
	Throttle struct {
		Rate   float64 `yaml:"rate"`
		Burst  int     `yaml:"burst"`
		Limits []struct {
			MaxAttempts int           `yaml:"max_attempts"`
			Period      time.Duration `yaml:"period"`
		} `yaml:"limits"`
	} `yaml:"throttle"`
	Seed int64 `yaml:"seed"`
}

// loadConfig reads and validates the configuration at path. Scheduler
// settings the file leaves out keep their defaults.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Scheduler: frace.DefaultConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if err := cfg.Scheduler.Validate(); err != nil {
		return err
	}

	ids := make(map[string]bool, len(cfg.Producers))
	for _, p := range cfg.Producers {
		if err := p.Validate(); err != nil {
			return err
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate producer %q", p.ID)
		}
		ids[p.ID] = true
	}

	if len(cfg.Buckets) == 0 {
		return errors.New("at least one bucket is required")
	}
	for i, b := range cfg.Buckets {
		for _, id := range b {
			if !ids[id] {
				return fmt.Errorf("bucket %d: unknown producer %q", i, id)
			}
		}
	}

	if cfg.Throttle.Rate < 0 {
		return errors.New("throttle rate must not be negative")
	}
	if cfg.Throttle.Rate > 0 && cfg.Throttle.Burst < 1 {
		return errors.New("throttle burst must be at least 1")
	}
	if cfg.Throttle.Rate > 0 && len(cfg.Throttle.Limits) > 0 {
		return errors.New("throttle takes either rate or limits, not both")
	}
	for i, l := range cfg.Throttle.Limits {
		if l.MaxAttempts < 1 || l.Period <= 0 {
			return fmt.Errorf("throttle limit %d: max_attempts and period must be positive", i)
		}
	}

	for i, d := range cfg.Timeouts.AfterTimeout {
		if d <= 0 {
			return fmt.Errorf("timeouts: after_timeout %d must be positive", i)
		}
	}
	return nil
}

func (cfg *Config) starter() throttle.Starter {
	if cfg.Throttle.Rate > 0 {
		return throttle.NewRateStarter(rate.Limit(cfg.Throttle.Rate), cfg.Throttle.Burst)
	}
	if len(cfg.Throttle.Limits) > 0 {
		limits := make([]throttle.Limit, len(cfg.Throttle.Limits))
		for i, l := range cfg.Throttle.Limits {
			limits[i] = throttle.Limit{MaxAttempts: l.MaxAttempts, Period: l.Period}
		}
		return throttle.NewThrottleStarter(limits...)
	}
	return nil
}

func (cfg *Config) timeoutPolicy() timeout.Policy {
	if len(cfg.Timeouts.AfterTimeout) == 0 {
		return nil
	}
	return timeout.Adaptive(cfg.Scheduler.DefaultTimeout, cfg.Timeouts.AfterTimeout...)
}

func (cfg *Config) buckets() []race.Bucket {
	buckets := make([]race.Bucket, len(cfg.Buckets))
	for i, b := range cfg.Buckets {
		buckets[i] = race.Bucket(b)
	}
	return buckets
}
