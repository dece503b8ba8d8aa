// Package sweepconfig loads the optional YAML file that overrides the
// sweep's default grid and physical-layer parameters. The core simulation
// package never depends on this package — a sweep run built entirely from
// the §6 baseline constants and command-line flags never needs a config
// file at all.
package sweepconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arqlab/srarq/channel"
)

// Config is the optional sweep configuration file's top-level shape.
type Config struct {
	WindowSizes  []int         `yaml:"window_sizes"`
	PayloadSizes []int         `yaml:"payload_sizes"`
	RunsPerPoint int           `yaml:"runs_per_point"`
	Channel      ChannelConfig `yaml:"channel"`
	Metrics      MetricsConfig `yaml:"metrics"`
}

// MetricsConfig controls the optional Prometheus endpoint cmd/sweep exposes
// while a run is in progress.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// ChannelConfig overrides individual §6 physical-layer constants. Any field
// left at its zero value falls back to channel.DefaultParams() rather than
// to zero, since zero is never a valid physical parameter.
type ChannelConfig struct {
	BitRateBps        float64 `yaml:"bit_rate_bps"`
	PropagationFWDMs  float64 `yaml:"propagation_fwd_ms"`
	PropagationREVMs  float64 `yaml:"propagation_rev_ms"`
	ProcessingDelayMs float64 `yaml:"processing_delay_ms"`
	PGood             float64 `yaml:"p_good"`
	PBad              float64 `yaml:"p_bad"`
	TransGoodToBad    float64 `yaml:"trans_good_to_bad"`
	TransBadToGood    float64 `yaml:"trans_bad_to_good"`
}

// Default returns the §6 baseline sweep grid: W in {2,4,8,16,32,64}, L in
// {128,256,512,1024,2048,4096}, 10 runs per (W, L) point.
func Default() *Config {
	return &Config{
		WindowSizes:  []int{2, 4, 8, 16, 32, 64},
		PayloadSizes: []int{128, 256, 512, 1024, 2048, 4096},
		RunsPerPoint: 10,
	}
}

// Load reads a sweep configuration file, falling back to Default() for any
// field the file leaves unset. An empty path is not an error — it returns
// the default grid.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sweepconfig: reading %s: %w", path, err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("sweepconfig: parsing %s: %w", path, err)
	}

	if len(loaded.WindowSizes) > 0 {
		cfg.WindowSizes = loaded.WindowSizes
	}
	if len(loaded.PayloadSizes) > 0 {
		cfg.PayloadSizes = loaded.PayloadSizes
	}
	if loaded.RunsPerPoint > 0 {
		cfg.RunsPerPoint = loaded.RunsPerPoint
	}
	cfg.Channel = loaded.Channel
	cfg.Metrics = loaded.Metrics
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the grid itself is usable; the per-run physical
// parameters are validated separately by channel.Params.Validate once
// ResolveParams has built them, since a zero ChannelConfig field is a
// "use the default" sentinel here rather than a channel parameter value.
func (c *Config) Validate() error {
	if len(c.WindowSizes) == 0 {
		return fmt.Errorf("sweepconfig: window_sizes must not be empty")
	}
	for _, w := range c.WindowSizes {
		if w <= 0 {
			return fmt.Errorf("sweepconfig: window size %d must be positive", w)
		}
	}
	if len(c.PayloadSizes) == 0 {
		return fmt.Errorf("sweepconfig: payload_sizes must not be empty")
	}
	for _, l := range c.PayloadSizes {
		if l <= 8 {
			return fmt.Errorf("sweepconfig: payload size %d must exceed the transport header", l)
		}
	}
	if c.RunsPerPoint <= 0 {
		return fmt.Errorf("sweepconfig: runs_per_point must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("sweepconfig: metrics.listen is required when metrics.enabled is true")
	}
	return nil
}

// ResolveParams builds a channel.Params from the baseline defaults,
// overriding each field the config file actually set.
func (c *Config) ResolveParams() channel.Params {
	p := channel.DefaultParams()
	ch := c.Channel
	if ch.BitRateBps != 0 {
		p.BitRateBps = ch.BitRateBps
	}
	if ch.PropagationFWDMs != 0 {
		p.PropagationFWD = msToDuration(ch.PropagationFWDMs)
	}
	if ch.PropagationREVMs != 0 {
		p.PropagationREV = msToDuration(ch.PropagationREVMs)
	}
	if ch.ProcessingDelayMs != 0 {
		p.ProcessingDelay = msToDuration(ch.ProcessingDelayMs)
	}
	if ch.PGood != 0 {
		p.PGood = ch.PGood
	}
	if ch.PBad != 0 {
		p.PBad = ch.PBad
	}
	if ch.TransGoodToBad != 0 {
		p.TransGoodToBad = ch.TransGoodToBad
	}
	if ch.TransBadToGood != 0 {
		p.TransBadToGood = ch.TransBadToGood
	}
	return p
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
