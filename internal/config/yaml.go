// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at path. If path is
// empty it searches a short list of default locations; when no file is
// found the built-in defaults are used. Environment variable overrides
// are applied after the file, and the result is validated (which clamps
// rather than rejects out-of-range values).
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range []string{"timegrapher.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides overlays a small set of TIMEGRAPHER_* environment
// variables on top of whatever the file provided. Parse failures are
// ignored; Validate handles range problems afterwards.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TIMEGRAPHER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("TIMEGRAPHER_DEVICE"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			c.Audio.DeviceID = id
		}
	}
	if v := os.Getenv("TIMEGRAPHER_SAMPLE_RATE"); v != "" {
		if sr, err := strconv.ParseFloat(v, 64); err == nil {
			c.Audio.SampleRate = sr
		}
	}
	if v := os.Getenv("TIMEGRAPHER_BPH"); v != "" {
		if bph, err := strconv.Atoi(v); err == nil {
			c.Timing.BPH = bph
		}
	}
	if v := os.Getenv("TIMEGRAPHER_THRESHOLD"); v != "" {
		if th, err := strconv.ParseFloat(v, 64); err == nil {
			c.Detection.Threshold = th
		}
	}
	if v := os.Getenv("TIMEGRAPHER_LOCKOUT_MS"); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil {
			c.Detection.LockoutMs = ms
		}
	}
}
