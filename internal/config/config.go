// Package config loads the engine's operational configuration: page size,
// region geometry, cache capacity, throttle rate, and log level. It does not
// parse the transaction layer's key=value configuration strings — see
// internal/kv for that mini-language.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig is the top-level configuration for a running engine instance.
type EngineConfig struct {
	PageSize          int    `yaml:"page_size"`
	RegionSize        int    `yaml:"region_size"`
	RegionCount       int    `yaml:"region_count"`
	AllocationSize    int    `yaml:"allocation_size"`
	ChunkCacheEntries int    `yaml:"chunk_cache_entries"`
	ThrottleBytesPerS int    `yaml:"throttle_bytes_per_sec"`
	ThrottleBurst     int    `yaml:"throttle_burst"`
	LogLevel          string `yaml:"log_level"`
	LogJSON           bool   `yaml:"log_json"`
}

// Default returns the configuration the engine boots with when no file is
// supplied.
func Default() EngineConfig {
	return EngineConfig{
		PageSize:          8192,
		RegionSize:        4096,
		RegionCount:       128,
		AllocationSize:    512,
		ChunkCacheEntries: 1024,
		ThrottleBytesPerS: 64 << 20,
		ThrottleBurst:     8 << 20,
		LogLevel:          "info",
		LogJSON:           false,
	}
}

// Load reads an EngineConfig from a YAML file, starting from Default and
// overriding whatever the file sets.
func Load(path string) (EngineConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the rest of the engine cannot run with.
func (c EngineConfig) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("config: page_size must be positive, got %d", c.PageSize)
	}
	if c.RegionSize <= 0 {
		return fmt.Errorf("config: region_size must be positive, got %d", c.RegionSize)
	}
	if c.RegionCount <= 0 {
		return fmt.Errorf("config: region_count must be positive, got %d", c.RegionCount)
	}
	if c.AllocationSize <= 0 {
		return fmt.Errorf("config: allocation_size must be positive, got %d", c.AllocationSize)
	}
	return nil
}
