// Package config holds the runtime configuration for the skywatch service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the service configuration. All fields are optional in
// the JSON file; the Get* accessors provide defaults for anything omitted,
// so partial configs are safe.
type Config struct {
	// Store capacities
	MaxEvents     *int `json:"max_events,omitempty"`
	MaxTelemetry  *int `json:"max_telemetry,omitempty"`
	MaxDetections *int `json:"max_detections,omitempty"`

	// Query windows
	DefaultQueryLimit *int `json:"default_query_limit,omitempty"`
	SnapshotLimit     *int `json:"snapshot_limit,omitempty"`

	// Analytics params
	ClusterThresholdMeters *float64 `json:"cluster_threshold_meters,omitempty"`
	TelemetryBucketMillis  *int64   `json:"telemetry_bucket_millis,omitempty"`

	// Consumer-side dedup buffer
	DedupIndexCapacity *int `json:"dedup_index_capacity,omitempty"`
	DedupFeedCapacity  *int `json:"dedup_feed_capacity,omitempty"`

	// Polling consumer cadence (duration strings like "2s", "120ms")
	PollInterval  *string `json:"poll_interval,omitempty"`
	FlushInterval *string `json:"flush_interval,omitempty"`
}

// Default returns a Config with all fields unset; every accessor yields its
// default value.
func Default() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The path must have a .json
// extension and the file must be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	for name, v := range map[string]*int{
		"max_events":           c.MaxEvents,
		"max_telemetry":        c.MaxTelemetry,
		"max_detections":       c.MaxDetections,
		"default_query_limit":  c.DefaultQueryLimit,
		"snapshot_limit":       c.SnapshotLimit,
		"dedup_index_capacity": c.DedupIndexCapacity,
		"dedup_feed_capacity":  c.DedupFeedCapacity,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, *v)
		}
	}

	if c.ClusterThresholdMeters != nil && *c.ClusterThresholdMeters <= 0 {
		return fmt.Errorf("cluster_threshold_meters must be positive, got %f", *c.ClusterThresholdMeters)
	}

	if c.TelemetryBucketMillis != nil && *c.TelemetryBucketMillis <= 0 {
		return fmt.Errorf("telemetry_bucket_millis must be positive, got %d", *c.TelemetryBucketMillis)
	}

	if c.PollInterval != nil && *c.PollInterval != "" {
		if _, err := time.ParseDuration(*c.PollInterval); err != nil {
			return fmt.Errorf("invalid poll_interval '%s': %w", *c.PollInterval, err)
		}
	}

	if c.FlushInterval != nil && *c.FlushInterval != "" {
		if _, err := time.ParseDuration(*c.FlushInterval); err != nil {
			return fmt.Errorf("invalid flush_interval '%s': %w", *c.FlushInterval, err)
		}
	}

	return nil
}

// GetMaxEvents returns the aggregate collection capacity or the default.
func (c *Config) GetMaxEvents() int {
	if c.MaxEvents == nil {
		return 5000
	}
	return *c.MaxEvents
}

// GetMaxTelemetry returns the telemetry collection capacity or the default.
func (c *Config) GetMaxTelemetry() int {
	if c.MaxTelemetry == nil {
		return 2000
	}
	return *c.MaxTelemetry
}

// GetMaxDetections returns the detection collection capacity or the default.
func (c *Config) GetMaxDetections() int {
	if c.MaxDetections == nil {
		return 2000
	}
	return *c.MaxDetections
}

// GetDefaultQueryLimit returns the default query window or the default.
func (c *Config) GetDefaultQueryLimit() int {
	if c.DefaultQueryLimit == nil {
		return 200
	}
	return *c.DefaultQueryLimit
}

// GetSnapshotLimit returns the catch-up snapshot size or the default.
func (c *Config) GetSnapshotLimit() int {
	if c.SnapshotLimit == nil {
		return 200
	}
	return *c.SnapshotLimit
}

// GetClusterThresholdMeters returns the clustering distance threshold or the
// default. The 150m default mirrors observed behaviour; it is a tunable, not
// a validated constant.
func (c *Config) GetClusterThresholdMeters() float64 {
	if c.ClusterThresholdMeters == nil {
		return 150
	}
	return *c.ClusterThresholdMeters
}

// GetTelemetryBucketMillis returns the dedup time-bucket width or the default.
func (c *Config) GetTelemetryBucketMillis() int64 {
	if c.TelemetryBucketMillis == nil {
		return 250
	}
	return *c.TelemetryBucketMillis
}

// GetDedupIndexCapacity returns the identity index capacity or the default.
func (c *Config) GetDedupIndexCapacity() int {
	if c.DedupIndexCapacity == nil {
		return 1000
	}
	return *c.DedupIndexCapacity
}

// GetDedupFeedCapacity returns the feed list capacity or the default.
func (c *Config) GetDedupFeedCapacity() int {
	if c.DedupFeedCapacity == nil {
		return 500
	}
	return *c.DedupFeedCapacity
}

// GetPollInterval parses and returns the poll interval as a time.Duration.
func (c *Config) GetPollInterval() time.Duration {
	if c.PollInterval == nil || *c.PollInterval == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(*c.PollInterval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetFlushInterval parses and returns the dedup flush interval.
func (c *Config) GetFlushInterval() time.Duration {
	if c.FlushInterval == nil || *c.FlushInterval == "" {
		return 120 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.FlushInterval)
	if err != nil {
		return 120 * time.Millisecond
	}
	return d
}
