package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if got := cfg.GetMaxEvents(); got != 5000 {
		t.Errorf("GetMaxEvents = %d, want 5000", got)
	}
	if got := cfg.GetMaxTelemetry(); got != 2000 {
		t.Errorf("GetMaxTelemetry = %d, want 2000", got)
	}
	if got := cfg.GetMaxDetections(); got != 2000 {
		t.Errorf("GetMaxDetections = %d, want 2000", got)
	}
	if got := cfg.GetDefaultQueryLimit(); got != 200 {
		t.Errorf("GetDefaultQueryLimit = %d, want 200", got)
	}
	if got := cfg.GetSnapshotLimit(); got != 200 {
		t.Errorf("GetSnapshotLimit = %d, want 200", got)
	}
	if got := cfg.GetClusterThresholdMeters(); got != 150 {
		t.Errorf("GetClusterThresholdMeters = %v, want 150", got)
	}
	if got := cfg.GetTelemetryBucketMillis(); got != 250 {
		t.Errorf("GetTelemetryBucketMillis = %d, want 250", got)
	}
	if got := cfg.GetPollInterval(); got != 2*time.Second {
		t.Errorf("GetPollInterval = %v, want 2s", got)
	}
	if got := cfg.GetFlushInterval(); got != 120*time.Millisecond {
		t.Errorf("GetFlushInterval = %v, want 120ms", got)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `{"max_events": 100, "flush_interval": "50ms"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.GetMaxEvents(); got != 100 {
		t.Errorf("GetMaxEvents = %d, want 100", got)
	}
	if got := cfg.GetFlushInterval(); got != 50*time.Millisecond {
		t.Errorf("GetFlushInterval = %v, want 50ms", got)
	}
	// Omitted fields keep their defaults.
	if got := cfg.GetMaxTelemetry(); got != 2000 {
		t.Errorf("GetMaxTelemetry = %d, want 2000", got)
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	if _, err := Load("config.yaml"); err == nil {
		t.Fatal("expected error for non-JSON extension")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := writeConfig(t, `{"max_events": `)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestValidateRejectsNonPositiveCapacities(t *testing.T) {
	zero := 0
	cfg := &Config{MaxEvents: &zero}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max_events = 0")
	}

	neg := -5
	cfg = &Config{DedupFeedCapacity: &neg}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative dedup_feed_capacity")
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	bad := -1.0
	cfg := &Config{ClusterThresholdMeters: &bad}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative cluster_threshold_meters")
	}
}

func TestValidateRejectsBadDurations(t *testing.T) {
	bad := "soon"
	cfg := &Config{PollInterval: &bad}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unparseable poll_interval")
	}

	cfg = &Config{FlushInterval: &bad}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unparseable flush_interval")
	}
}

func TestBadDurationFallsBackToDefault(t *testing.T) {
	bad := "nope"
	cfg := &Config{PollInterval: &bad}
	if got := cfg.GetPollInterval(); got != 2*time.Second {
		t.Errorf("GetPollInterval = %v, want default 2s", got)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skywatch.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
