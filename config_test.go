package feedagent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Swind/go-feed-agent/core"
)

// TestLoadConfig tests reading a YAML file on top of the defaults
// Given: a file overriding a few settings
// When: LoadConfig is called
// Then: overridden values are used, durations are parsed and the rest keeps its default
func TestLoadConfig(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "agent.yaml")
	data := `
name: reader
workers: 8
tick_interval: 20ms
admission: one-per-tick
log_level: debug
redis:
  addr: localhost:6379
refresh:
  interval: 5m
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	// Act
	cfg, err := LoadConfig(path)

	// Assert
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "reader" || cfg.Workers != 8 || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TickInterval != 20*time.Millisecond {
		t.Errorf("TickInterval = %s, want 20ms", cfg.TickInterval)
	}
	if cfg.Refresh.Interval != 5*time.Minute {
		t.Errorf("Refresh.Interval = %s, want 5m", cfg.Refresh.Interval)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.Channel != "feedagent:errors" {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.HTTP.Listen != ":8080" {
		t.Errorf("HTTP.Listen = %q, want default", cfg.HTTP.Listen)
	}

	dc := cfg.dispatcherConfig()
	if dc.Admission != core.AdmitOnePerTick || dc.Workers != 8 || dc.Name != "reader" {
		t.Errorf("dispatcherConfig = %+v", dc)
	}
}

// TestLoadConfig_Errors tests unreadable and invalid files
func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("workers: [1, 2"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("admission: random\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(invalid)
	if err == nil || !strings.Contains(err.Error(), `unknown admission policy "random"`) {
		t.Errorf("err = %v, want admission policy error", err)
	}
}

// TestConfig_Validate tests that every problem is reported at once
func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Workers = -1
	cfg.TickInterval = -time.Second
	cfg.LogLevel = "loud"
	cfg.Demo.Posts = -3
	cfg.HistoryCapacity = -1
	cfg.FeedRefreshPollInterval = -time.Second
	cfg.SourceReloadPollInterval = -time.Millisecond
	cfg.Refresh.Interval = -time.Minute
	cfg.Demo.Latency = -time.Millisecond

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"workers", "tick_interval", "log_level", "demo counts", "history_capacity",
		"feed_refresh_poll_interval", "source_reload_poll_interval", "refresh.interval", "demo.latency",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

// TestConfig_ValidateZeroMeansDefault tests that zero values are still accepted
// Given: a config with every numeric setting left at zero
// When: Validate is called
// Then: no error is reported, since zero selects the default
func TestConfig_ValidateZeroMeansDefault(t *testing.T) {
	if err := (Config{}).Validate(); err != nil {
		t.Errorf("zero config rejected: %v", err)
	}
}
