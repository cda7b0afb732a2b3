package feedagent

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Swind/go-feed-agent/core"
)

// Config configures an Agent and the daemon around it. Zero values are
// replaced by the defaults of DefaultConfig.
type Config struct {
	// Name identifies the agent in logs and metrics.
	Name string `yaml:"name"`

	// Workers is the number of jobs that may run at once.
	Workers int `yaml:"workers"`

	// TickInterval is how often the backlog is drained.
	TickInterval time.Duration `yaml:"tick_interval"`

	// Admission is "all-idle" or "one-per-tick".
	Admission string `yaml:"admission"`

	// HistoryCapacity bounds RecentJobs.
	HistoryCapacity int `yaml:"history_capacity"`

	FeedRefreshPollInterval  time.Duration `yaml:"feed_refresh_poll_interval"`
	SourceReloadPollInterval time.Duration `yaml:"source_reload_poll_interval"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Demo     DemoConfig     `yaml:"demo"`
}

// DatabaseConfig points at the PostgreSQL database holding the source list.
// An empty URL runs the daemon with a demo source instead.
type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

// RedisConfig enables publishing error events on a Pub/Sub channel.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// HTTPConfig is the daemon's HTTP listener (metrics, health, error stream).
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// RefreshConfig controls periodic refreshing of every source.
type RefreshConfig struct {
	// Interval between two refresh rounds. Zero disables auto refresh.
	Interval time.Duration `yaml:"interval"`
}

// DemoConfig shapes the in-memory source used when no database is configured.
type DemoConfig struct {
	Folders int           `yaml:"folders"`
	Feeds   int           `yaml:"feeds"`
	Posts   int           `yaml:"posts"`
	Latency time.Duration `yaml:"latency"`
}

// DefaultConfig returns a config with the default values.
func DefaultConfig() Config {
	return Config{
		Name:                     "agent",
		Workers:                  5,
		TickInterval:             core.DefaultTickInterval,
		Admission:                core.AdmitAllIdle.String(),
		HistoryCapacity:          100,
		FeedRefreshPollInterval:  core.DefaultFeedRefreshPollInterval,
		SourceReloadPollInterval: core.DefaultSourceReloadPollInterval,
		LogLevel:                 "info",
		Redis:                    RedisConfig{Channel: "feedagent:errors"},
		HTTP:                     HTTPConfig{Listen: ":8080"},
		Refresh:                  RefreshConfig{Interval: 15 * time.Minute},
		Demo: DemoConfig{
			Folders: 2,
			Feeds:   3,
			Posts:   5,
			Latency: 200 * time.Millisecond,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.TickInterval < 0 {
		errs = append(errs, fmt.Errorf("tick_interval must not be negative, got %s", c.TickInterval))
	}
	if c.HistoryCapacity < 0 {
		errs = append(errs, fmt.Errorf("history_capacity must not be negative, got %d", c.HistoryCapacity))
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"feed_refresh_poll_interval", c.FeedRefreshPollInterval},
		{"source_reload_poll_interval", c.SourceReloadPollInterval},
		{"refresh.interval", c.Refresh.Interval},
		{"demo.latency", c.Demo.Latency},
	} {
		if d.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", d.name, d.value))
		}
	}
	if _, err := core.ParseAdmissionPolicy(c.Admission); err != nil {
		errs = append(errs, err)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.Demo.Folders < 0 || c.Demo.Feeds < 0 || c.Demo.Posts < 0 {
		errs = append(errs, errors.New("demo counts must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) dispatcherConfig() core.DispatcherConfig {
	admission, _ := core.ParseAdmissionPolicy(c.Admission)
	return core.DispatcherConfig{
		Name:            c.Name,
		Workers:         c.Workers,
		TickInterval:    c.TickInterval,
		Admission:       admission,
		HistoryCapacity: c.HistoryCapacity,
	}
}
