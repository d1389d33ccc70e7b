package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// GitLabConfig holds settings for the GitLab (glab) source.
type GitLabConfig struct {
	// Group scopes merge request queries. Required for the GitLab
	// source to produce results.
	Group string `mapstructure:"group" yaml:"group"`
}

// JiraConfig holds settings for the Jira (acli) source.
type JiraConfig struct {
	// JQL overrides the default "assigned to me, not done" query.
	JQL string `mapstructure:"jql" yaml:"jql"`
}

// TodoistConfig holds settings for the Todoist REST source.
type TodoistConfig struct {
	// Projects is an optional allow-list of project names.
	Projects []string `mapstructure:"projects" yaml:"projects"`

	// ShowCompleted includes completed tasks in the work section.
	ShowCompleted bool `mapstructure:"show_completed" yaml:"show_completed"`

	// ShowCompletedFor windows completed tasks to a recent period.
	// One of "24h", "48h", "72h", "7days". Empty means no window.
	ShowCompletedFor string `mapstructure:"show_completed_for" yaml:"show_completed_for"`
}

// FetchConfig holds executor policy values.
type FetchConfig struct {
	// TimeoutSec bounds every external command or request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxConcurrent caps simultaneous external calls process-wide.
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

// CacheConfig holds settings for the local SQLite item cache.
type CacheConfig struct {
	// TTLSec is how long cached section data counts as fresh.
	TTLSec int `mapstructure:"ttl_sec" yaml:"ttl_sec"`
}

// DisplayConfig holds UI preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	GitLab  GitLabConfig  `mapstructure:"gitlab" yaml:"gitlab"`
	Jira    JiraConfig    `mapstructure:"jira" yaml:"jira"`
	Todoist TodoistConfig `mapstructure:"todoist" yaml:"todoist"`
	Fetch   FetchConfig   `mapstructure:"fetch" yaml:"fetch"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// completedWindows maps the accepted show_completed_for values to durations.
var completedWindows = map[string]time.Duration{
	"24h":   24 * time.Hour,
	"48h":   48 * time.Hour,
	"72h":   72 * time.Hour,
	"7days": 7 * 24 * time.Hour,
}

// CompletedWindow returns the configured completed-task window, or zero
// when none is set. LoadConfig guarantees the value is valid.
func (c TodoistConfig) CompletedWindow() time.Duration {
	return completedWindows[c.ShowCompletedFor]
}

// FetchTimeout returns the per-call timeout as a duration.
func (c FetchConfig) FetchTimeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// TTL returns the cache freshness window as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// DefaultConfigPath returns the default configuration file location,
// ~/.config/monodash/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "monodash", "config.yaml")
}

// defaultAppConfig returns the built-in defaults.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Fetch:   FetchConfig{TimeoutSec: 30, MaxConcurrent: 3},
		Cache:   CacheConfig{TTLSec: 300},
		Display: DisplayConfig{Theme: "default"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper
// and applies environment overrides (MONODASH_GITLAB_GROUP,
// MONODASH_JIRA_JQL). A missing file yields the defaults. Invalid values,
// including an unrecognized todoist.show_completed_for window, are rejected
// here rather than at fetch time.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("fetch.timeout_sec", 30)
	v.SetDefault("fetch.max_concurrent", 3)
	v.SetDefault("cache.ttl_sec", 300)
	v.SetDefault("display.theme", "default")

	cfg := defaultAppConfig()

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if group := os.Getenv("MONODASH_GITLAB_GROUP"); group != "" {
		cfg.GitLab.Group = group
	}
	if jql := os.Getenv("MONODASH_JIRA_JQL"); jql != "" {
		cfg.Jira.JQL = jql
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *AppConfig) validate() error {
	if w := c.Todoist.ShowCompletedFor; w != "" {
		if _, ok := completedWindows[w]; !ok {
			return fmt.Errorf(
				"todoist.show_completed_for: %q is not one of 24h, 48h, 72h, 7days", w,
			)
		}
	}
	if c.Fetch.TimeoutSec <= 0 {
		return fmt.Errorf("fetch.timeout_sec must be positive, got %d", c.Fetch.TimeoutSec)
	}
	if c.Fetch.MaxConcurrent <= 0 {
		return fmt.Errorf("fetch.max_concurrent must be positive, got %d", c.Fetch.MaxConcurrent)
	}
	if c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache.ttl_sec must not be negative, got %d", c.Cache.TTLSec)
	}
	return nil
}
