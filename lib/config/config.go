// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/attrgroup"
	"github.com/wardenhq/warden/lib/reconcile/limiter"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the Warden engine.
type Config struct {
	// Environment identifies the deployment type (development,
	// staging, production).
	Environment Environment `yaml:"environment"`

	// Repository configures the template repository.
	Repository RepositoryConfig `yaml:"repository"`

	// Accounts configures where the managed account list comes from.
	Accounts AccountsConfig `yaml:"accounts"`

	// Reconcile configures the apply engine's provider limits.
	Reconcile ReconcileConfig `yaml:"reconcile"`

	// Retry configures the adapter-layer retry policy.
	Retry RetryConfig `yaml:"retry"`

	// Grouping configures attribute grouping during imports.
	Grouping GroupingConfig `yaml:"grouping"`

	// RunLog configures the reconciliation audit log.
	RunLog RunLogConfig `yaml:"run_log"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`

	// Environment-specific overrides, applied after the base config
	// is loaded when Environment matches the section name.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the sections that can be overridden per
// environment.
type Overrides struct {
	Repository *RepositoryConfig `yaml:"repository,omitempty"`
	Reconcile  *ReconcileConfig  `yaml:"reconcile,omitempty"`
	Retry      *RetryConfig      `yaml:"retry,omitempty"`
	Grouping   *GroupingConfig   `yaml:"grouping,omitempty"`
	RunLog     *RunLogConfig     `yaml:"run_log,omitempty"`
	Logging    *LoggingConfig    `yaml:"logging,omitempty"`
}

// RepositoryConfig configures the template repository.
type RepositoryConfig struct {
	// Dir is the repository working tree. Required.
	Dir string `yaml:"dir"`

	// TemplateSuffix marks template documents; other files are
	// invisible to change inference. Default: .json
	TemplateSuffix string `yaml:"template_suffix"`

	// ExcludedPathPrefixes lists repository path prefixes that never
	// hold templates (docs, CI configuration).
	ExcludedPathPrefixes []string `yaml:"excluded_path_prefixes"`

	// BlobCacheBytes bounds the in-memory cache of revision blobs.
	// Default: 64 MiB.
	BlobCacheBytes int64 `yaml:"blob_cache_bytes"`
}

// AccountsConfig configures the managed account list. Exactly one of
// File or Inline must be set.
type AccountsConfig struct {
	// File is a YAML document with a top-level "accounts" list.
	File string `yaml:"file,omitempty"`

	// Inline declares the accounts directly in the config file.
	Inline []account.Account `yaml:"inline,omitempty"`
}

// ReconcileConfig configures the apply engine's provider limits.
type ReconcileConfig struct {
	// ReadLimit bounds concurrent live-state fetches.
	// Default: 20.
	ReadLimit int64 `yaml:"read_limit"`

	// WriteLimit bounds concurrent provider mutations.
	// Default: 10.
	WriteLimit int64 `yaml:"write_limit"`
}

// RetryConfig configures the adapter-layer retry policy for throttled
// provider calls.
type RetryConfig struct {
	// Attempts is the total number of tries per call. Default: 10.
	Attempts int `yaml:"attempts"`

	// BaseDelay is the linear backoff unit as a Go duration string
	// ("1s", "250ms"). Attempt n waits (n-1) × BaseDelay.
	// Default: 1s.
	BaseDelay string `yaml:"base_delay"`
}

// BaseDelayDuration parses BaseDelay.
func (c RetryConfig) BaseDelayDuration() (time.Duration, error) {
	delay, err := time.ParseDuration(c.BaseDelay)
	if err != nil {
		return 0, fmt.Errorf("retry.base_delay: %w", err)
	}
	return delay, nil
}

// GroupingConfig configures attribute grouping during imports.
type GroupingConfig struct {
	// WildcardThreshold is the minimum number of accounts sharing a
	// value before a group covering every considered account is
	// written as ["*"]. Default: attrgroup.DefaultWildcardThreshold.
	WildcardThreshold int `yaml:"wildcard_threshold"`
}

// RunLogConfig configures the reconciliation audit log.
type RunLogConfig struct {
	// Path is the SQLite database file. Empty disables the run log
	// outside production; production requires it.
	Path string `yaml:"path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level"`
}

// SlogLevel maps Level onto a slog.Level. Unknown values map to Info;
// Validate rejects them before this matters.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file. They exist primarily to
// ensure all fields have sensible zero-values, not as a fallback —
// the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".cache", "warden")

	return &Config{
		Environment: Development,
		Repository: RepositoryConfig{
			TemplateSuffix: ".json",
			BlobCacheBytes: 64 << 20,
		},
		Reconcile: ReconcileConfig{
			ReadLimit:  limiter.DefaultReads,
			WriteLimit: limiter.DefaultWrites,
		},
		Retry: RetryConfig{
			Attempts:  10,
			BaseDelay: "1s",
		},
		Grouping: GroupingConfig{
			WildcardThreshold: attrgroup.DefaultWildcardThreshold,
		},
		RunLog: RunLogConfig{
			Path: filepath.Join(stateDir, "runs.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the WARDEN_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit
// path. There are no fallbacks or defaults — if WARDEN_CONFIG is not
// set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("WARDEN_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("WARDEN_CONFIG environment variable not set; " +
			"set it to the path of your warden.yaml config file")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment
// variables do not override config values. The only expansion
// performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Repository != nil {
		if overrides.Repository.Dir != "" {
			c.Repository.Dir = overrides.Repository.Dir
		}
		if overrides.Repository.TemplateSuffix != "" {
			c.Repository.TemplateSuffix = overrides.Repository.TemplateSuffix
		}
		if overrides.Repository.ExcludedPathPrefixes != nil {
			c.Repository.ExcludedPathPrefixes = overrides.Repository.ExcludedPathPrefixes
		}
		if overrides.Repository.BlobCacheBytes > 0 {
			c.Repository.BlobCacheBytes = overrides.Repository.BlobCacheBytes
		}
	}

	if overrides.Reconcile != nil {
		if overrides.Reconcile.ReadLimit > 0 {
			c.Reconcile.ReadLimit = overrides.Reconcile.ReadLimit
		}
		if overrides.Reconcile.WriteLimit > 0 {
			c.Reconcile.WriteLimit = overrides.Reconcile.WriteLimit
		}
	}

	if overrides.Retry != nil {
		if overrides.Retry.Attempts > 0 {
			c.Retry.Attempts = overrides.Retry.Attempts
		}
		if overrides.Retry.BaseDelay != "" {
			c.Retry.BaseDelay = overrides.Retry.BaseDelay
		}
	}

	if overrides.Grouping != nil {
		if overrides.Grouping.WildcardThreshold > 0 {
			c.Grouping.WildcardThreshold = overrides.Grouping.WildcardThreshold
		}
	}

	if overrides.RunLog != nil {
		if overrides.RunLog.Path != "" {
			c.RunLog.Path = overrides.RunLog.Path
		}
	}

	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Repository.Dir = expandVars(c.Repository.Dir, vars)
	c.Accounts.File = expandVars(c.Accounts.File, vars)
	c.RunLog.Path = expandVars(c.RunLog.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, checking
// the provided vars first, then the process environment, then the
// default.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Repository.Dir == "" {
		errs = append(errs, fmt.Errorf("repository.dir is required"))
	}
	if c.Repository.TemplateSuffix == "" {
		errs = append(errs, fmt.Errorf("repository.template_suffix is required"))
	}

	if c.Accounts.File != "" && len(c.Accounts.Inline) > 0 {
		errs = append(errs, fmt.Errorf("accounts.file and accounts.inline are mutually exclusive"))
	}
	if c.Accounts.File == "" && len(c.Accounts.Inline) == 0 {
		errs = append(errs, fmt.Errorf("either accounts.file or accounts.inline is required"))
	}

	if c.Reconcile.ReadLimit < limiter.MinLimit || c.Reconcile.ReadLimit > limiter.MaxLimit {
		errs = append(errs, fmt.Errorf("reconcile.read_limit %d outside %d-%d",
			c.Reconcile.ReadLimit, limiter.MinLimit, limiter.MaxLimit))
	}
	if c.Reconcile.WriteLimit < limiter.MinLimit || c.Reconcile.WriteLimit > limiter.MaxLimit {
		errs = append(errs, fmt.Errorf("reconcile.write_limit %d outside %d-%d",
			c.Reconcile.WriteLimit, limiter.MinLimit, limiter.MaxLimit))
	}

	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry.attempts must be at least 1"))
	}
	if delay, err := c.Retry.BaseDelayDuration(); err != nil {
		errs = append(errs, err)
	} else if delay <= 0 {
		errs = append(errs, fmt.Errorf("retry.base_delay must be positive"))
	}

	if c.Grouping.WildcardThreshold < 1 {
		errs = append(errs, fmt.Errorf("grouping.wildcard_threshold must be at least 1"))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", levels))
	}

	// Production runs must be auditable.
	if c.Environment == Production && c.RunLog.Path == "" {
		errs = append(errs, fmt.Errorf("run_log.path is required in production"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// accountsDocument is the on-disk shape of the accounts file.
type accountsDocument struct {
	Accounts []account.Account `yaml:"accounts"`
}

// LoadAccounts builds the account set from whichever source the
// configuration names.
func (c *Config) LoadAccounts() (*account.Set, error) {
	switch {
	case c.Accounts.File != "" && len(c.Accounts.Inline) > 0:
		return nil, fmt.Errorf("accounts.file and accounts.inline are mutually exclusive")

	case c.Accounts.File != "":
		data, err := os.ReadFile(c.Accounts.File)
		if err != nil {
			return nil, fmt.Errorf("reading accounts file: %w", err)
		}
		var document accountsDocument
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", c.Accounts.File, err)
		}
		return account.NewSet(document.Accounts)

	case len(c.Accounts.Inline) > 0:
		return account.NewSet(c.Accounts.Inline)

	default:
		return nil, fmt.Errorf("no accounts configured")
	}
}

// EnsureStateDir creates the directory holding the run log, if one is
// configured.
func (c *Config) EnsureStateDir() error {
	if c.RunLog.Path == "" {
		return nil
	}
	dir := filepath.Dir(c.RunLog.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
