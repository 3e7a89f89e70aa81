// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
)

// Config is the top-level Memlayer configuration.
type Config struct {
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Aggregates AggregatesConfig `mapstructure:"aggregates"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
}

// NetworkingConfig controls how Memlayer listens for connections.
type NetworkingConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// QuotaConfig sets the per-account daily admission limit.
type QuotaConfig struct {
	DailyLimit int `mapstructure:"daily_limit"`
}

// IngestConfig tunes the pipeline's persistence retry behavior.
type IngestConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

// AggregatesConfig controls bucket reconciliation.
type AggregatesConfig struct {
	// ReconcileInterval is how often incremental buckets are checked against
	// a fresh store scan. Zero disables reconciliation.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
}

// ClassifierConfig points at an optional yaml rules file extending the
// built-in platform aliases and decision keywords.
type ClassifierConfig struct {
	RulesPath string `mapstructure:"rules_path"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix MEMLAYER_).
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, memerr.Errorf(memerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, memerr.Errorf(memerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, memerr.Errorf(memerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// SetDefaults installs every default value on the given viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:18990")
	v.SetDefault("networking.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("storage.path", "memlayer.db")
	// Free tier: 100 memories per account per UTC day.
	v.SetDefault("quota.daily_limit", 100)
	v.SetDefault("ingest.retry_attempts", 3)
	v.SetDefault("ingest.retry_backoff", 50*time.Millisecond)
	v.SetDefault("aggregates.reconcile_interval", 5*time.Minute)
}

// SetupEnv binds MEMLAYER_-prefixed environment variables.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("MEMLAYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateQuota()...)
	errs = append(errs, c.validateIngest()...)
	errs = append(errs, c.validateAggregates()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, memerr.New(memerr.CodeConfigValidateInvalidValue, "config: networking.listen must not be empty"))
		return errs
	}

	host, portStr, err := net.SplitHostPort(c.Networking.Listen)
	if err != nil {
		errs = append(errs, memerr.Errorf(memerr.CodeConfigValidateInvalidValue,
			"config: networking.listen must be a valid host:port address, got %q: %w",
			c.Networking.Listen, err,
		))
		return errs
	}
	_ = host // host can be empty (e.g., ":8080"), which is valid

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, memerr.Errorf(memerr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, memerr.Errorf(memerr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	if c.Storage.Path == "" {
		errs = append(errs, memerr.New(memerr.CodeConfigValidateInvalidValue, "config: storage.path must not be empty"))
	}

	return errs
}

func (c *Config) validateQuota() []error {
	var errs []error

	if c.Quota.DailyLimit <= 0 {
		errs = append(errs, memerr.Errorf(memerr.CodeConfigValidateInvalidValue,
			"config: quota.daily_limit must be greater than 0, got %d", c.Quota.DailyLimit))
	}

	return errs
}

func (c *Config) validateIngest() []error {
	var errs []error

	if c.Ingest.RetryAttempts <= 0 {
		errs = append(errs, memerr.Errorf(memerr.CodeConfigValidateInvalidValue,
			"config: ingest.retry_attempts must be greater than 0, got %d", c.Ingest.RetryAttempts))
	}
	if c.Ingest.RetryBackoff < 0 {
		errs = append(errs, memerr.Errorf(memerr.CodeConfigValidateInvalidValue,
			"config: ingest.retry_backoff must not be negative, got %s", c.Ingest.RetryBackoff))
	}

	return errs
}

func (c *Config) validateAggregates() []error {
	var errs []error

	if c.Aggregates.ReconcileInterval < 0 {
		errs = append(errs, memerr.Errorf(memerr.CodeConfigValidateInvalidValue,
			"config: aggregates.reconcile_interval must not be negative, got %s", c.Aggregates.ReconcileInterval))
	}

	return errs
}
