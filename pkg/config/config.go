/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Application configuration. Values come from viper (config file, BAYESNET_*
environment variables and bound command-line flags) and are decoded into a typed Config
with defaults applied and validated before any command runs.
*/

package config

import (
	"fmt"
	"runtime"

	"github.com/kleascm/bayesnet/pkg/estimator"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/inference"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix read by viper
const EnvPrefix = "BAYESNET"

// Config is the typed application configuration
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogDir    string `mapstructure:"log_dir"`

	Estimation EstimationConfig `mapstructure:"estimation"`
	Inference  InferenceConfig  `mapstructure:"inference"`
	Store      StoreConfig      `mapstructure:"store"`
}

// EstimationConfig controls CPD estimation
type EstimationConfig struct {
	Tolerance float64 `mapstructure:"tolerance"`
	Policy    string  `mapstructure:"policy"`
	Alpha     float64 `mapstructure:"alpha"`
	Workers   int     `mapstructure:"workers"`
}

// InferenceConfig selects the query engine
type InferenceConfig struct {
	Engine   string `mapstructure:"engine"`
	Ordering string `mapstructure:"ordering"`
}

// StoreConfig locates the trained-model database
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "custom",
		LogDir:    "./logs",
		Estimation: EstimationConfig{
			Tolerance: factor.DefaultTolerance,
			Policy:    "uniform",
			Alpha:     1,
			Workers:   runtime.NumCPU(),
		},
		Inference: InferenceConfig{
			Engine:   inference.EngineVariableElimination,
			Ordering: inference.OrderingMinNeighbors,
		},
		Store: StoreConfig{Path: "./bayesnet.db"},
	}
}

// SetDefaults registers the defaults on v so unset keys decode to them
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_dir", d.LogDir)
	v.SetDefault("estimation.tolerance", d.Estimation.Tolerance)
	v.SetDefault("estimation.policy", d.Estimation.Policy)
	v.SetDefault("estimation.alpha", d.Estimation.Alpha)
	v.SetDefault("estimation.workers", d.Estimation.Workers)
	v.SetDefault("inference.engine", d.Inference.Engine)
	v.SetDefault("inference.ordering", d.Inference.Ordering)
	v.SetDefault("store.path", d.Store.Path)
}

// FromViper decodes and validates the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and that named policies, engines and orderings exist
func (c *Config) Validate() error {
	if c.Estimation.Tolerance <= 0 || c.Estimation.Tolerance >= 1 {
		return fmt.Errorf("estimation.tolerance must be in (0, 1), got %g", c.Estimation.Tolerance)
	}
	if c.Estimation.Workers < 0 {
		return fmt.Errorf("estimation.workers must not be negative, got %d", c.Estimation.Workers)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := c.Ordering(); err != nil {
		return err
	}
	switch c.Inference.Engine {
	case inference.EngineVariableElimination, inference.EngineEnumeration:
	default:
		return fmt.Errorf("unknown inference engine: %s", c.Inference.Engine)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	return nil
}

// Policy resolves the configured fallback policy
func (c *Config) Policy() (estimator.FallbackPolicy, error) {
	return estimator.PolicyByName(c.Estimation.Policy, c.Estimation.Alpha)
}

// Ordering resolves the configured elimination ordering
func (c *Config) Ordering() (inference.Ordering, error) {
	return inference.OrderingByName(c.Inference.Ordering)
}

// EstimatorConfig builds the estimator settings
func (c *Config) EstimatorConfig() (*estimator.Config, error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	return &estimator.Config{
		Tolerance: c.Estimation.Tolerance,
		Policy:    policy,
		Workers:   c.Estimation.Workers,
	}, nil
}
