/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the bayesnet commands. Provides configuration loading,
logging setup, model loading from files or the store and evidence parsing used across all
command implementations.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kleascm/bayesnet/pkg/config"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/logging"
	"github.com/kleascm/bayesnet/pkg/monitoring"
	"github.com/kleascm/bayesnet/pkg/network"
	"github.com/kleascm/bayesnet/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	metricsOnce sync.Once
	metrics     *monitoring.Metrics
)

// Metrics returns the process-wide collectors
func Metrics() *monitoring.Metrics {
	metricsOnce.Do(func() { metrics = monitoring.NewMetrics("bayesnet") })
	return metrics
}

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	return nil
}

// AppConfig decodes the typed configuration
func AppConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

// SetupLogging builds the run logger from the configuration
func SetupLogging(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.DefaultConfig()
	lc.Level = logging.LogLevel(cfg.LogLevel)
	lc.Format = logging.LogFormat(cfg.LogFormat)
	lc.OutputDir = cfg.LogDir
	logger, err := logging.NewLogger(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// setup runs the common preamble of every command
func setup() (*config.Config, *logging.Logger, error) {
	if err := LoadConfig(); err != nil {
		return nil, nil, err
	}
	cfg, err := AppConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := SetupLogging(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// ParseEvidence turns ["Sex=female", "Pclass=1"] into evidence
func ParseEvidence(pairs []string) (factor.Evidence, error) {
	evidence := make(factor.Evidence, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("evidence must look like Variable=state, got %q", pair)
		}
		if prev, dup := evidence[name]; dup && prev != value {
			return nil, fmt.Errorf("conflicting evidence for %s: %q and %q", name, prev, value)
		}
		evidence[name] = value
	}
	return evidence, nil
}

// loadNetwork reads --model-file if set, otherwise --model from the store
func loadNetwork(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger logrus.FieldLogger) (*network.Network, string, error) {
	opt := network.WithTolerance(cfg.Estimation.Tolerance)

	if path, _ := cmd.Flags().GetString("model-file"); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open model file: %w", err)
		}
		defer file.Close()
		net, doc, err := network.Decode(file, network.FormatForPath(path), opt)
		if err != nil {
			return nil, "", err
		}
		logger.WithFields(logrus.Fields{"file": path, "variables": len(net.Names())}).Info("Model loaded from file")
		name := doc.Name
		if name == "" {
			name = path
		}
		return net, name, nil
	}

	ref, _ := cmd.Flags().GetString("model")
	if ref == "" {
		return nil, "", fmt.Errorf("either --model or --model-file is required")
	}
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, "", err
	}
	defer s.Close()
	net, rec, err := s.Load(ctx, ref, opt)
	if err != nil {
		return nil, "", err
	}
	logger.WithFields(logrus.Fields{"id": rec.ID, "name": rec.Name, "store": s.Path()}).Info("Model loaded from store")
	return net, rec.Name, nil
}

// writeMetrics dumps the collectors when --metrics-file is set
func writeMetrics() error {
	path := viper.GetString("metrics_file")
	if path == "" {
		return nil
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer file.Close()
	return Metrics().Dump(file)
}

// AddModelFlags registers the flags that select a trained model
func AddModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "Stored model ID or name")
	cmd.Flags().String("model-file", "", "Network document (.json, .yaml)")
}
