/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for bayesnet. Trains discrete Bayesian networks
from tabular data, stores them, and answers posterior queries by variable elimination,
with configuration from flags, files and BAYESNET_* environment variables.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kleascm/bayesnet/cmd/bayesnet/commands"
	"github.com/kleascm/bayesnet/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile  string
	logLevel    string
	logFormat   string
	logDir      string
	metricsFile string

	// Estimation configuration
	tolerance float64
	policy    string
	alpha     float64
	workers   int

	// Inference configuration
	engine   string
	ordering string

	// Storage configuration
	storePath string
)

func main() {
	defaults := config.Default()

	// Create root command
	rootCmd := &cobra.Command{
		Use:   "bayesnet",
		Short: "bayesnet - discrete Bayesian networks from tabular data",
		Long: `bayesnet learns conditional probability tables for a fixed network structure
from a dataset, checks that every table is a proper distribution, and answers
posterior queries P(targets | evidence) by variable elimination.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaults.LogLevel, "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", defaults.LogFormat, "Log format (text, json, custom)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", defaults.LogDir, "Log output directory")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the command")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", defaults.Store.Path, "SQLite database holding trained models")

	// Add estimation flags
	rootCmd.PersistentFlags().Float64Var(&tolerance, "tolerance", defaults.Estimation.Tolerance, "Allowed drift of a CPD column sum from 1")
	rootCmd.PersistentFlags().StringVar(&policy, "policy", defaults.Estimation.Policy, "Fallback for unobserved parent assignments (uniform, laplace)")
	rootCmd.PersistentFlags().Float64Var(&alpha, "alpha", defaults.Estimation.Alpha, "Pseudo-count for the laplace policy")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Parallel CPD estimators (0 = auto-detect)")

	// Add inference flags
	rootCmd.PersistentFlags().StringVar(&engine, "engine", defaults.Inference.Engine, "Inference engine (variable_elimination, enumeration)")
	rootCmd.PersistentFlags().StringVar(&ordering, "ordering", defaults.Inference.Ordering, "Elimination ordering (min-neighbors, min-weight, declaration, reverse)")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("metrics_file", rootCmd.PersistentFlags().Lookup("metrics-file"))
	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("estimation.tolerance", rootCmd.PersistentFlags().Lookup("tolerance"))
	viper.BindPFlag("estimation.policy", rootCmd.PersistentFlags().Lookup("policy"))
	viper.BindPFlag("estimation.alpha", rootCmd.PersistentFlags().Lookup("alpha"))
	viper.BindPFlag("estimation.workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("inference.engine", rootCmd.PersistentFlags().Lookup("engine"))
	viper.BindPFlag("inference.ordering", rootCmd.PersistentFlags().Lookup("ordering"))

	// Add train command
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Estimate every CPD of a model from a dataset",
		Long: `Load a dataset (CSV, TSV, JSON records or an HTML table, local or over HTTP),
discretize it according to a model description, estimate each conditional probability
table by counting, and assemble a validated network. Parent assignments never seen in
the data are filled by the fallback policy and reported.`,
		RunE: commands.RunTrain,
	}
	trainCmd.Flags().String("data", "", "Dataset path or URL (required)")
	trainCmd.Flags().String("format", "", "Dataset format (csv, tsv, json, html); inferred from the extension when empty")
	trainCmd.Flags().String("model-spec", "", "YAML model description (default: built-in Titanic model)")
	trainCmd.Flags().String("name", "", "Override the model name")
	trainCmd.Flags().String("out", "", "Write the trained network to this .json or .yaml file")
	trainCmd.Flags().Bool("save", true, "Save the trained network to the store")
	trainCmd.Flags().String("report-dir", "", "Write JSON and HTML model reports under this directory")
	trainCmd.Flags().Duration("timeout", 30*time.Second, "Timeout for fetching a remote dataset")
	trainCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(trainCmd)

	// Add query command
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Compute P(targets | evidence) on a trained model",
		Long: `Answer a posterior query on a trained network. Evidence is given as
Variable=state pairs. The result is the normalized joint distribution of the targets.`,
		RunE: commands.RunQuery,
	}
	queryCmd.Flags().StringSlice("target", []string{}, "Query variables (required)")
	queryCmd.Flags().StringSlice("evidence", []string{}, "Observed values (e.g. Sex=female,Pclass=1)")
	queryCmd.Flags().StringSlice("order", []string{}, "Explicit elimination order of the hidden variables")
	queryCmd.Flags().Bool("map", false, "Also print the most probable target assignment")
	queryCmd.Flags().String("report-dir", "", "Write JSON and HTML query reports under this directory")
	queryCmd.MarkFlagRequired("target")
	commands.AddModelFlags(queryCmd)
	rootCmd.AddCommand(queryCmd)

	// Add inspect command
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the structure and CPD tables of a model",
		RunE:  commands.RunInspect,
	}
	commands.AddModelFlags(inspectCmd)
	rootCmd.AddCommand(inspectCmd)

	// Add check command
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a trained model",
		Long: `Reload a model, which re-runs the structural checks (known variables, acyclic
graph, one CPD per variable matching its parents), and verify every CPD column sums to 1.`,
		RunE: commands.RunCheck,
	}
	commands.AddModelFlags(checkCmd)
	rootCmd.AddCommand(checkCmd)

	// Add models command
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List or delete stored models",
		RunE:  commands.RunModels,
	}
	modelsCmd.Flags().String("delete", "", "Delete the stored model with this ID")
	rootCmd.AddCommand(modelsCmd)

	// Add describe-model command
	describeCmd := &cobra.Command{
		Use:   "describe-model",
		Short: "Print a model description as YAML",
		Long: `Print the built-in Titanic model description, or a given one after validation.
The output is a starting point for --model-spec.`,
		RunE: commands.RunDescribeModel,
	}
	describeCmd.Flags().String("model-spec", "", "YAML model description to validate and print")
	rootCmd.AddCommand(describeCmd)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
