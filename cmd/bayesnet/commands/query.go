/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: query.go
Description: Query command implementation. Loads a trained model, answers P(targets |
evidence) with the configured engine and ordering, prints the posterior table and
optionally the most probable assignment and a query report.
*/

package commands

import (
	"fmt"
	"time"

	"github.com/kleascm/bayesnet/pkg/inference"
	"github.com/kleascm/bayesnet/pkg/reporting"
	"github.com/spf13/cobra"
)

// RunQuery implements the query command
func RunQuery(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Close()
	logger := log.GetLogger()
	out := cmd.OutOrStdout()

	targets, _ := cmd.Flags().GetStringSlice("target")
	pairs, _ := cmd.Flags().GetStringSlice("evidence")
	order, _ := cmd.Flags().GetStringSlice("order")
	showMAP, _ := cmd.Flags().GetBool("map")
	reportDir, _ := cmd.Flags().GetString("report-dir")

	evidence, err := ParseEvidence(pairs)
	if err != nil {
		return err
	}
	ordering, err := cfg.Ordering()
	if err != nil {
		return err
	}

	net, modelName, err := loadNetwork(cmd.Context(), cmd, cfg, logger)
	if err != nil {
		return err
	}
	opts := []inference.Option{
		inference.WithOrdering(ordering),
		inference.WithMetrics(Metrics()),
		inference.WithLogger(logger),
	}
	if len(order) > 0 {
		opts = append(opts, inference.WithOrder(order...))
	}
	engine, err := inference.NewEngine(cfg.Inference.Engine, net, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	dist, err := engine.Query(cmd.Context(), targets, evidence)
	elapsed := time.Since(start)
	log.LogQuery(engine.Name(), targets, evidence, elapsed, err)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, dist.String())
	if showMAP {
		best, p := dist.MostProbable()
		fmt.Fprintf(out, "Most probable: %v (%.4f)\n", best, p)
	}

	if reportDir != "" {
		gen, err := reporting.NewGenerator(reportDir, logger)
		if err != nil {
			return err
		}
		paths, err := gen.WriteQueryReport(reporting.NewQueryReport(modelName, engine.Name(), dist, elapsed))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Report: %s\n", paths[1])
	}

	return writeMetrics()
}
