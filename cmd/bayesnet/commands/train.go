/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: train.go
Description: Train command implementation. Loads a dataset, discretizes it according to a
model description, estimates every CPD in parallel, assembles and validates the network,
then saves it to the store and/or a document file and writes a model report.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kleascm/bayesnet/pkg/config"
	"github.com/kleascm/bayesnet/pkg/dataset"
	"github.com/kleascm/bayesnet/pkg/estimator"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/network"
	"github.com/kleascm/bayesnet/pkg/reporting"
	"github.com/kleascm/bayesnet/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// TrainResult is what a training run produced
type TrainResult struct {
	Network   *network.Network
	Estimates []*estimator.Estimate
	Rows      int
	Name      string
}

// Train runs the dataset -> network pipeline
func Train(ctx context.Context, table *dataset.Table, spec *config.ModelSpec, cfg *config.Config, logger logrus.FieldLogger) (*TrainResult, error) {
	prepared, err := spec.Prepare(table)
	if err != nil {
		return nil, err
	}
	for variable, n := range prepared.Fallbacks {
		if n > 0 {
			logger.WithFields(logrus.Fields{"variable": variable, "cells": n}).Info("Missing or out-of-range values relabelled")
		}
	}

	specs, err := spec.Specs(prepared.Registry)
	if err != nil {
		return nil, err
	}
	estConfig, err := cfg.EstimatorConfig()
	if err != nil {
		return nil, err
	}
	estConfig.Metrics = Metrics()

	estimates, err := estimator.New(estConfig, logger).EstimateAll(ctx, prepared.Data, specs)
	if err != nil {
		return nil, err
	}

	cpds := make([]*factor.CPD, len(estimates))
	for i, est := range estimates {
		cpds[i] = est.CPD
	}
	net, err := network.Build(prepared.Registry.Variables(), spec.Edges, cpds, network.WithTolerance(cfg.Estimation.Tolerance))
	if err != nil {
		return nil, err
	}
	return &TrainResult{Network: net, Estimates: estimates, Rows: prepared.Data.Len(), Name: spec.Name}, nil
}

// RunTrain implements the train command
func RunTrain(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Close()
	logger := log.GetLogger()
	out := cmd.OutOrStdout()

	dataPath, _ := cmd.Flags().GetString("data")
	format, _ := cmd.Flags().GetString("format")
	specPath, _ := cmd.Flags().GetString("model-spec")
	name, _ := cmd.Flags().GetString("name")
	outPath, _ := cmd.Flags().GetString("out")
	save, _ := cmd.Flags().GetBool("save")
	reportDir, _ := cmd.Flags().GetString("report-dir")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	spec := config.TitanicModel()
	if specPath != "" {
		if spec, err = config.LoadModelSpec(specPath); err != nil {
			return err
		}
	}
	if name != "" {
		spec.Name = name
	}

	fmt.Fprintln(out, "Bayesian Network - Train")
	fmt.Fprintln(out, "========================")
	fmt.Fprintf(out, "Data:  %s\n", dataPath)
	fmt.Fprintf(out, "Model: %s (%d variables, %d edges)\n\n", spec.Name, len(spec.Variables), len(spec.Edges))

	start := time.Now()
	source := dataset.NewFileSource(spec.Name, "training data", dataPath, format, timeout)
	table, err := source.Fetch(cmd.Context())
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"source": dataPath, "rows": table.Len(), "columns": len(table.Columns())}).Info("Dataset loaded")

	result, err := Train(cmd.Context(), table, spec, cfg, logger)
	if err != nil {
		return err
	}
	for _, est := range result.Estimates {
		log.LogEstimate(est.CPD.Child().Name(), est.CPD.ParentNames(), est.Rows, len(est.Fallbacks), est.Renormalized+est.Forced)
		for _, fb := range est.Fallbacks {
			log.LogFallback(fb.Variable, fb.Assignment, fb.Policy)
		}
	}

	fmt.Fprintf(out, "Estimated %d CPDs from %d rows in %v\n", len(result.Estimates), result.Rows, time.Since(start).Round(time.Millisecond))
	for _, est := range result.Estimates {
		if est.FellBack() {
			fmt.Fprintf(out, "  %s: %d of %d parent assignments unobserved, filled by %s\n",
				est.CPD.Child().Name(), len(est.Fallbacks), est.CPD.NumColumns(), est.Fallbacks[0].Policy)
		}
	}

	if outPath != "" {
		file, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create model file: %w", err)
		}
		if err := network.Encode(file, result.Network, spec.Name, network.FormatForPath(outPath)); err != nil {
			file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Model written to %s\n", outPath)
	}

	if save {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer s.Close()
		rec, err := s.Save(cmd.Context(), spec.Name, result.Network)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"id": rec.ID, "name": rec.Name, "store": s.Path()}).Info("Model saved")
		fmt.Fprintf(out, "Model saved as %s (%s)\n", rec.ID, rec.Name)
	}

	if reportDir != "" {
		gen, err := reporting.NewGenerator(reportDir, logger)
		if err != nil {
			return err
		}
		paths, err := gen.WriteModelReport(reporting.NewModelReport(spec.Name, result.Network, result.Rows, result.Estimates))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Report: %s\n", paths[1])
	}

	return writeMetrics()
}
