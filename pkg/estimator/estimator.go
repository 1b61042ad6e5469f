/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: estimator.go
Description: CPD estimation from discretized data. Rows are counted into fixed-order
integer tables indexed by each variable's declared domain, every parent assignment in the
Cartesian product receives a column, unobserved assignments go through the fallback
policy and are reported, and drifting columns are reconciled against a tolerance.
*/

package estimator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/kleascm/bayesnet/pkg/dataset"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/monitoring"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config holds estimation settings
type Config struct {
	Tolerance float64             // allowed drift of a column sum from one
	Policy    FallbackPolicy      // fills unobserved parent assignments
	Workers   int                 // parallel CPDs in EstimateAll (0 = GOMAXPROCS)
	Metrics   *monitoring.Metrics // optional
}

// DefaultConfig returns the uniform-fallback configuration
func DefaultConfig() *Config {
	return &Config{
		Tolerance: factor.DefaultTolerance,
		Policy:    UniformPolicy{},
	}
}

// Fallback records one parent assignment that had no observations
type Fallback struct {
	Variable   string            `json:"variable"`
	Assignment map[string]string `json:"assignment"`
	Policy     string            `json:"policy"`
}

// Estimate is an estimated CPD plus everything that was substituted while building it
type Estimate struct {
	CPD          *factor.CPD
	Rows         int        // rows counted
	Fallbacks    []Fallback // unobserved parent assignments
	Renormalized int        // columns divided by their drifted total
	Forced       int        // zero-sum columns forced to uniform
}

// FellBack reports whether any column came from the fallback policy
func (e *Estimate) FellBack() bool { return len(e.Fallbacks) > 0 }

// Spec names a variable and its declared parents
type Spec struct {
	Variable factor.Variable
	Parents  []factor.Variable
}

// Estimator builds CPDs from tables
type Estimator struct {
	config *Config
	logger logrus.FieldLogger
}

// New creates an estimator; nil config means DefaultConfig, nil logger discards output.
// The estimator keeps its own copy of config.
func New(cfg *Config, logger logrus.FieldLogger) *Estimator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	config := *cfg
	if config.Policy == nil {
		config.Policy = UniformPolicy{}
	}
	if config.Tolerance <= 0 {
		config.Tolerance = factor.DefaultTolerance
	}
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Estimator{config: &config, logger: logger}
}

// EstimateCPD estimates P(variable | parents) from data
func (e *Estimator) EstimateCPD(data *dataset.Table, variable factor.Variable, parents []factor.Variable) (*Estimate, error) {
	childCol, err := e.column(data, variable)
	if err != nil {
		return nil, err
	}
	parentCols := make([]int, len(parents))
	strides := make([]int, len(parents))
	columns := 1
	for i := len(parents) - 1; i >= 0; i-- {
		if parents[i].Name() == variable.Name() {
			return nil, &bnerr.SchemaError{Variable: variable.Name(), Reason: "variable cannot be its own parent"}
		}
		if parentCols[i], err = e.column(data, parents[i]); err != nil {
			return nil, err
		}
		strides[i] = columns
		columns *= parents[i].Card()
	}

	counts := make([][]float64, columns)
	for j := range counts {
		counts[j] = make([]float64, variable.Card())
	}
	for r := 0; r < data.Len(); r++ {
		j := 0
		for i, p := range parents {
			idx, err := stateIndex(p, data.Cell(r, parentCols[i]), r)
			if err != nil {
				return nil, err
			}
			j += idx * strides[i]
		}
		c, err := stateIndex(variable, data.Cell(r, childCol), r)
		if err != nil {
			return nil, err
		}
		counts[j][c]++
	}

	est := &Estimate{Rows: data.Len()}
	probs := make([][]float64, columns)
	for j := range counts {
		col, fellBack := e.config.Policy.Column(counts[j])
		if fellBack {
			fb := Fallback{
				Variable:   variable.Name(),
				Assignment: decode(parents, j),
				Policy:     e.config.Policy.Name(),
			}
			est.Fallbacks = append(est.Fallbacks, fb)
			e.logger.WithFields(logrus.Fields{
				"variable":   fb.Variable,
				"assignment": bnerr.FormatAssignment(fb.Assignment),
				"policy":     fb.Policy,
			}).Debug("No observations for parent assignment, using fallback distribution")
		}
		probs[j] = e.reconcile(variable, parents, j, col, fellBack, est)
	}

	cpd, err := factor.NewCPDFromColumns(variable, parents, probs)
	if err != nil {
		return nil, err
	}
	est.CPD = cpd

	e.config.Metrics.ObserveEstimate(variable.Name(), len(est.Fallbacks), est.Renormalized+est.Forced)
	e.logger.WithFields(logrus.Fields{
		"variable":     variable.Name(),
		"parents":      cpd.ParentNames(),
		"rows":         est.Rows,
		"columns":      columns,
		"fallbacks":    len(est.Fallbacks),
		"renormalized": est.Renormalized,
		"forced":       est.Forced,
	}).Debug("CPD estimated")
	return est, nil
}

// reconcile renormalizes a column whose sum drifted past the tolerance, or forces it to
// uniform when its total is exactly zero and the fallback did not already fill it
func (e *Estimator) reconcile(variable factor.Variable, parents []factor.Variable, j int, col []float64, fellBack bool, est *Estimate) []float64 {
	total := 0.0
	for _, p := range col {
		total += p
	}
	if math.Abs(total-1) <= e.config.Tolerance {
		return col
	}

	fields := logrus.Fields{
		"variable":   variable.Name(),
		"assignment": bnerr.FormatAssignment(decode(parents, j)),
		"sum":        total,
	}
	if total == 0 && !fellBack {
		est.Forced++
		e.logger.WithFields(fields).Warn("CPD column sums to zero, forcing uniform")
		return uniform(len(col))
	}
	est.Renormalized++
	e.logger.WithFields(fields).Info("CPD column drifted, renormalizing")
	out := make([]float64, len(col))
	for i, p := range col {
		out[i] = p / total
	}
	return out
}

// EstimateAll estimates every spec concurrently; results keep spec order
func (e *Estimator) EstimateAll(ctx context.Context, data *dataset.Table, specs []Spec) ([]*Estimate, error) {
	workers := e.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*Estimate, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, spec := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			est, err := e.EstimateCPD(data, spec.Variable, spec.Parents)
			if err != nil {
				return fmt.Errorf("failed to estimate CPD for %q: %w", spec.Variable.Name(), err)
			}
			results[i] = est
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Estimator) column(data *dataset.Table, v factor.Variable) (int, error) {
	idx, err := data.ColumnIndex(v.Name())
	if errors.Is(err, dataset.ErrUnknownColumn) {
		return 0, &bnerr.SchemaError{Variable: v.Name(), Reason: "no such column in data"}
	}
	return idx, err
}

func stateIndex(v factor.Variable, label string, row int) (int, error) {
	idx, ok := v.Index(label)
	if !ok {
		return 0, &bnerr.SchemaError{
			Variable: v.Name(),
			Reason:   fmt.Sprintf("row %d holds %q, which is not in the domain %v", row, label, v.States()),
		}
	}
	return idx, nil
}

// decode turns a column index into parent labels
func decode(parents []factor.Variable, j int) map[string]string {
	out := make(map[string]string, len(parents))
	for i := len(parents) - 1; i >= 0; i-- {
		out[parents[i].Name()] = parents[i].State(j % parents[i].Card())
		j /= parents[i].Card()
	}
	return out
}
