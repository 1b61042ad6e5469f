/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inference.go
Description: Main entry point for exact inference over a built network. Provides the Engine
interface, the engine factory, per-engine and per-query options and the query validation
shared by every engine. Engines only read the network, so one engine may serve concurrent
queries.
*/

package inference

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/monitoring"
	"github.com/kleascm/bayesnet/pkg/network"
	"github.com/sirupsen/logrus"
)

// Engine names
const (
	EngineVariableElimination = "variable_elimination"
	EngineEnumeration         = "enumeration"
)

// Engine answers posterior queries P(targets | evidence)
type Engine interface {
	Name() string
	Query(ctx context.Context, targets []string, evidence factor.Evidence, opts ...Option) (*Distribution, error)
}

// NewEngine returns the engine registered under name
func NewEngine(name string, net *network.Network, opts ...Option) (Engine, error) {
	switch name {
	case "", EngineVariableElimination, "ve":
		return NewVariableElimination(net, opts...), nil
	case EngineEnumeration:
		return NewEnumeration(net, opts...), nil
	default:
		return nil, fmt.Errorf("unknown inference engine: %s", name)
	}
}

// Option configures an engine, or a single query when passed to Query
type Option func(*settings)

type settings struct {
	ordering Ordering
	order    []string
	metrics  *monitoring.Metrics
	logger   logrus.FieldLogger
}

func newSettings(opts []Option) settings {
	s := settings{ordering: MinNeighborsOrdering{}}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		s.logger = discard
	}
	return s
}

// with layers query options over the engine's settings
func (s settings) with(opts []Option) settings {
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithOrdering selects the elimination heuristic
func WithOrdering(o Ordering) Option {
	return func(s *settings) {
		if o != nil {
			s.ordering = o
		}
	}
}

// WithOrder fixes the elimination order; it must list every variable that is neither a
// target nor evidenced, exactly once
func WithOrder(names ...string) Option {
	return func(s *settings) { s.order = append([]string(nil), names...) }
}

// WithMetrics records query outcomes
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithLogger sets the query logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// MAP returns the most probable joint assignment of targets given evidence
func MAP(ctx context.Context, engine Engine, targets []string, evidence factor.Evidence, opts ...Option) (map[string]string, float64, error) {
	dist, err := engine.Query(ctx, targets, evidence, opts...)
	if err != nil {
		return nil, 0, err
	}
	assignment, p := dist.MostProbable()
	return assignment, p, nil
}

// validateQuery checks names, domains and the target/evidence split
func validateQuery(net *network.Network, targets []string, evidence factor.Evidence) error {
	if len(targets) == 0 {
		return bnerr.InvalidQuery("no target variables")
	}
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if _, err := net.Variable(t); err != nil {
			return err
		}
		if seen[t] {
			return bnerr.InvalidQuery("target %q listed twice", t)
		}
		seen[t] = true
	}
	for name, value := range evidence {
		v, err := net.Variable(name)
		if err != nil {
			return err
		}
		if _, err := v.CheckState(value); err != nil {
			return err
		}
		if seen[name] {
			return bnerr.InvalidQuery("%q is both a target and evidence", name)
		}
	}
	return nil
}

// hidden lists the variables to eliminate, in declaration order
func hidden(net *network.Network, targets []string, evidence factor.Evidence) []string {
	skip := make(map[string]bool, len(targets)+len(evidence))
	for _, t := range targets {
		skip[t] = true
	}
	for name := range evidence {
		skip[name] = true
	}
	var out []string
	for _, name := range net.Names() {
		if !skip[name] {
			out = append(out, name)
		}
	}
	return out
}

// restrictAll restricts every CPD by the evidence
func restrictAll(net *network.Network, evidence factor.Evidence) ([]*factor.Factor, error) {
	cpds := net.CPDs()
	factors := make([]*factor.Factor, 0, len(cpds))
	for _, cpd := range cpds {
		f, err := cpd.Factor().Restrict(evidence)
		if err != nil {
			return nil, err
		}
		factors = append(factors, f)
	}
	return factors, nil
}

// finish multiplies the remaining factors and normalizes over the targets
func finish(factors []*factor.Factor, targets []string, evidence factor.Evidence) (*Distribution, error) {
	joint := factor.Scalar(1)
	for _, f := range factors {
		var err error
		if joint, err = joint.Product(f); err != nil {
			return nil, err
		}
	}
	joint, err := joint.Reorder(targets...)
	if err != nil {
		return nil, fmt.Errorf("failed to align result with targets: %w", err)
	}
	posterior, err := joint.Normalize()
	if err != nil {
		return nil, &bnerr.InconsistentEvidenceError{Evidence: copyEvidence(evidence)}
	}
	return &Distribution{table: posterior, evidence: copyEvidence(evidence)}, nil
}

// observe records metrics and logs the outcome of one query
func observe(s settings, engine string, targets []string, evidence factor.Evidence, start time.Time, maxFactor int, err error) {
	elapsed := time.Since(start)
	s.metrics.ObserveQuery(engine, elapsed, err)
	if maxFactor > 0 {
		s.metrics.ObserveFactorSize(maxFactor)
	}
	entry := s.logger.WithFields(logrus.Fields{
		"engine":     engine,
		"targets":    targets,
		"evidence":   bnerr.FormatAssignment(evidence),
		"duration":   elapsed,
		"max_factor": maxFactor,
	})
	if err != nil {
		entry.WithError(err).Debug("Query failed")
		return
	}
	entry.Debug("Query answered")
}

func copyEvidence(evidence factor.Evidence) map[string]string {
	out := make(map[string]string, len(evidence))
	for k, v := range evidence {
		out[k] = v
	}
	return out
}
