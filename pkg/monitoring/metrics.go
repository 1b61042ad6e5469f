/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics.go
Description: Prometheus metrics for estimation and inference. Each Metrics value owns a
private registry so several engines (and tests) can coexist in one process; Dump writes the
text exposition format for batch runs that have no scrape endpoint.
*/

package monitoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Query results used as label values
const (
	ResultOK           = "ok"
	ResultInconsistent = "inconsistent_evidence"
	ResultInvalid      = "invalid"
	ResultCanceled     = "canceled"
	ResultError        = "error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	factorSize    prometheus.Histogram
	cpds          prometheus.Counter
	fallbacks     *prometheus.CounterVec
	renormalized  *prometheus.CounterVec
}

// NewMetrics creates collectors under namespace in a fresh registry
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Inference queries by engine and result",
		}, []string{"engine", "result"}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Inference query latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"engine"}),
		factorSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "intermediate_factor_entries",
			Help:      "Table size of the largest intermediate factor per query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		cpds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cpds_estimated_total",
			Help:      "CPDs estimated from data",
		}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cpd_fallback_columns_total",
			Help:      "Parent assignments filled by the fallback policy",
		}, []string{"variable"}),
		renormalized: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cpd_renormalized_columns_total",
			Help:      "CPD columns renormalized or forced uniform after drift",
		}, []string{"variable"}),
	}
}

// Registry exposes the underlying registry, e.g. for promhttp
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveQuery records one query outcome
func (m *Metrics) ObserveQuery(engine string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(engine, QueryResult(err)).Inc()
	m.queryDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

// ObserveFactorSize records the largest intermediate factor of a query
func (m *Metrics) ObserveFactorSize(entries int) {
	if m == nil {
		return
	}
	m.factorSize.Observe(float64(entries))
}

// ObserveEstimate records one estimated CPD
func (m *Metrics) ObserveEstimate(variable string, fallbacks, renormalized int) {
	if m == nil {
		return
	}
	m.cpds.Inc()
	m.fallbacks.WithLabelValues(variable).Add(float64(fallbacks))
	m.renormalized.WithLabelValues(variable).Add(float64(renormalized))
}

// Dump writes every metric family in the text exposition format
func (m *Metrics) Dump(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// QueryResult maps a query error to its result label
func QueryResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, bnerr.ErrInconsistentEvidence):
		return ResultInconsistent
	case errors.Is(err, bnerr.ErrInvalidQuery), errors.Is(err, bnerr.ErrEvidenceDomain), errors.Is(err, bnerr.ErrSchema):
		return ResultInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	default:
		return ResultError
	}
}
