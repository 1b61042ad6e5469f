/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: discretize.go
Description: Binning of continuous columns into categorical labels. Bins are right-closed
intervals (edge[i], edge[i+1]]; missing, unparsable and out-of-range values are assigned
to a declared fallback label so the estimator only ever sees domain states.
*/

package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Bins maps numeric values onto labelled right-closed intervals
type Bins struct {
	Edges    []float64
	Labels   []string
	Fallback string
}

// NewBins validates edges (strictly increasing) and labels (one per interval)
func NewBins(edges []float64, labels []string, fallback string) (*Bins, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("dataset: bins need at least two edges, got %d", len(edges))
	}
	if len(labels) != len(edges)-1 {
		return nil, fmt.Errorf("dataset: %d edges need %d labels, got %d", len(edges), len(edges)-1, len(labels))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return nil, fmt.Errorf("dataset: bin edges must increase strictly, %v <= %v", edges[i], edges[i-1])
		}
	}
	if fallback == "" {
		return nil, fmt.Errorf("dataset: bins need a fallback label")
	}
	return &Bins{
		Edges:    append([]float64(nil), edges...),
		Labels:   append([]string(nil), labels...),
		Fallback: fallback,
	}, nil
}

// Label returns the bin label for a raw cell; ok is false when the fallback was used
func (b *Bins) Label(raw string) (label string, ok bool) {
	if IsMissing(raw) {
		return b.Fallback, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return b.Fallback, false
	}
	for i := 1; i < len(b.Edges); i++ {
		if v > b.Edges[i-1] && v <= b.Edges[i] {
			return b.Labels[i-1], true
		}
	}
	return b.Fallback, false
}

// Apply bins a column and reports how many cells fell back
func (b *Bins) Apply(values []string) ([]string, int) {
	out := make([]string, len(values))
	fallbacks := 0
	for i, raw := range values {
		label, ok := b.Label(raw)
		if !ok {
			fallbacks++
		}
		out[i] = label
	}
	return out, fallbacks
}

// States returns the labels a binned column can take, fallback included
func (b *Bins) States() []string {
	states := append([]string(nil), b.Labels...)
	for _, l := range b.Labels {
		if l == b.Fallback {
			return states
		}
	}
	return append(states, b.Fallback)
}
