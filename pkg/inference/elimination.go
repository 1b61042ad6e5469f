/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: elimination.go
Description: Variable elimination. CPD factors are restricted by the evidence, then every
hidden variable is eliminated in turn by multiplying the factors that mention it and summing
it out. What remains is multiplied, aligned with the target order and normalized.
*/

package inference

import (
	"context"
	"time"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/network"
)

// VariableElimination is the default exact engine
type VariableElimination struct {
	net      *network.Network
	settings settings
}

// NewVariableElimination creates an engine over net
func NewVariableElimination(net *network.Network, opts ...Option) *VariableElimination {
	return &VariableElimination{net: net, settings: newSettings(opts)}
}

func (ve *VariableElimination) Name() string { return EngineVariableElimination }

// Query computes P(targets | evidence) as a normalized factor over targets in the given order
func (ve *VariableElimination) Query(ctx context.Context, targets []string, evidence factor.Evidence, opts ...Option) (dist *Distribution, err error) {
	s := ve.settings.with(opts)
	start := time.Now()
	maxFactor := 0
	defer func() { observe(s, ve.Name(), targets, evidence, start, maxFactor, err) }()

	if err := validateQuery(ve.net, targets, evidence); err != nil {
		return nil, err
	}
	factors, err := restrictAll(ve.net, evidence)
	if err != nil {
		return nil, err
	}

	order, err := eliminationOrder(s, hidden(ve.net, targets, evidence), factors)
	if err != nil {
		return nil, err
	}

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var mentioning, rest []*factor.Factor
		for _, f := range factors {
			if f.Contains(name) {
				mentioning = append(mentioning, f)
			} else {
				rest = append(rest, f)
			}
		}
		if len(mentioning) == 0 {
			continue
		}
		product := mentioning[0]
		for _, f := range mentioning[1:] {
			if product, err = product.Product(f); err != nil {
				return nil, err
			}
		}
		if product.Size() > maxFactor {
			maxFactor = product.Size()
		}
		summed, err := product.SumOut(name)
		if err != nil {
			return nil, err
		}
		factors = append(rest, summed)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return finish(factors, targets, evidence)
}

// eliminationOrder validates an explicit order or asks the heuristic for one
func eliminationOrder(s settings, eliminate []string, factors []*factor.Factor) ([]string, error) {
	if s.order == nil {
		return s.ordering.Order(eliminate, factors), nil
	}
	need := make(map[string]bool, len(eliminate))
	for _, name := range eliminate {
		need[name] = true
	}
	for _, name := range s.order {
		if !need[name] {
			return nil, bnerr.InvalidQuery("elimination order names %q, which is not a hidden variable or is repeated", name)
		}
		delete(need, name)
	}
	for _, name := range eliminate {
		if need[name] {
			return nil, bnerr.InvalidQuery("elimination order is missing %q", name)
		}
	}
	return append([]string(nil), s.order...), nil
}
