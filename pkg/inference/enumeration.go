/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: enumeration.go
Description: Inference by enumeration. Builds the full joint of the restricted factors and
marginalizes it. Exponential in the number of hidden variables; kept as a reference engine
for cross-checking variable elimination on small networks.
*/

package inference

import (
	"context"
	"time"

	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/network"
)

// Enumeration answers queries from the full joint table
type Enumeration struct {
	net      *network.Network
	settings settings
}

// NewEnumeration creates an enumeration engine over net
func NewEnumeration(net *network.Network, opts ...Option) *Enumeration {
	return &Enumeration{net: net, settings: newSettings(opts)}
}

func (en *Enumeration) Name() string { return EngineEnumeration }

// Query computes P(targets | evidence); ordering options are ignored
func (en *Enumeration) Query(ctx context.Context, targets []string, evidence factor.Evidence, opts ...Option) (dist *Distribution, err error) {
	s := en.settings.with(opts)
	start := time.Now()
	size := 0
	defer func() { observe(s, en.Name(), targets, evidence, start, size, err) }()

	if err := validateQuery(en.net, targets, evidence); err != nil {
		return nil, err
	}
	factors, err := restrictAll(en.net, evidence)
	if err != nil {
		return nil, err
	}

	joint := factor.Scalar(1)
	for _, f := range factors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if joint, err = joint.Product(f); err != nil {
			return nil, err
		}
	}
	size = joint.Size()

	for _, name := range hidden(en.net, targets, evidence) {
		if joint, err = joint.SumOut(name); err != nil {
			return nil, err
		}
	}
	return finish([]*factor.Factor{joint}, targets, evidence)
}
