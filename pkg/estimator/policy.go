/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: policy.go
Description: Fallback policies that turn per-assignment counts into probability columns.
The policy decides what an unobserved parent assignment gets; the estimator records every
such substitution so it is never silent.
*/

package estimator

import "fmt"

// FallbackPolicy converts observed counts for one parent assignment into a column
type FallbackPolicy interface {
	Name() string
	// Column returns probabilities for counts; fallback is true when the column was
	// substituted because nothing was observed for the assignment
	Column(counts []float64) (probs []float64, fallback bool)
}

// UniformPolicy uses relative frequencies and a uniform column when nothing was observed
type UniformPolicy struct{}

func (UniformPolicy) Name() string { return "uniform" }

func (UniformPolicy) Column(counts []float64) ([]float64, bool) {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return uniform(len(counts)), true
	}
	probs := make([]float64, len(counts))
	for i, c := range counts {
		probs[i] = c / total
	}
	return probs, false
}

// LaplacePolicy adds Alpha pseudo-counts to every state of every column
type LaplacePolicy struct {
	Alpha float64
}

func (p LaplacePolicy) Name() string { return fmt.Sprintf("laplace(%g)", p.Alpha) }

func (p LaplacePolicy) Column(counts []float64) ([]float64, bool) {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return uniform(len(counts)), true
	}
	denom := total + p.Alpha*float64(len(counts))
	probs := make([]float64, len(counts))
	for i, c := range counts {
		probs[i] = (c + p.Alpha) / denom
	}
	return probs, false
}

// PolicyByName resolves a configured policy name
func PolicyByName(name string, alpha float64) (FallbackPolicy, error) {
	switch name {
	case "", "uniform":
		return UniformPolicy{}, nil
	case "laplace":
		if alpha <= 0 {
			return nil, fmt.Errorf("laplace policy needs a positive alpha, got %g", alpha)
		}
		return LaplacePolicy{Alpha: alpha}, nil
	default:
		return nil, fmt.Errorf("unknown fallback policy: %s", name)
	}
}

func uniform(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}
