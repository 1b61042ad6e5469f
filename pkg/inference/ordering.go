/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: ordering.go
Description: Elimination ordering heuristics. The result of variable elimination does not
depend on the order, only the size of the intermediate factors does, so every heuristic here
is interchangeable. Greedy heuristics work on the interaction graph of the restricted factors.
*/

package inference

import (
	"fmt"

	"github.com/kleascm/bayesnet/pkg/factor"
)

// Ordering names for configuration
const (
	OrderingDeclaration  = "declaration"
	OrderingReverse      = "reverse"
	OrderingMinNeighbors = "min-neighbors"
	OrderingMinWeight    = "min-weight"
)

// Ordering chooses the order in which to eliminate variables.
// eliminate arrives in declaration order and the result must be a permutation of it.
type Ordering interface {
	Name() string
	Order(eliminate []string, factors []*factor.Factor) []string
}

// DeclarationOrdering eliminates in declaration order
type DeclarationOrdering struct{}

func (DeclarationOrdering) Name() string { return OrderingDeclaration }

func (DeclarationOrdering) Order(eliminate []string, _ []*factor.Factor) []string {
	return append([]string(nil), eliminate...)
}

// ReverseOrdering eliminates in reverse declaration order, leaves of a topologically
// declared network first
type ReverseOrdering struct{}

func (ReverseOrdering) Name() string { return OrderingReverse }

func (ReverseOrdering) Order(eliminate []string, _ []*factor.Factor) []string {
	out := make([]string, len(eliminate))
	for i, name := range eliminate {
		out[len(eliminate)-1-i] = name
	}
	return out
}

// MinNeighborsOrdering greedily eliminates the variable with the fewest neighbors
type MinNeighborsOrdering struct{}

func (MinNeighborsOrdering) Name() string { return OrderingMinNeighbors }

func (MinNeighborsOrdering) Order(eliminate []string, factors []*factor.Factor) []string {
	return greedy(eliminate, factors, func(g *interactionGraph, name string) int {
		return len(g.adj[name])
	})
}

// MinWeightOrdering greedily eliminates the variable whose neighborhood has the smallest
// joint table, i.e. the product of the neighbors' cardinalities
type MinWeightOrdering struct{}

func (MinWeightOrdering) Name() string { return OrderingMinWeight }

func (MinWeightOrdering) Order(eliminate []string, factors []*factor.Factor) []string {
	return greedy(eliminate, factors, func(g *interactionGraph, name string) int {
		weight := 1
		for n := range g.adj[name] {
			weight *= g.card[n]
		}
		return weight
	})
}

// OrderingByName resolves a configured ordering
func OrderingByName(name string) (Ordering, error) {
	switch name {
	case "", OrderingMinNeighbors:
		return MinNeighborsOrdering{}, nil
	case OrderingDeclaration:
		return DeclarationOrdering{}, nil
	case OrderingReverse:
		return ReverseOrdering{}, nil
	case OrderingMinWeight:
		return MinWeightOrdering{}, nil
	default:
		return nil, fmt.Errorf("unknown elimination ordering: %s", name)
	}
}

type interactionGraph struct {
	adj  map[string]map[string]bool
	card map[string]int
}

func newInteractionGraph(factors []*factor.Factor) *interactionGraph {
	g := &interactionGraph{adj: make(map[string]map[string]bool), card: make(map[string]int)}
	for _, f := range factors {
		scope := f.Scope()
		for _, v := range scope {
			g.card[v.Name()] = v.Card()
			if g.adj[v.Name()] == nil {
				g.adj[v.Name()] = make(map[string]bool)
			}
		}
		for i := range scope {
			for j := i + 1; j < len(scope); j++ {
				g.connect(scope[i].Name(), scope[j].Name())
			}
		}
	}
	return g
}

func (g *interactionGraph) connect(a, b string) {
	g.adj[a][b] = true
	g.adj[b][a] = true
}

// eliminate removes name and joins its neighbors into a clique
func (g *interactionGraph) eliminate(name string) {
	neighbors := make([]string, 0, len(g.adj[name]))
	for n := range g.adj[name] {
		neighbors = append(neighbors, n)
		delete(g.adj[n], name)
	}
	for i := range neighbors {
		for j := i + 1; j < len(neighbors); j++ {
			g.connect(neighbors[i], neighbors[j])
		}
	}
	delete(g.adj, name)
}

// greedy repeatedly takes the lowest-cost variable; ties go to declaration order
func greedy(eliminate []string, factors []*factor.Factor, cost func(*interactionGraph, string) int) []string {
	g := newInteractionGraph(factors)
	remaining := append([]string(nil), eliminate...)
	order := make([]string, 0, len(eliminate))
	for len(remaining) > 0 {
		best := 0
		bestCost := cost(g, remaining[0])
		for i := 1; i < len(remaining); i++ {
			if c := cost(g, remaining[i]); c < bestCost {
				best, bestCost = i, c
			}
		}
		name := remaining[best]
		order = append(order, name)
		remaining = append(remaining[:best], remaining[best+1:]...)
		g.eliminate(name)
	}
	return order
}
