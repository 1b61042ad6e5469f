/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: network.go
Description: Bayesian network assembly and validation. Build checks the declared variables,
edges and CPDs against each other, rejects cycles with Kahn's algorithm and verifies that
every CPD column normalizes. A built Network is immutable and safe for concurrent readers.
*/

package network

import (
	"fmt"
	"sort"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/kleascm/bayesnet/pkg/factor"
)

// Edge is a directed parent -> child dependency
type Edge struct {
	Parent string `json:"parent" yaml:"parent"`
	Child  string `json:"child" yaml:"child"`
}

func (e Edge) String() string { return e.Parent + " -> " + e.Child }

// Network is a validated DAG with one CPD per variable
type Network struct {
	registry  *factor.Registry
	edges     []Edge
	parents   map[string][]string
	children  map[string][]string
	cpds      map[string]*factor.CPD
	order     []string
	tolerance float64
}

// Option adjusts Build
type Option func(*Network)

// WithTolerance sets the allowed CPD column drift used by Check
func WithTolerance(tol float64) Option {
	return func(n *Network) {
		if tol > 0 {
			n.tolerance = tol
		}
	}
}

// Build assembles and validates a network. Any violation returns a nil network.
func Build(variables []factor.Variable, edges []Edge, cpds []*factor.CPD, opts ...Option) (*Network, error) {
	registry, err := factor.NewRegistry(variables...)
	if err != nil {
		return nil, err
	}

	n := &Network{
		registry:  registry,
		edges:     make([]Edge, 0, len(edges)),
		parents:   make(map[string][]string),
		children:  make(map[string][]string),
		cpds:      make(map[string]*factor.CPD, len(cpds)),
		tolerance: factor.DefaultTolerance,
	}
	for _, opt := range opts {
		opt(n)
	}

	seen := make(map[Edge]bool, len(edges))
	for _, e := range edges {
		for _, end := range []string{e.Parent, e.Child} {
			if _, ok := registry.Get(end); !ok {
				return nil, &bnerr.SchemaError{Variable: end, Reason: fmt.Sprintf("edge %s references an unregistered variable", e)}
			}
		}
		if seen[e] {
			return nil, &bnerr.SchemaError{Variable: e.Child, Reason: fmt.Sprintf("edge %s declared twice", e)}
		}
		seen[e] = true
		n.edges = append(n.edges, e)
		n.parents[e.Child] = append(n.parents[e.Child], e.Parent)
		n.children[e.Parent] = append(n.children[e.Parent], e.Child)
	}

	if n.order, err = topologicalOrder(registry.Names(), n.edges); err != nil {
		return nil, err
	}

	for _, cpd := range cpds {
		if err := n.attach(cpd); err != nil {
			return nil, err
		}
	}
	for _, name := range registry.Names() {
		if _, ok := n.cpds[name]; !ok {
			return nil, &bnerr.SchemaError{Variable: name, Reason: "no CPD supplied"}
		}
	}

	if err := n.Check(); err != nil {
		return nil, err
	}
	return n, nil
}

// attach validates one CPD against the registry and declared parents
func (n *Network) attach(cpd *factor.CPD) error {
	if cpd == nil {
		return &bnerr.SchemaError{Reason: "nil CPD"}
	}
	child := cpd.Child()
	if err := n.sameAsRegistered(child); err != nil {
		return err
	}
	if _, dup := n.cpds[child.Name()]; dup {
		return &bnerr.SchemaError{Variable: child.Name(), Reason: "more than one CPD supplied"}
	}

	declared := make(map[string]bool, len(n.parents[child.Name()]))
	for _, p := range n.parents[child.Name()] {
		declared[p] = true
	}
	got := cpd.Parents()
	for _, p := range got {
		if err := n.sameAsRegistered(p); err != nil {
			return err
		}
		if !declared[p.Name()] {
			return &bnerr.SchemaError{
				Variable: child.Name(),
				Reason:   fmt.Sprintf("CPD conditions on %q, which is not a declared parent", p.Name()),
			}
		}
	}
	if len(got) != len(declared) {
		return &bnerr.SchemaError{
			Variable: child.Name(),
			Reason:   fmt.Sprintf("CPD conditions on %v but declared parents are %v", cpd.ParentNames(), n.parents[child.Name()]),
		}
	}
	n.cpds[child.Name()] = cpd
	return nil
}

func (n *Network) sameAsRegistered(v factor.Variable) error {
	registered, ok := n.registry.Get(v.Name())
	if !ok {
		return &bnerr.SchemaError{Variable: v.Name(), Reason: "CPD references an unregistered variable"}
	}
	if !registered.SameDomain(v) {
		return &bnerr.SchemaError{
			Variable: v.Name(),
			Reason:   fmt.Sprintf("CPD domain %v differs from registered domain %v", v.States(), registered.States()),
		}
	}
	return nil
}

// topologicalOrder runs Kahn's algorithm, taking ready variables in declaration order.
// Variables left over sit on or downstream of a cycle.
func topologicalOrder(names []string, edges []Edge) ([]string, error) {
	inDegree := make(map[string]int, len(names))
	out := make(map[string][]string, len(names))
	for _, e := range edges {
		inDegree[e.Child]++
		out[e.Parent] = append(out[e.Parent], e.Child)
	}
	position := make(map[string]int, len(names))
	for i, name := range names {
		position[name] = i
	}

	var queue []string
	for _, name := range names {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(names))
	for len(queue) > 0 {
		sort.Slice(queue, func(i, j int) bool { return position[queue[i]] < position[queue[j]] })
		next := queue[0]
		queue = queue[1:]
		order = append(order, next)
		for _, child := range out[next] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) < len(names) {
		var cycle []string
		for _, name := range names {
			if inDegree[name] > 0 {
				cycle = append(cycle, name)
			}
		}
		return nil, &bnerr.StructureError{Cycle: cycle}
	}
	return order, nil
}

// Check verifies every CPD column sums to one within the network tolerance
func (n *Network) Check() error {
	for _, name := range n.registry.Names() {
		if err := n.cpds[name].Check(n.tolerance); err != nil {
			return err
		}
	}
	return nil
}

// Variables returns the variables in declaration order
func (n *Network) Variables() []factor.Variable { return n.registry.Variables() }

// Names returns the variable names in declaration order
func (n *Network) Names() []string { return n.registry.Names() }

// Variable looks up a variable by name
func (n *Network) Variable(name string) (factor.Variable, error) { return n.registry.Lookup(name) }

// Parents returns the declared parents of name in edge order
func (n *Network) Parents(name string) []string { return append([]string(nil), n.parents[name]...) }

// Children returns the declared children of name in edge order
func (n *Network) Children(name string) []string { return append([]string(nil), n.children[name]...) }

// CPD returns the CPD of name
func (n *Network) CPD(name string) (*factor.CPD, error) {
	cpd, ok := n.cpds[name]
	if !ok {
		return nil, &bnerr.SchemaError{Variable: name, Reason: "unknown variable"}
	}
	return cpd, nil
}

// CPDs returns every CPD in declaration order
func (n *Network) CPDs() []*factor.CPD {
	out := make([]*factor.CPD, 0, len(n.cpds))
	for _, name := range n.registry.Names() {
		out = append(out, n.cpds[name])
	}
	return out
}

// Edges returns the edges in declaration order
func (n *Network) Edges() []Edge { return append([]Edge(nil), n.edges...) }

// TopologicalOrder returns names with every parent before its children
func (n *Network) TopologicalOrder() []string { return append([]string(nil), n.order...) }

// Tolerance returns the column drift allowed by Check
func (n *Network) Tolerance() float64 { return n.tolerance }

// MarkovBlanket returns the parents, children and the children's other parents of name,
// in declaration order
func (n *Network) MarkovBlanket(name string) ([]string, error) {
	if _, err := n.registry.Lookup(name); err != nil {
		return nil, err
	}
	in := make(map[string]bool)
	for _, p := range n.parents[name] {
		in[p] = true
	}
	for _, c := range n.children[name] {
		in[c] = true
		for _, p := range n.parents[c] {
			in[p] = true
		}
	}
	delete(in, name)

	var out []string
	for _, v := range n.registry.Names() {
		if in[v] {
			out = append(out, v)
		}
	}
	return out, nil
}
