/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: variable.go
Description: Discrete variables and the registry that holds them. A variable is a name
plus an ordered finite domain of state labels; every table in the engine addresses states
by their index in that domain, so iteration order is fixed by declaration.
*/

package factor

import (
	"fmt"

	"github.com/kleascm/bayesnet/pkg/bnerr"
)

// Variable is a named categorical variable with an ordered domain.
// The zero value is not usable; construct with NewVariable.
type Variable struct {
	name   string
	states []string
	index  map[string]int
}

// NewVariable creates a variable with the given states in domain order
func NewVariable(name string, states ...string) (Variable, error) {
	if name == "" {
		return Variable{}, &bnerr.SchemaError{Reason: "variable name must not be empty"}
	}
	if len(states) == 0 {
		return Variable{}, &bnerr.SchemaError{Variable: name, Reason: "domain must have at least one state"}
	}
	index := make(map[string]int, len(states))
	for i, s := range states {
		if _, dup := index[s]; dup {
			return Variable{}, &bnerr.SchemaError{Variable: name, Reason: fmt.Sprintf("duplicate state %q", s)}
		}
		index[s] = i
	}
	owned := make([]string, len(states))
	copy(owned, states)
	return Variable{name: name, states: owned, index: index}, nil
}

// MustVariable is NewVariable for fixtures and literals; it panics on error
func MustVariable(name string, states ...string) Variable {
	v, err := NewVariable(name, states...)
	if err != nil {
		panic(err)
	}
	return v
}

// Name returns the variable name
func (v Variable) Name() string { return v.name }

// Card returns the domain size
func (v Variable) Card() int { return len(v.states) }

// States returns a copy of the domain in order
func (v Variable) States() []string {
	out := make([]string, len(v.states))
	copy(out, v.states)
	return out
}

// State returns the label at index i
func (v Variable) State(i int) string { return v.states[i] }

// Index returns the domain index of a state label
func (v Variable) Index(state string) (int, bool) {
	i, ok := v.index[state]
	return i, ok
}

// SameDomain reports whether two variables share name and ordered domain
func (v Variable) SameDomain(other Variable) bool {
	if v.name != other.name || len(v.states) != len(other.states) {
		return false
	}
	for i := range v.states {
		if v.states[i] != other.states[i] {
			return false
		}
	}
	return true
}

// CheckState returns an EvidenceDomainError if state is not in the domain
func (v Variable) CheckState(state string) (int, error) {
	i, ok := v.index[state]
	if !ok {
		return 0, &bnerr.EvidenceDomainError{Variable: v.name, Value: state, Domain: v.States()}
	}
	return i, nil
}

func (v Variable) String() string {
	return fmt.Sprintf("%s%v", v.name, v.states)
}

// Registry is an ordered set of variables keyed by name
type Registry struct {
	order []string
	vars  map[string]Variable
}

// NewRegistry creates a registry holding vars in the given order
func NewRegistry(vars ...Variable) (*Registry, error) {
	r := &Registry{vars: make(map[string]Variable, len(vars))}
	for _, v := range vars {
		if err := r.Register(v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a variable; names must be unique
func (r *Registry) Register(v Variable) error {
	if v.name == "" {
		return &bnerr.SchemaError{Reason: "cannot register an uninitialised variable"}
	}
	if _, exists := r.vars[v.name]; exists {
		return &bnerr.SchemaError{Variable: v.name, Reason: "variable registered twice"}
	}
	r.vars[v.name] = v
	r.order = append(r.order, v.name)
	return nil
}

// Get looks up a variable by name
func (r *Registry) Get(name string) (Variable, bool) {
	v, ok := r.vars[name]
	return v, ok
}

// Lookup is Get with a SchemaError for unknown names
func (r *Registry) Lookup(name string) (Variable, error) {
	v, ok := r.vars[name]
	if !ok {
		return Variable{}, &bnerr.SchemaError{Variable: name, Reason: "unknown variable"}
	}
	return v, nil
}

// Len returns the number of registered variables
func (r *Registry) Len() int { return len(r.order) }

// Names returns variable names in declaration order
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Variables returns the variables in declaration order
func (r *Registry) Variables() []Variable {
	out := make([]Variable, len(r.order))
	for i, name := range r.order {
		out[i] = r.vars[name]
	}
	return out
}
