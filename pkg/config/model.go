/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: model.go
Description: Model description files. A ModelSpec names each variable, the raw column it is
read from, how raw values become state labels (explicit states, numeric bins or a missing
value label) and the edges between variables. Prepare applies it to a raw table and yields
the registry plus a table of labels ready for the estimator.
*/

package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/kleascm/bayesnet/pkg/dataset"
	"github.com/kleascm/bayesnet/pkg/estimator"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/network"
	"gopkg.in/yaml.v3"
)

// ModelSpec describes a network to be learned from a table
type ModelSpec struct {
	Name      string         `yaml:"name"`
	Variables []VariableSpec `yaml:"variables"`
	Edges     []network.Edge `yaml:"edges"`
}

// VariableSpec maps one raw column to a discrete variable
type VariableSpec struct {
	Name    string    `yaml:"name"`
	Column  string    `yaml:"column,omitempty"`      // defaults to Name
	States  []string  `yaml:"states,omitempty,flow"` // explicit domain; otherwise observed labels
	Bins    *BinsSpec `yaml:"bins,omitempty"`
	Missing string    `yaml:"missing,omitempty"` // label for missing categorical cells
}

// BinsSpec holds right-closed numeric bins
type BinsSpec struct {
	Edges    []float64 `yaml:"edges,flow"`
	Labels   []string  `yaml:"labels,flow"`
	Fallback string    `yaml:"fallback"`
}

// Prepared is a ModelSpec applied to a table
type Prepared struct {
	Registry  *factor.Registry
	Data      *dataset.Table // one column per variable, named after it
	Fallbacks map[string]int // cells relabelled by bins or the missing label, per variable
}

// TitanicModel is the built-in passenger survival network
func TitanicModel() *ModelSpec {
	return &ModelSpec{
		Name: "titanic",
		Variables: []VariableSpec{
			{Name: "Pclass", States: []string{"1", "2", "3"}},
			{Name: "Sex", States: []string{"female", "male"}},
			{Name: "AgeGroup", Column: "Age", Bins: &BinsSpec{
				Edges:    []float64{0, 12, 18, 60, 120},
				Labels:   []string{"Child", "Teen", "Adult", "Senior"},
				Fallback: "Adult",
			}},
			{Name: "FareGroup", Column: "Fare", Bins: &BinsSpec{
				Edges:    []float64{-1, 7, 15, 1000},
				Labels:   []string{"Low", "Medium", "High"},
				Fallback: "Medium",
			}},
			{Name: "Survived", States: []string{"0", "1"}},
		},
		Edges: []network.Edge{
			{Parent: "Pclass", Child: "Survived"},
			{Parent: "Sex", Child: "Survived"},
			{Parent: "AgeGroup", Child: "Survived"},
			{Parent: "FareGroup", Child: "Survived"},
		},
	}
}

// LoadModelSpec reads a YAML model description
func LoadModelSpec(path string) (*ModelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model description: %w", err)
	}
	return ParseModelSpec(data)
}

// ParseModelSpec decodes and validates a YAML model description
func ParseModelSpec(data []byte) (*ModelSpec, error) {
	spec := &ModelSpec{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(spec); err != nil {
		return nil, fmt.Errorf("failed to parse model description: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// YAML renders the description
func (m *ModelSpec) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode model description: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks names and edge endpoints; bins are checked by dataset.NewBins
func (m *ModelSpec) Validate() error {
	if len(m.Variables) == 0 {
		return &bnerr.SchemaError{Reason: "model declares no variables"}
	}
	declared := make(map[string]bool, len(m.Variables))
	for _, v := range m.Variables {
		if v.Name == "" {
			return &bnerr.SchemaError{Reason: "variable without a name"}
		}
		if declared[v.Name] {
			return &bnerr.SchemaError{Variable: v.Name, Reason: "declared twice"}
		}
		declared[v.Name] = true
		if v.Bins != nil {
			if _, err := v.bins(); err != nil {
				return &bnerr.SchemaError{Variable: v.Name, Reason: err.Error()}
			}
		}
	}
	for _, e := range m.Edges {
		if !declared[e.Parent] || !declared[e.Child] {
			return &bnerr.SchemaError{Variable: e.Child, Reason: fmt.Sprintf("edge %s references an undeclared variable", e)}
		}
	}
	return nil
}

func (v VariableSpec) column() string {
	if v.Column != "" {
		return v.Column
	}
	return v.Name
}

func (v VariableSpec) bins() (*dataset.Bins, error) {
	return dataset.NewBins(v.Bins.Edges, v.Bins.Labels, v.Bins.Fallback)
}

// Prepare discretizes table according to the description. Domains come from explicit
// states, then bin labels, then the sorted observed labels.
func (m *ModelSpec) Prepare(table *dataset.Table) (*Prepared, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	columns := make([]string, len(m.Variables))
	cells := make([][]string, len(m.Variables))
	vars := make([]factor.Variable, len(m.Variables))
	fallbacks := make(map[string]int)

	for i, spec := range m.Variables {
		raw, err := table.Column(spec.column())
		if err != nil {
			return nil, &bnerr.SchemaError{Variable: spec.Name, Reason: fmt.Sprintf("column %q not found in data", spec.column())}
		}

		labels := raw
		var states []string
		switch {
		case spec.Bins != nil:
			bins, err := spec.bins()
			if err != nil {
				return nil, &bnerr.SchemaError{Variable: spec.Name, Reason: err.Error()}
			}
			var n int
			labels, n = bins.Apply(raw)
			fallbacks[spec.Name] += n
			states = bins.States()
		case spec.Missing != "":
			var n int
			labels, n = dataset.FillMissing(raw, spec.Missing)
			fallbacks[spec.Name] += n
		}

		if len(spec.States) > 0 {
			states = spec.States
		}
		if states == nil {
			states = dataset.Domain(labels)
			if spec.Missing != "" && !contains(states, spec.Missing) {
				states = append(states, spec.Missing)
			}
		}

		if vars[i], err = factor.NewVariable(spec.Name, states...); err != nil {
			return nil, err
		}
		columns[i] = spec.Name
		cells[i] = labels
	}

	rows := make([][]string, table.Len())
	for r := range rows {
		row := make([]string, len(columns))
		for c := range columns {
			row[c] = cells[c][r]
		}
		rows[r] = row
	}
	data, err := dataset.NewTable(columns, rows)
	if err != nil {
		return nil, err
	}
	registry, err := factor.NewRegistry(vars...)
	if err != nil {
		return nil, err
	}
	return &Prepared{Registry: registry, Data: data, Fallbacks: fallbacks}, nil
}

// Specs lists estimator inputs in declaration order, parents in edge order
func (m *ModelSpec) Specs(registry *factor.Registry) ([]estimator.Spec, error) {
	parents := make(map[string][]factor.Variable)
	for _, e := range m.Edges {
		p, err := registry.Lookup(e.Parent)
		if err != nil {
			return nil, err
		}
		parents[e.Child] = append(parents[e.Child], p)
	}
	specs := make([]estimator.Spec, 0, len(m.Variables))
	for _, v := range registry.Variables() {
		specs = append(specs, estimator.Spec{Variable: v, Parents: parents[v.Name()]})
	}
	return specs, nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
