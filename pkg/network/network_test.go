/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: network_test.go
Description: Tests for network assembly, validation and the document codec.
*/

package network_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	varA = factor.MustVariable("A", "0", "1")
	varB = factor.MustVariable("B", "0", "1")
	varC = factor.MustVariable("C", "lo", "hi")
)

func mustCPD(t *testing.T, child factor.Variable, parents []factor.Variable, columns [][]float64) *factor.CPD {
	t.Helper()
	cpd, err := factor.NewCPDFromColumns(child, parents, columns)
	require.NoError(t, err)
	return cpd
}

// chain builds A -> B -> C with C also depending on A
func chain(t *testing.T) ([]factor.Variable, []network.Edge, []*factor.CPD) {
	t.Helper()
	vars := []factor.Variable{varA, varB, varC}
	edges := []network.Edge{{Parent: "A", Child: "B"}, {Parent: "B", Child: "C"}, {Parent: "A", Child: "C"}}
	cpds := []*factor.CPD{
		mustCPD(t, varA, nil, [][]float64{{0.6, 0.4}}),
		mustCPD(t, varB, []factor.Variable{varA}, [][]float64{{0.9, 0.1}, {0.3, 0.7}}),
		mustCPD(t, varC, []factor.Variable{varB, varA}, [][]float64{{0.5, 0.5}, {0.2, 0.8}, {0.1, 0.9}, {1, 0}}),
	}
	return vars, edges, cpds
}

func TestBuildAndCheck(t *testing.T) {
	net, err := network.Build(chain(t))
	require.NoError(t, err)
	require.NoError(t, net.Check())

	assert.Equal(t, []string{"A", "B", "C"}, net.TopologicalOrder())
	assert.Equal(t, []string{"B", "A"}, net.Parents("C"))
	assert.Equal(t, []string{"B", "C"}, net.Children("A"))
	assert.Len(t, net.CPDs(), 3)

	blanket, err := net.MarkovBlanket("B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, blanket)

	_, err = net.CPD("Z")
	assert.ErrorIs(t, err, bnerr.ErrSchema)
	_, err = net.Variable("Z")
	assert.ErrorIs(t, err, bnerr.ErrSchema)
}

func TestBuildRejectsCycle(t *testing.T) {
	vars, _, _ := chain(t)
	edges := []network.Edge{{Parent: "A", Child: "B"}, {Parent: "B", Child: "C"}, {Parent: "C", Child: "A"}}
	cpds := []*factor.CPD{
		mustCPD(t, varA, []factor.Variable{varC}, [][]float64{{1, 0}, {0, 1}}),
		mustCPD(t, varB, []factor.Variable{varA}, [][]float64{{1, 0}, {0, 1}}),
		mustCPD(t, varC, []factor.Variable{varB}, [][]float64{{1, 0}, {0, 1}}),
	}

	net, err := network.Build(vars, edges, cpds)
	assert.Nil(t, net)
	var structErr *bnerr.StructureError
	require.True(t, errors.As(err, &structErr))
	assert.ElementsMatch(t, []string{"A", "B", "C"}, structErr.Cycle)

	_, err = network.Build(vars, []network.Edge{{Parent: "A", Child: "A"}}, cpds)
	assert.ErrorIs(t, err, bnerr.ErrStructure)
}

func TestBuildSchemaErrors(t *testing.T) {
	vars, edges, cpds := chain(t)

	cases := map[string]func() error{
		"duplicate variable": func() error {
			_, err := network.Build(append(vars, varA), edges, cpds)
			return err
		},
		"unknown edge endpoint": func() error {
			_, err := network.Build(vars, append(edges, network.Edge{Parent: "Z", Child: "A"}), cpds)
			return err
		},
		"duplicate edge": func() error {
			_, err := network.Build(vars, append(edges, edges[0]), cpds)
			return err
		},
		"missing CPD": func() error {
			_, err := network.Build(vars, edges, cpds[:2])
			return err
		},
		"duplicate CPD": func() error {
			_, err := network.Build(vars, edges, append(cpds, cpds[0]))
			return err
		},
		"domain mismatch": func() error {
			wide := factor.MustVariable("A", "0", "1", "2")
			bad := mustCPD(t, wide, nil, [][]float64{{0.2, 0.3, 0.5}})
			_, err := network.Build(vars, edges, []*factor.CPD{bad, cpds[1], cpds[2]})
			return err
		},
		"parents differ from edges": func() error {
			bad := mustCPD(t, varB, nil, [][]float64{{0.5, 0.5}})
			_, err := network.Build(vars, edges, []*factor.CPD{cpds[0], bad, cpds[2]})
			return err
		},
		"undeclared parent": func() error {
			bad := mustCPD(t, varA, []factor.Variable{varB}, [][]float64{{0.5, 0.5}, {0.5, 0.5}})
			_, err := network.Build(vars, edges, []*factor.CPD{bad, cpds[1], cpds[2]})
			return err
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, build(), bnerr.ErrSchema)
		})
	}
}

func TestBuildRejectsUnnormalizedCPD(t *testing.T) {
	vars, edges, cpds := chain(t)
	cpds[1] = mustCPD(t, varB, []factor.Variable{varA}, [][]float64{{0.9, 0.1}, {0.3, 0.3}})

	_, err := network.Build(vars, edges, cpds)
	var normErr *bnerr.NormalizationError
	require.True(t, errors.As(err, &normErr))
	assert.Equal(t, "B", normErr.Variable)
	assert.Equal(t, map[string]string{"A": "1"}, normErr.Assignment)
	assert.InDelta(t, 0.6, normErr.Sum, 1e-12)

	// a looser tolerance accepts small drift
	cpds[1] = mustCPD(t, varB, []factor.Variable{varA}, [][]float64{{0.9, 0.1}, {0.3, 0.699}})
	_, err = network.Build(vars, edges, cpds, network.WithTolerance(1e-2))
	assert.NoError(t, err)
}

func TestBuiltNetworkIsUnchangedByCallers(t *testing.T) {
	vars, edges, cpds := chain(t)
	net, err := network.Build(vars, edges, cpds)
	require.NoError(t, err)

	vars[0] = factor.MustVariable("X", "a", "b")
	edges[0] = network.Edge{Parent: "C", Child: "A"}
	cpds[0] = nil
	net.Variables()[1] = factor.MustVariable("Y", "a", "b")
	net.Edges()[1] = network.Edge{Parent: "C", Child: "B"}
	net.TopologicalOrder()[0] = "C"
	net.Parents("C")[0] = "A"

	assert.Equal(t, []string{"A", "B", "C"}, net.Names())
	assert.Equal(t, []string{"A", "B", "C"}, net.TopologicalOrder())
	assert.Equal(t, []network.Edge{{Parent: "A", Child: "B"}, {Parent: "B", Child: "C"}, {Parent: "A", Child: "C"}}, net.Edges())
	assert.Equal(t, []string{"B", "A"}, net.Parents("C"))
	_, err = net.Variable("X")
	assert.ErrorIs(t, err, bnerr.ErrSchema)
	assert.NoError(t, net.Check())
}

func TestCodecRoundTrip(t *testing.T) {
	net, err := network.Build(chain(t))
	require.NoError(t, err)

	for _, format := range []string{network.FormatJSON, network.FormatYAML} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, network.Encode(&buf, net, "chain", format))

			loaded, doc, err := network.Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, "chain", doc.Name)
			assert.Equal(t, net.Names(), loaded.Names())
			assert.Equal(t, net.Edges(), loaded.Edges())
			for _, cpd := range net.CPDs() {
				other, err := loaded.CPD(cpd.Child().Name())
				require.NoError(t, err)
				assert.True(t, cpd.Factor().ApproxEqual(other.Factor(), 0))
			}
		})
	}

	_, err = network.Unmarshal([]byte(`{"variables":[{"name":"A","states":["0","1"]}],"edges":[],"cpds":[{"variable":"A","columns":[[0.5,0.4]]}]}`), network.FormatJSON)
	assert.ErrorIs(t, err, bnerr.ErrNormalization)

	_, err = network.Unmarshal([]byte(`{"variables":[{"name":"A","states":["0","1"]}],"edges":[],"cpds":[{"variable":"Z","columns":[[0.5,0.5]]}]}`), network.FormatJSON)
	var schemaErr *bnerr.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "Z", schemaErr.Variable)
	_, err = network.Unmarshal([]byte(`{"variables":[{"name":"A","states":["0","1"]}],"edges":[],"cpds":[{"variable":"A","parents":["Z"],"columns":[[0.5,0.5]]}]}`), network.FormatJSON)
	assert.ErrorIs(t, err, bnerr.ErrSchema)

	_, err = network.Marshal(net, "x", "xml")
	assert.Error(t, err)
	assert.Equal(t, network.FormatYAML, network.FormatForPath("model.yml"))
	assert.Equal(t, network.FormatJSON, network.FormatForPath("model.json"))
}
