/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: estimator_test.go
Description: Tests for CPD estimation, fallback reporting and parallel estimation.
*/

package estimator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/kleascm/bayesnet/pkg/dataset"
	"github.com/kleascm/bayesnet/pkg/estimator"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sex      = factor.MustVariable("Sex", "female", "male")
	pclass   = factor.MustVariable("Pclass", "1", "2", "3")
	survived = factor.MustVariable("Survived", "0", "1")
)

func sampleTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable([]string{"Sex", "Pclass", "Survived"}, [][]string{
		{"female", "1", "1"},
		{"female", "1", "1"},
		{"female", "3", "0"},
		{"female", "3", "1"},
		{"male", "1", "0"},
		{"male", "3", "0"},
		{"male", "3", "0"},
		{"male", "3", "1"},
	})
	require.NoError(t, err)
	return table
}

func TestEstimateMarginal(t *testing.T) {
	est, err := estimator.New(nil, nil).EstimateCPD(sampleTable(t), survived, nil)
	require.NoError(t, err)

	assert.Equal(t, 8, est.Rows)
	assert.False(t, est.FellBack())
	col := est.CPD.Column(0)
	assert.InDelta(t, 0.5, col[0], 1e-12)
	assert.InDelta(t, 0.5, col[1], 1e-12)
	assert.NoError(t, est.CPD.Check(factor.DefaultTolerance))
}

func TestEstimateUnobservedParentAssignment(t *testing.T) {
	est, err := estimator.New(nil, nil).EstimateCPD(sampleTable(t), survived, []factor.Variable{sex, pclass})
	require.NoError(t, err)

	// every combination gets a column, including the never-seen second class
	assert.Equal(t, 6, est.CPD.NumColumns())
	require.Len(t, est.Fallbacks, 2)
	assert.Equal(t, map[string]string{"Sex": "female", "Pclass": "2"}, est.Fallbacks[0].Assignment)
	assert.Equal(t, map[string]string{"Sex": "male", "Pclass": "2"}, est.Fallbacks[1].Assignment)
	assert.Equal(t, "uniform", est.Fallbacks[0].Policy)

	value := func(s, p, v string) float64 {
		w, err := est.CPD.Factor().Value(map[string]string{"Sex": s, "Pclass": p, "Survived": v})
		require.NoError(t, err)
		return w
	}
	assert.InDelta(t, 1.0, value("female", "1", "1"), 1e-12)
	assert.InDelta(t, 0.5, value("female", "2", "1"), 1e-12)
	assert.InDelta(t, 2.0/3.0, value("male", "3", "0"), 1e-12)
	assert.NoError(t, est.CPD.Check(factor.DefaultTolerance))
}

func TestEstimateLaplace(t *testing.T) {
	config := estimator.DefaultConfig()
	config.Policy = estimator.LaplacePolicy{Alpha: 1}
	est, err := estimator.New(config, nil).EstimateCPD(sampleTable(t), survived, []factor.Variable{sex})
	require.NoError(t, err)

	assert.False(t, est.FellBack())
	// female: 1 death, 3 survivals -> (1+1)/(4+2)
	w, err := est.CPD.Factor().Value(map[string]string{"Survived": "0", "Sex": "female"})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/6.0, w, 1e-12)
}

// rawCounts hands back unnormalized counts and never reports a fallback
type rawCounts struct{}

func (rawCounts) Name() string { return "raw" }

func (rawCounts) Column(counts []float64) ([]float64, bool) {
	return append([]float64(nil), counts...), false
}

func TestEstimateReconcilesColumns(t *testing.T) {
	config := estimator.DefaultConfig()
	config.Policy = rawCounts{}
	est, err := estimator.New(config, nil).EstimateCPD(sampleTable(t), survived, []factor.Variable{sex, pclass})
	require.NoError(t, err)

	// female/1, female/3 and male/3 count more than one row; both second-class columns are empty
	assert.Equal(t, 3, est.Renormalized)
	assert.Equal(t, 2, est.Forced)
	assert.False(t, est.FellBack())
	assert.NoError(t, est.CPD.Check(factor.DefaultTolerance))

	value := func(s, p, v string) float64 {
		w, err := est.CPD.Factor().Value(map[string]string{"Sex": s, "Pclass": p, "Survived": v})
		require.NoError(t, err)
		return w
	}
	assert.InDelta(t, 0.5, value("male", "2", "1"), 1e-12)
	assert.InDelta(t, 2.0/3.0, value("male", "3", "0"), 1e-12)
	assert.InDelta(t, 1.0, value("male", "1", "0"), 1e-12)
}

func TestNewLeavesConfigUntouched(t *testing.T) {
	config := &estimator.Config{Workers: 3}
	e := estimator.New(config, nil)
	assert.Nil(t, config.Policy)
	assert.Zero(t, config.Tolerance)

	est, err := e.EstimateCPD(sampleTable(t), survived, nil)
	require.NoError(t, err)
	assert.NoError(t, est.CPD.Check(factor.DefaultTolerance))
}

func TestEstimateSchemaErrors(t *testing.T) {
	e := estimator.New(nil, nil)

	_, err := e.EstimateCPD(sampleTable(t), factor.MustVariable("Age", "Child", "Adult"), nil)
	assert.ErrorIs(t, err, bnerr.ErrSchema)

	narrow := factor.MustVariable("Pclass", "1", "2")
	_, err = e.EstimateCPD(sampleTable(t), survived, []factor.Variable{narrow})
	var schemaErr *bnerr.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "Pclass", schemaErr.Variable)

	_, err = e.EstimateCPD(sampleTable(t), survived, []factor.Variable{survived})
	assert.ErrorIs(t, err, bnerr.ErrSchema)
}

func TestEstimateAllKeepsOrder(t *testing.T) {
	config := estimator.DefaultConfig()
	config.Workers = 2
	config.Metrics = monitoring.NewMetrics("test")
	specs := []estimator.Spec{
		{Variable: sex},
		{Variable: pclass},
		{Variable: survived, Parents: []factor.Variable{sex, pclass}},
	}

	results, err := estimator.New(config, nil).EstimateAll(context.Background(), sampleTable(t), specs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, spec := range specs {
		assert.Equal(t, spec.Variable.Name(), results[i].CPD.Child().Name())
	}

	_, err = estimator.New(nil, nil).EstimateAll(context.Background(), sampleTable(t), []estimator.Spec{
		{Variable: sex},
		{Variable: factor.MustVariable("Cabin", "A", "B")},
	})
	assert.ErrorIs(t, err, bnerr.ErrSchema)
}

func TestEstimateAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := estimator.New(nil, nil).EstimateAll(ctx, sampleTable(t), []estimator.Spec{{Variable: sex}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicyByName(t *testing.T) {
	p, err := estimator.PolicyByName("", 0)
	require.NoError(t, err)
	assert.Equal(t, "uniform", p.Name())

	p, err = estimator.PolicyByName("laplace", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "laplace(0.5)", p.Name())

	_, err = estimator.PolicyByName("laplace", 0)
	assert.Error(t, err)
	_, err = estimator.PolicyByName("bogus", 1)
	assert.Error(t, err)
}
