/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config_test.go
Description: Tests for application configuration and model descriptions.
*/

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/kleascm/bayesnet/pkg/config"
	"github.com/kleascm/bayesnet/pkg/dataset"
	"github.com/kleascm/bayesnet/pkg/estimator"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, config.Default().Estimation.Tolerance, cfg.Estimation.Tolerance)
	assert.Equal(t, "uniform", cfg.Estimation.Policy)
	assert.Equal(t, "variable_elimination", cfg.Inference.Engine)
	assert.Equal(t, "min-neighbors", cfg.Inference.Ordering)
}

func TestFromViperFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bayesnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
estimation:
  policy: laplace
  alpha: 0.5
  tolerance: 0.001
inference:
  engine: enumeration
  ordering: min-weight
store:
  path: /tmp/models.db
`), 0644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.001, cfg.Estimation.Tolerance)
	assert.Equal(t, "enumeration", cfg.Inference.Engine)
	assert.Equal(t, "/tmp/models.db", cfg.Store.Path)

	est, err := cfg.EstimatorConfig()
	require.NoError(t, err)
	assert.Equal(t, estimator.LaplacePolicy{Alpha: 0.5}, est.Policy)
	ordering, err := cfg.Ordering()
	require.NoError(t, err)
	assert.Equal(t, "min-weight", ordering.Name())
}

func TestConfigValidate(t *testing.T) {
	mutate := map[string]func(*config.Config){
		"tolerance":   func(c *config.Config) { c.Estimation.Tolerance = 0 },
		"workers":     func(c *config.Config) { c.Estimation.Workers = -1 },
		"policy":      func(c *config.Config) { c.Estimation.Policy = "magic" },
		"engine":      func(c *config.Config) { c.Inference.Engine = "gibbs" },
		"ordering":    func(c *config.Config) { c.Inference.Ordering = "random" },
		"store path":  func(c *config.Config) { c.Store.Path = "" },
		"laplace α=0": func(c *config.Config) { c.Estimation.Policy, c.Estimation.Alpha = "laplace", 0 },
	}
	require.NoError(t, config.Default().Validate())
	for name, fn := range mutate {
		cfg := config.Default()
		fn(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestTitanicModelPrepare(t *testing.T) {
	raw, err := dataset.NewTable(
		[]string{"PassengerId", "Survived", "Pclass", "Sex", "Age", "Fare"},
		[][]string{
			{"1", "0", "3", "male", "22", "7.25"},
			{"2", "1", "1", "female", "38", "71.28"},
			{"3", "1", "3", "female", "", "7.92"},
			{"4", "1", "2", "female", "4", "13"},
			{"5", "0", "3", "male", "70", ""},
		})
	require.NoError(t, err)

	model := config.TitanicModel()
	prepared, err := model.Prepare(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"Pclass", "Sex", "AgeGroup", "FareGroup", "Survived"}, prepared.Data.Columns())
	ages, err := prepared.Data.Column("AgeGroup")
	require.NoError(t, err)
	assert.Equal(t, []string{"Adult", "Adult", "Adult", "Child", "Senior"}, ages)
	fares, err := prepared.Data.Column("FareGroup")
	require.NoError(t, err)
	assert.Equal(t, []string{"Medium", "High", "Medium", "Medium", "Medium"}, fares)
	assert.Equal(t, 1, prepared.Fallbacks["AgeGroup"])
	assert.Equal(t, 1, prepared.Fallbacks["FareGroup"])

	age, err := prepared.Registry.Lookup("AgeGroup")
	require.NoError(t, err)
	assert.Equal(t, []string{"Child", "Teen", "Adult", "Senior"}, age.States())

	specs, err := model.Specs(prepared.Registry)
	require.NoError(t, err)
	require.Len(t, specs, 5)
	assert.Equal(t, "Survived", specs[4].Variable.Name())
	assert.Len(t, specs[4].Parents, 4)
	assert.Empty(t, specs[0].Parents)
}

func TestModelSpecYAML(t *testing.T) {
	data, err := config.TitanicModel().YAML()
	require.NoError(t, err)

	parsed, err := config.ParseModelSpec(data)
	require.NoError(t, err)
	assert.Equal(t, config.TitanicModel(), parsed)

	_, err = config.ParseModelSpec([]byte("name: x\nvariables:\n  - name: A\nedges:\n  - {parent: A, child: B}\n"))
	assert.ErrorIs(t, err, bnerr.ErrSchema)

	_, err = config.ParseModelSpec([]byte("name: x\nvariabels: []\n"))
	assert.Error(t, err)
}

func TestPrepareObservedDomainAndMissing(t *testing.T) {
	raw, err := dataset.NewTable([]string{"Embarked"}, [][]string{{"S"}, {"C"}, {""}, {"S"}})
	require.NoError(t, err)

	model := &config.ModelSpec{Variables: []config.VariableSpec{{Name: "Port", Column: "Embarked", Missing: "Unknown"}}}
	prepared, err := model.Prepare(raw)
	require.NoError(t, err)
	port, err := prepared.Registry.Lookup("Port")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "S", "Unknown"}, port.States())
	assert.Equal(t, 1, prepared.Fallbacks["Port"])

	_, err = (&config.ModelSpec{Variables: []config.VariableSpec{{Name: "Cabin"}}}).Prepare(raw)
	assert.ErrorIs(t, err, bnerr.ErrSchema)
}
