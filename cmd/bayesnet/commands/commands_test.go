/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: commands_test.go
Description: Tests for the command helpers and the train -> query pipeline.
*/

package commands

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kleascm/bayesnet/pkg/config"
	"github.com/kleascm/bayesnet/pkg/dataset"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/inference"
	"github.com/kleascm/bayesnet/pkg/network"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passengers = `Pclass,Sex,Age,Fare,Survived
1,female,29,80,1
1,male,45,50,0
3,male,22,7.25,0
3,female,,8.05,1
2,male,8,21,1
3,male,30,7.9,0
`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestParseEvidence(t *testing.T) {
	evidence, err := ParseEvidence([]string{"Sex=female", " Pclass = 1 "})
	require.NoError(t, err)
	assert.Equal(t, factor.Evidence{"Sex": "female", "Pclass": "1"}, evidence)

	evidence, err = ParseEvidence(nil)
	require.NoError(t, err)
	assert.Empty(t, evidence)

	_, err = ParseEvidence([]string{"Sex"})
	assert.Error(t, err)
	_, err = ParseEvidence([]string{"=female"})
	assert.Error(t, err)
	_, err = ParseEvidence([]string{"Sex=female", "Sex=male"})
	assert.ErrorContains(t, err, "conflicting evidence")
}

func TestTrain(t *testing.T) {
	table, err := dataset.ReadCSV(strings.NewReader(passengers), ',')
	require.NoError(t, err)

	result, err := Train(context.Background(), table, config.TitanicModel(), config.Default(), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 6, result.Rows)
	assert.Equal(t, "titanic", result.Name)
	require.Len(t, result.Estimates, 5)
	assert.Equal(t, "Survived", result.Network.TopologicalOrder()[4])

	pclass, err := result.Network.CPD("Pclass")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2.0 / 6, 1.0 / 6, 3.0 / 6}, pclass.Column(0), 1e-12)

	survived := result.Estimates[4]
	assert.Equal(t, 72, survived.CPD.NumColumns())
	assert.Len(t, survived.Fallbacks, 67, "five parent assignments were observed")

	dist, err := inference.NewVariableElimination(result.Network).
		Query(context.Background(), []string{"Survived"}, factor.Evidence{"Sex": "female"})
	require.NoError(t, err)
	total := 0.0
	for _, p := range dist.Values() {
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestTrainRejectsMissingColumn(t *testing.T) {
	table, err := dataset.ReadCSV(strings.NewReader("Pclass,Sex\n1,female\n"), ',')
	require.NoError(t, err)
	_, err = Train(context.Background(), table, config.TitanicModel(), config.Default(), quietLogger())
	assert.ErrorContains(t, err, "not found in data")
}

func TestDescribeModel(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("model-spec", "", "")
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, RunDescribeModel(cmd, nil))
	spec, err := config.ParseModelSpec(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, config.TitanicModel(), spec)
}

func newCommand(ctx context.Context, out io.Writer, define func(*cobra.Command)) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(out)
	define(cmd)
	return cmd
}

func TestTrainThenQuery(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(viper.Reset)
	viper.Set("log_dir", filepath.Join(dir, "logs"))
	viper.Set("log_level", "error")
	viper.Set("store.path", filepath.Join(dir, "models.db"))

	dataPath := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(passengers), 0644))
	modelPath := filepath.Join(dir, "titanic.yaml")
	ctx := context.Background()

	var trainOut bytes.Buffer
	train := newCommand(ctx, &trainOut, func(cmd *cobra.Command) {
		cmd.Flags().String("data", dataPath, "")
		cmd.Flags().String("format", "", "")
		cmd.Flags().String("model-spec", "", "")
		cmd.Flags().String("name", "", "")
		cmd.Flags().String("out", modelPath, "")
		cmd.Flags().Bool("save", true, "")
		cmd.Flags().String("report-dir", filepath.Join(dir, "reports"), "")
		cmd.Flags().Duration("timeout", time.Second, "")
	})
	require.NoError(t, RunTrain(train, nil))
	assert.Contains(t, trainOut.String(), "Estimated 5 CPDs from 6 rows")
	assert.Contains(t, trainOut.String(), "Survived: 67 of 72 parent assignments unobserved, filled by uniform")
	assert.FileExists(t, modelPath)

	query := func(model, modelFile string) string {
		var out bytes.Buffer
		cmd := newCommand(ctx, &out, func(cmd *cobra.Command) {
			cmd.Flags().StringSlice("target", []string{"Survived"}, "")
			cmd.Flags().StringSlice("evidence", []string{"Sex=female"}, "")
			cmd.Flags().StringSlice("order", nil, "")
			cmd.Flags().Bool("map", true, "")
			cmd.Flags().String("report-dir", "", "")
			AddModelFlags(cmd)
		})
		require.NoError(t, cmd.Flags().Set("model", model))
		require.NoError(t, cmd.Flags().Set("model-file", modelFile))
		require.NoError(t, RunQuery(cmd, nil))
		return out.String()
	}

	fromStore := query("titanic", "")
	assert.Contains(t, fromStore, "P(Survived | Sex=female)")
	assert.Contains(t, fromStore, "Most probable:")
	assert.Equal(t, fromStore, query("", modelPath), "store and file copies answer alike")

	file, err := os.Open(modelPath)
	require.NoError(t, err)
	defer file.Close()
	net, doc, err := network.Decode(file, network.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "titanic", doc.Name)
	assert.Len(t, net.Names(), 5)
}
