/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dataset_test.go
Description: Tests for tables, dataset sources and the discretizer.
*/

package dataset_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kleascm/bayesnet/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const titanicSample = `PassengerId,Survived,Pclass,Sex,Age,Fare
1,0,3,male,22,7.25
2,1,1,female,38,71.2833
3,1,3,female,26,7.925
4,1,1,female,35,53.1
5,0,3,male,,8.05
`

func TestBinsRightClosedWithFallback(t *testing.T) {
	bins, err := dataset.NewBins([]float64{0, 12, 18, 60, 120}, []string{"Child", "Teen", "Adult", "Senior"}, "Adult")
	require.NoError(t, err)

	cases := map[string]struct {
		label string
		ok    bool
	}{
		"12":    {"Child", true},
		"12.5":  {"Teen", true},
		"18":    {"Teen", true},
		"60":    {"Adult", true},
		"80":    {"Senior", true},
		"0":     {"Adult", false}, // left edge is open
		"130":   {"Adult", false},
		"":      {"Adult", false},
		"NaN":   {"Adult", false},
		"adult": {"Adult", false},
	}
	for raw, want := range cases {
		label, ok := bins.Label(raw)
		assert.Equal(t, want.label, label, raw)
		assert.Equal(t, want.ok, ok, raw)
	}

	out, fallbacks := bins.Apply([]string{"5", "", "70"})
	assert.Equal(t, []string{"Child", "Adult", "Senior"}, out)
	assert.Equal(t, 1, fallbacks)
	assert.Equal(t, []string{"Child", "Teen", "Adult", "Senior"}, bins.States())
}

func TestBinsValidation(t *testing.T) {
	_, err := dataset.NewBins([]float64{1}, nil, "x")
	assert.Error(t, err)
	_, err = dataset.NewBins([]float64{0, 1, 1}, []string{"a", "b"}, "x")
	assert.Error(t, err)
	_, err = dataset.NewBins([]float64{0, 1}, []string{"a", "b"}, "x")
	assert.Error(t, err)
	_, err = dataset.NewBins([]float64{0, 1}, []string{"a"}, "")
	assert.Error(t, err)

	bins, err := dataset.NewBins([]float64{0, 1}, []string{"a"}, "other")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "other"}, bins.States())
}

func TestTableOperations(t *testing.T) {
	table, err := dataset.ReadCSV(strings.NewReader(titanicSample), ',')
	require.NoError(t, err)
	assert.Equal(t, 5, table.Len())
	assert.True(t, table.HasColumn("Fare"))

	_, err = table.Column("Cabin")
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)

	ages, err := table.Column("Age")
	require.NoError(t, err)
	filled, n := dataset.FillMissing(ages, "30")
	assert.Equal(t, 1, n)
	assert.Equal(t, "30", filled[4])

	withGroup, err := table.WithColumn("Group", []string{"a", "b", "a", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, 7, len(withGroup.Columns()))
	assert.Equal(t, 6, len(table.Columns()), "original table is untouched")

	selected, err := withGroup.Select([]string{"Sex", "Group"}, map[string]string{"Group": "G"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sex", "G"}, selected.Columns())

	_, err = table.WithColumn("Short", []string{"x"})
	assert.Error(t, err)
}

func TestDomainOrdering(t *testing.T) {
	assert.Equal(t, []string{"2", "3", "10"}, dataset.Domain([]string{"10", "3", "2", "3", ""}))
	assert.Equal(t, []string{"female", "male"}, dataset.Domain([]string{"male", "female", "NA"}))
}

func TestFileSourceLocalCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(titanicSample), 0644))

	src := dataset.NewFileSource("titanic", "training rows", path, "", time.Second)
	assert.Equal(t, "titanic", src.Name())
	table, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, table.Len())

	missing := dataset.NewFileSource("missing", "", filepath.Join(t.TempDir(), "nope.csv"), "csv", time.Second)
	_, err = missing.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFileSourceHTTPJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rows.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"Sex":"male","Age":22,"Survived":0},{"Sex":"female","Age":null,"Survived":1}]`))
	}))
	defer server.Close()

	src := dataset.NewFileSource("remote", "", server.URL+"/rows.json", "", time.Second)
	table, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Age", "Sex", "Survived"}, table.Columns())
	ages, err := table.Column("Age")
	require.NoError(t, err)
	assert.Equal(t, []string{"22", ""}, ages)

	bad := dataset.NewFileSource("remote", "", server.URL+"/missing.csv", "", time.Second)
	_, err = bad.Fetch(context.Background())
	assert.Error(t, err)
}

func TestReadHTMLTable(t *testing.T) {
	page := `<html><body>
	<table>
	  <tr><th>Sex</th><th>Survived</th></tr>
	  <tr><td> male </td><td>0</td></tr>
	  <tr><td>female</td><td>1</td></tr>
	</table>
	<table><tr><td>ignored</td></tr></table>
	</body></html>`

	table, err := dataset.ReadHTML(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, []string{"Sex", "Survived"}, table.Columns())
	sex, err := table.Column("Sex")
	require.NoError(t, err)
	assert.Equal(t, []string{"male", "female"}, sex)

	_, err = dataset.ReadHTML(strings.NewReader("<p>no table</p>"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "csv", dataset.FormatFromPath("data/train.csv"))
	assert.Equal(t, "json", dataset.FormatFromPath("https://example.org/rows.JSON?x=1"))
	assert.Equal(t, "html", dataset.FormatFromPath("page.htm"))
	assert.Equal(t, "tsv", dataset.FormatFromPath("rows.tsv"))
}
