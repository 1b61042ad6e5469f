/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Model and query reports. A ModelReport lists the variables, edges, every CPD
table and the fallback substitutions made while estimating; a QueryReport holds one
posterior. Both are written as timestamped JSON and HTML files under a run directory.
*/

package reporting

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/bayesnet/pkg/estimator"
	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/inference"
	"github.com/kleascm/bayesnet/pkg/network"
	"github.com/sirupsen/logrus"
)

// ModelReport summarises a trained network
type ModelReport struct {
	Title       string               `json:"title"`
	RunID       string               `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Model       string               `json:"model"`
	Rows        int                  `json:"rows"`
	Variables   []VariableSummary    `json:"variables"`
	Edges       []network.Edge       `json:"edges"`
	CPDs        []CPDTable           `json:"cpds"`
	Fallbacks   []estimator.Fallback `json:"fallbacks"`
}

// VariableSummary is one variable with its domain and neighbors
type VariableSummary struct {
	Name     string   `json:"name"`
	States   []string `json:"states"`
	Parents  []string `json:"parents"`
	Children []string `json:"children"`
}

// CPDTable is a CPD flattened for display: one row per parent assignment
type CPDTable struct {
	Variable     string   `json:"variable"`
	Parents      []string `json:"parents"`
	States       []string `json:"states"`
	Rows         []CPDRow `json:"rows"`
	Renormalized int      `json:"renormalized"`
}

// CPDRow is P(variable | one parent assignment)
type CPDRow struct {
	Assignment []string  `json:"assignment"`
	Probs      []float64 `json:"probs"`
	Fallback   bool      `json:"fallback"`
}

// QueryReport holds one answered query
type QueryReport struct {
	Title       string            `json:"title"`
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Model       string            `json:"model"`
	Engine      string            `json:"engine"`
	Targets     []string          `json:"targets"`
	Evidence    map[string]string `json:"evidence"`
	Duration    time.Duration     `json:"duration_ns"`
	Entries     []factor.Entry    `json:"entries"`
	MAP         map[string]string `json:"map"`
	MAPProb     float64           `json:"map_probability"`
}

// NewModelReport builds the report for net; estimates may be nil for loaded models
func NewModelReport(model string, net *network.Network, rows int, estimates []*estimator.Estimate) *ModelReport {
	r := &ModelReport{
		Title:       fmt.Sprintf("Model %s", model),
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now(),
		Model:       model,
		Rows:        rows,
		Edges:       net.Edges(),
	}
	for _, v := range net.Variables() {
		r.Variables = append(r.Variables, VariableSummary{
			Name:     v.Name(),
			States:   v.States(),
			Parents:  net.Parents(v.Name()),
			Children: net.Children(v.Name()),
		})
	}

	fellBack := make(map[string]map[string]bool)
	renormalized := make(map[string]int)
	for _, est := range estimates {
		if est == nil {
			continue
		}
		name := est.CPD.Child().Name()
		renormalized[name] = est.Renormalized + est.Forced
		for _, fb := range est.Fallbacks {
			if fellBack[name] == nil {
				fellBack[name] = make(map[string]bool)
			}
			fellBack[name][formatKey(fb.Assignment)] = true
			r.Fallbacks = append(r.Fallbacks, fb)
		}
	}

	for _, cpd := range net.CPDs() {
		table := CPDTable{
			Variable:     cpd.Child().Name(),
			Parents:      cpd.ParentNames(),
			States:       cpd.Child().States(),
			Renormalized: renormalized[cpd.Child().Name()],
		}
		for j := 0; j < cpd.NumColumns(); j++ {
			assignment := cpd.ParentAssignment(j)
			labels := make([]string, len(table.Parents))
			for i, p := range table.Parents {
				labels[i] = assignment[p]
			}
			table.Rows = append(table.Rows, CPDRow{
				Assignment: labels,
				Probs:      cpd.Column(j),
				Fallback:   fellBack[table.Variable][formatKey(assignment)],
			})
		}
		r.CPDs = append(r.CPDs, table)
	}
	return r
}

// NewQueryReport builds the report for one posterior
func NewQueryReport(model, engine string, dist *inference.Distribution, elapsed time.Duration) *QueryReport {
	best, p := dist.MostProbable()
	return &QueryReport{
		Title:       fmt.Sprintf("Query on %s", model),
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now(),
		Model:       model,
		Engine:      engine,
		Targets:     dist.Targets(),
		Evidence:    dist.Evidence(),
		Duration:    elapsed,
		Entries:     dist.Entries(),
		MAP:         best,
		MAPProb:     p,
	}
}

func formatKey(assignment map[string]string) string {
	b, _ := json.Marshal(assignment) // map keys are sorted by encoding/json
	return string(b)
}

// Generator writes reports into an output directory
type Generator struct {
	outputDir string
	logger    logrus.FieldLogger
	templates *template.Template
}

// NewGenerator parses the report templates
func NewGenerator(outputDir string, logger logrus.FieldLogger) (*Generator, error) {
	tmpl, err := template.New("reports").Funcs(template.FuncMap{
		"prob":    func(p float64) string { return fmt.Sprintf("%.4f", p) },
		"percent": func(p float64) string { return fmt.Sprintf("%.1f", p*100) },
	}).Parse(reportTemplates)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report templates: %w", err)
	}
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Generator{outputDir: outputDir, logger: logger, templates: tmpl}, nil
}

// WriteModelReport writes the JSON and HTML forms and returns their paths
func (g *Generator) WriteModelReport(r *ModelReport) ([]string, error) {
	return g.write("model", r.GeneratedAt, r, "model.html")
}

// WriteQueryReport writes the JSON and HTML forms and returns their paths
func (g *Generator) WriteQueryReport(r *QueryReport) ([]string, error) {
	return g.write("query", r.GeneratedAt, r, "query.html")
}

// RenderModelHTML renders the HTML form of a model report
func (g *Generator) RenderModelHTML(w io.Writer, r *ModelReport) error {
	return g.templates.ExecuteTemplate(w, "model.html", r)
}

// RenderQueryHTML renders the HTML form of a query report
func (g *Generator) RenderQueryHTML(w io.Writer, r *QueryReport) error {
	return g.templates.ExecuteTemplate(w, "query.html", r)
}

// write stores report as <dir>/<kind>/<timestamp>_<kind>.{json,html}
func (g *Generator) write(kind string, at time.Time, report interface{}, tmpl string) ([]string, error) {
	dir := filepath.Join(g.outputDir, kind)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	base := filepath.Join(dir, fmt.Sprintf("%s_%s", at.Format("2006-01-02_15-04-05.000"), kind))

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	jsonPath := base + ".json"
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write report file: %w", err)
	}

	htmlPath := base + ".html"
	file, err := os.Create(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()
	if err := g.templates.ExecuteTemplate(file, tmpl, report); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"kind": kind,
		"json": jsonPath,
		"html": htmlPath,
	}).Info("Report written")
	return []string{jsonPath, htmlPath}, nil
}
