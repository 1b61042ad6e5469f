/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: distribution.go
Description: Query results. A Distribution is a normalized factor over the query targets in
the order they were requested, plus the evidence it was conditioned on.
*/

package inference

import (
	"fmt"
	"strings"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/kleascm/bayesnet/pkg/factor"
)

// Distribution is a posterior over the query targets
type Distribution struct {
	table    *factor.Factor
	evidence map[string]string
}

// Targets returns the target names in query order
func (d *Distribution) Targets() []string { return d.table.Names() }

// Factor returns the normalized table
func (d *Distribution) Factor() *factor.Factor { return d.table }

// Evidence returns the conditioning assignment
func (d *Distribution) Evidence() map[string]string { return copyEvidence(d.evidence) }

// Prob returns the probability of a full target assignment
func (d *Distribution) Prob(assignment map[string]string) (float64, error) {
	return d.table.Value(assignment)
}

// Values returns the probabilities in table order
func (d *Distribution) Values() []float64 { return d.table.Values() }

// Entries lists every target assignment with its probability
func (d *Distribution) Entries() []factor.Entry { return d.table.Entries() }

// MostProbable returns the joint target assignment with the highest probability.
// Ties go to the first assignment in table order.
func (d *Distribution) MostProbable() (map[string]string, float64) {
	names := d.table.Names()
	best := -1.0
	var bestLabels []string
	for _, e := range d.table.Entries() {
		if e.Value > best {
			best, bestLabels = e.Value, e.Assignment
		}
	}
	out := make(map[string]string, len(names))
	for i, name := range names {
		out[name] = bestLabels[i]
	}
	return out, best
}

func (d *Distribution) String() string {
	given := ""
	if len(d.evidence) > 0 {
		given = " | " + bnerr.FormatAssignment(d.evidence)
	}
	return fmt.Sprintf("P(%s%s)\n%s", strings.Join(d.Targets(), ", "), given, d.table.String())
}
