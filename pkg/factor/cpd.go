/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cpd.go
Description: Conditional probability tables. A CPD is a factor over [child, parents...]
read as P(child | parents); each fixed parent assignment selects a column whose weights
over the child's states must sum to one.
*/

package factor

import (
	"fmt"
	"math"

	"github.com/kleascm/bayesnet/pkg/bnerr"
)

// DefaultTolerance is the allowed drift of a CPD column sum from one
const DefaultTolerance = 1e-5

// CPD holds P(child | parents) as a factor with the child first in scope
type CPD struct {
	child   Variable
	parents []Variable
	table   *Factor
}

// NewCPD builds a CPD from a row-major table over [child, parents...]: values[c*n+j]
// is P(child=c | parent assignment j) where n is the number of parent assignments.
func NewCPD(child Variable, parents []Variable, values []float64) (*CPD, error) {
	scope := make([]Variable, 0, len(parents)+1)
	scope = append(scope, child)
	scope = append(scope, parents...)
	table, err := New(scope, values)
	if err != nil {
		return nil, fmt.Errorf("cpd for %q: %w", child.Name(), err)
	}
	ps := make([]Variable, len(parents))
	copy(ps, parents)
	return &CPD{child: child, parents: ps, table: table}, nil
}

// NewCPDFromColumns builds a CPD from one probability column per parent assignment
func NewCPDFromColumns(child Variable, parents []Variable, columns [][]float64) (*CPD, error) {
	n := tableSize(parents)
	if len(columns) != n {
		return nil, fmt.Errorf("cpd for %q: %w: need %d columns, got %d", child.Name(), ErrInvalidTable, n, len(columns))
	}
	values := make([]float64, child.Card()*n)
	for j, col := range columns {
		if len(col) != child.Card() {
			return nil, fmt.Errorf("cpd for %q: %w: column %d has %d entries, want %d",
				child.Name(), ErrInvalidTable, j, len(col), child.Card())
		}
		for c, p := range col {
			values[c*n+j] = p
		}
	}
	return NewCPD(child, parents, values)
}

// Child returns the conditioned variable
func (c *CPD) Child() Variable { return c.child }

// Parents returns the conditioning variables in table order
func (c *CPD) Parents() []Variable {
	out := make([]Variable, len(c.parents))
	copy(out, c.parents)
	return out
}

// ParentNames returns the conditioning variable names
func (c *CPD) ParentNames() []string {
	out := make([]string, len(c.parents))
	for i, p := range c.parents {
		out[i] = p.Name()
	}
	return out
}

// Factor returns the underlying table over [child, parents...]
func (c *CPD) Factor() *Factor { return c.table }

// NumColumns returns the number of parent assignments
func (c *CPD) NumColumns() int { return tableSize(c.parents) }

// Column returns P(child | parent assignment j)
func (c *CPD) Column(j int) []float64 {
	n := c.NumColumns()
	col := make([]float64, c.child.Card())
	for s := range col {
		col[s] = c.table.values[s*n+j]
	}
	return col
}

// Columns returns every column in parent assignment order
func (c *CPD) Columns() [][]float64 {
	out := make([][]float64, c.NumColumns())
	for j := range out {
		out[j] = c.Column(j)
	}
	return out
}

// ParentAssignment decodes column index j into parent labels
func (c *CPD) ParentAssignment(j int) map[string]string {
	out := make(map[string]string, len(c.parents))
	for i := len(c.parents) - 1; i >= 0; i-- {
		p := c.parents[i]
		out[p.Name()] = p.State(j % p.Card())
		j /= p.Card()
	}
	return out
}

// Check verifies every column sums to one within tol
func (c *CPD) Check(tol float64) error {
	for j := 0; j < c.NumColumns(); j++ {
		sum := 0.0
		for _, p := range c.Column(j) {
			sum += p
		}
		if math.Abs(sum-1) > tol || math.IsNaN(sum) {
			return &bnerr.NormalizationError{
				Variable:   c.child.Name(),
				Assignment: c.ParentAssignment(j),
				Sum:        sum,
			}
		}
	}
	return nil
}

func (c *CPD) String() string {
	return fmt.Sprintf("P(%s | %v)\n%s", c.child.Name(), c.ParentNames(), c.table.String())
}
