/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: factor.go
Description: Immutable factor tables over ordered tuples of discrete variables and the
algebra used by exact inference: restriction by evidence, pointwise product, summing a
variable out and normalization. Tables are dense and row-major with the last scope
variable varying fastest.
*/

package factor

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/kleascm/bayesnet/pkg/bnerr"
)

var (
	// ErrNotInScope is returned when an operation names a variable the factor does not cover
	ErrNotInScope = errors.New("factor: variable not in scope")
	// ErrZeroPartition is returned by Normalize when the weights sum to zero
	ErrZeroPartition = errors.New("factor: cannot normalize, total weight is zero")
	// ErrInvalidTable is returned for tables of the wrong size or with bad weights
	ErrInvalidTable = errors.New("factor: invalid table")
)

// Evidence maps variable names to observed state labels
type Evidence map[string]string

// Factor maps every joint assignment of its scope to a non-negative weight
type Factor struct {
	scope   []Variable
	strides []int
	values  []float64
}

// Entry is one row of a factor table
type Entry struct {
	Assignment []string `json:"assignment"` // state labels in scope order
	Value      float64  `json:"value"`
}

// New builds a factor; values are row-major with the last scope variable fastest
func New(scope []Variable, values []float64) (*Factor, error) {
	seen := make(map[string]bool, len(scope))
	for _, v := range scope {
		if v.Card() == 0 {
			return nil, &bnerr.SchemaError{Variable: v.Name(), Reason: "variable has no domain"}
		}
		if seen[v.Name()] {
			return nil, fmt.Errorf("%w: variable %q appears twice in scope", ErrInvalidTable, v.Name())
		}
		seen[v.Name()] = true
	}
	size := tableSize(scope)
	if len(values) != size {
		return nil, fmt.Errorf("%w: scope needs %d weights, got %d", ErrInvalidTable, size, len(values))
	}
	for i, w := range values {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %d is %v", ErrInvalidTable, i, w)
		}
	}
	owned := make([]float64, size)
	copy(owned, values)
	return build(scope, owned), nil
}

// Scalar returns a factor with empty scope holding a single weight
func Scalar(w float64) *Factor {
	return build(nil, []float64{w})
}

// build wraps trusted values without validation
func build(scope []Variable, values []float64) *Factor {
	s := make([]Variable, len(scope))
	copy(s, scope)
	return &Factor{scope: s, strides: stridesOf(s), values: values}
}

func tableSize(scope []Variable) int {
	size := 1
	for _, v := range scope {
		size *= v.Card()
	}
	return size
}

func stridesOf(scope []Variable) []int {
	strides := make([]int, len(scope))
	step := 1
	for i := len(scope) - 1; i >= 0; i-- {
		strides[i] = step
		step *= scope[i].Card()
	}
	return strides
}

func cardsOf(scope []Variable) []int {
	cards := make([]int, len(scope))
	for i, v := range scope {
		cards[i] = v.Card()
	}
	return cards
}

// walk visits every assignment of cards in row-major order and hands fn the running
// offsets into each stride table. A stride of zero means the table ignores that digit.
func walk(cards []int, strides [][]int, fn func(step int, offsets []int)) {
	total := 1
	for _, c := range cards {
		total *= c
	}
	digits := make([]int, len(cards))
	offsets := make([]int, len(strides))
	for step := 0; step < total; step++ {
		fn(step, offsets)
		for j := len(cards) - 1; j >= 0; j-- {
			digits[j]++
			if digits[j] < cards[j] {
				for k := range strides {
					offsets[k] += strides[k][j]
				}
				break
			}
			digits[j] = 0
			for k := range strides {
				offsets[k] -= strides[k][j] * (cards[j] - 1)
			}
		}
	}
}

// Scope returns the ordered variables of the factor
func (f *Factor) Scope() []Variable {
	out := make([]Variable, len(f.scope))
	copy(out, f.scope)
	return out
}

// Names returns the scope variable names in order
func (f *Factor) Names() []string {
	out := make([]string, len(f.scope))
	for i, v := range f.scope {
		out[i] = v.Name()
	}
	return out
}

// Values returns a copy of the table
func (f *Factor) Values() []float64 {
	out := make([]float64, len(f.values))
	copy(out, f.values)
	return out
}

// Size returns the number of table entries
func (f *Factor) Size() int { return len(f.values) }

// Position returns the index of name in the scope, or -1
func (f *Factor) Position(name string) int {
	for i, v := range f.scope {
		if v.Name() == name {
			return i
		}
	}
	return -1
}

// Contains reports whether name is in scope
func (f *Factor) Contains(name string) bool { return f.Position(name) >= 0 }

// Sum returns the total weight
func (f *Factor) Sum() float64 {
	total := 0.0
	for _, w := range f.values {
		total += w
	}
	return total
}

// Value returns the weight of a full assignment given as labels
func (f *Factor) Value(assignment map[string]string) (float64, error) {
	offset := 0
	for i, v := range f.scope {
		label, ok := assignment[v.Name()]
		if !ok {
			return 0, fmt.Errorf("%w: assignment is missing %q", ErrNotInScope, v.Name())
		}
		idx, err := v.CheckState(label)
		if err != nil {
			return 0, err
		}
		offset += idx * f.strides[i]
	}
	return f.values[offset], nil
}

// Restrict drops evidenced variables from the scope, keeping the consistent slice.
// Evidence on variables outside the scope is ignored.
func (f *Factor) Restrict(evidence Evidence) (*Factor, error) {
	base := 0
	var kept []Variable
	var keptStrides []int
	for i, v := range f.scope {
		label, observed := evidence[v.Name()]
		if !observed {
			kept = append(kept, v)
			keptStrides = append(keptStrides, f.strides[i])
			continue
		}
		idx, err := v.CheckState(label)
		if err != nil {
			return nil, err
		}
		base += idx * f.strides[i]
	}
	if len(kept) == len(f.scope) {
		return f, nil
	}

	out := make([]float64, tableSize(kept))
	walk(cardsOf(kept), [][]int{keptStrides}, func(step int, off []int) {
		out[step] = f.values[base+off[0]]
	})
	return build(kept, out), nil
}

// Product multiplies two factors pointwise. The result scope is the receiver's scope
// followed by the other factor's variables that are not already present.
func (f *Factor) Product(other *Factor) (*Factor, error) {
	scope := f.Scope()
	for _, v := range other.scope {
		pos := f.Position(v.Name())
		if pos < 0 {
			scope = append(scope, v)
			continue
		}
		if !f.scope[pos].SameDomain(v) {
			return nil, &bnerr.SchemaError{Variable: v.Name(), Reason: "factors disagree on the variable's domain"}
		}
	}

	left := make([]int, len(scope))
	right := make([]int, len(scope))
	for j, v := range scope {
		if p := f.Position(v.Name()); p >= 0 {
			left[j] = f.strides[p]
		}
		if p := other.Position(v.Name()); p >= 0 {
			right[j] = other.strides[p]
		}
	}

	out := make([]float64, tableSize(scope))
	walk(cardsOf(scope), [][]int{left, right}, func(step int, off []int) {
		out[step] = f.values[off[0]] * other.values[off[1]]
	})
	return build(scope, out), nil
}

// SumOut marginalizes name out of the factor
func (f *Factor) SumOut(name string) (*Factor, error) {
	pos := f.Position(name)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotInScope, name)
	}
	kept := make([]Variable, 0, len(f.scope)-1)
	kept = append(kept, f.scope[:pos]...)
	kept = append(kept, f.scope[pos+1:]...)

	keptStrides := stridesOf(kept)
	into := make([]int, len(f.scope))
	for j := range f.scope {
		switch {
		case j < pos:
			into[j] = keptStrides[j]
		case j > pos:
			into[j] = keptStrides[j-1]
		}
	}

	out := make([]float64, tableSize(kept))
	walk(cardsOf(f.scope), [][]int{into}, func(step int, off []int) {
		out[off[0]] += f.values[step]
	})
	return build(kept, out), nil
}

// Normalize scales weights to sum to one. A zero total is reported, never patched.
func (f *Factor) Normalize() (*Factor, error) {
	total := f.Sum()
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, ErrZeroPartition
	}
	out := make([]float64, len(f.values))
	for i, w := range f.values {
		out[i] = w / total
	}
	return build(f.scope, out), nil
}

// Reorder returns the same table with the scope permuted to names
func (f *Factor) Reorder(names ...string) (*Factor, error) {
	if len(names) != len(f.scope) {
		return nil, fmt.Errorf("%w: reorder needs %d names, got %d", ErrNotInScope, len(f.scope), len(names))
	}
	scope := make([]Variable, len(names))
	from := make([]int, len(names))
	used := make(map[string]bool, len(names))
	for j, name := range names {
		pos := f.Position(name)
		if pos < 0 || used[name] {
			return nil, fmt.Errorf("%w: cannot reorder to %q", ErrNotInScope, name)
		}
		used[name] = true
		scope[j] = f.scope[pos]
		from[j] = f.strides[pos]
	}

	out := make([]float64, len(f.values))
	walk(cardsOf(scope), [][]int{from}, func(step int, off []int) {
		out[step] = f.values[off[0]]
	})
	return build(scope, out), nil
}

// ApproxEqual compares two factors up to scope order within tol
func (f *Factor) ApproxEqual(other *Factor, tol float64) bool {
	if len(f.scope) != len(other.scope) {
		return false
	}
	aligned, err := other.Reorder(f.Names()...)
	if err != nil {
		return false
	}
	for i, v := range f.scope {
		if !v.SameDomain(aligned.scope[i]) {
			return false
		}
	}
	for i := range f.values {
		if math.Abs(f.values[i]-aligned.values[i]) > tol {
			return false
		}
	}
	return true
}

// Entries lists every assignment with its weight in table order
func (f *Factor) Entries() []Entry {
	entries := make([]Entry, 0, len(f.values))
	cards := cardsOf(f.scope)
	digits := make([]int, len(cards))
	for step := range f.values {
		labels := make([]string, len(f.scope))
		rem := step
		for j := range f.scope {
			digits[j] = rem / f.strides[j]
			rem %= f.strides[j]
			labels[j] = f.scope[j].State(digits[j])
		}
		entries = append(entries, Entry{Assignment: labels, Value: f.values[step]})
	}
	return entries
}

// String renders the table, one assignment per line
func (f *Factor) String() string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	header := append(f.Names(), "phi")
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, e := range f.Entries() {
		row := append(e.Assignment, fmt.Sprintf("%.6f", e.Value))
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
	return sb.String()
}
