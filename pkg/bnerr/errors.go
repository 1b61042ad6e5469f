/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error kinds shared by the estimator, network and inference packages.
Every typed error matches its sentinel through errors.Is, so callers can test the kind
without caring how many fmt.Errorf layers wrapped it.
*/

package bnerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinels for errors.Is matching. Typed errors below report the details.
var (
	ErrStructure            = errors.New("bayesnet: structure error")
	ErrSchema               = errors.New("bayesnet: schema error")
	ErrNormalization        = errors.New("bayesnet: normalization error")
	ErrEvidenceDomain       = errors.New("bayesnet: evidence value outside domain")
	ErrInconsistentEvidence = errors.New("bayesnet: evidence has zero probability")
	ErrInvalidQuery         = errors.New("bayesnet: invalid query")
)

// StructureError reports a directed cycle among the declared edges.
type StructureError struct {
	Cycle []string // variables that could not be ordered
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("bayesnet: graph is not acyclic, cycle through [%s]", strings.Join(e.Cycle, ", "))
}

func (e *StructureError) Is(target error) bool { return target == ErrStructure }

// SchemaError reports a mismatch between declared variables, columns, edges and CPDs.
type SchemaError struct {
	Variable string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Variable == "" {
		return "bayesnet: schema: " + e.Reason
	}
	return fmt.Sprintf("bayesnet: schema: variable %q: %s", e.Variable, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// NormalizationError names the CPD column that does not sum to one.
type NormalizationError struct {
	Variable   string
	Assignment map[string]string // parent assignment of the offending column
	Sum        float64
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("bayesnet: CPD of %q does not normalize for {%s}: column sums to %g",
		e.Variable, FormatAssignment(e.Assignment), e.Sum)
}

func (e *NormalizationError) Is(target error) bool { return target == ErrNormalization }

// EvidenceDomainError reports an evidence value that is not a state of its variable.
type EvidenceDomainError struct {
	Variable string
	Value    string
	Domain   []string
}

func (e *EvidenceDomainError) Error() string {
	return fmt.Sprintf("bayesnet: evidence %s=%q is not in domain [%s]",
		e.Variable, e.Value, strings.Join(e.Domain, ", "))
}

func (e *EvidenceDomainError) Is(target error) bool { return target == ErrEvidenceDomain }

// InconsistentEvidenceError is returned when the evidence has zero joint probability.
type InconsistentEvidenceError struct {
	Evidence map[string]string
}

func (e *InconsistentEvidenceError) Error() string {
	return fmt.Sprintf("bayesnet: evidence {%s} has zero probability under the model",
		FormatAssignment(e.Evidence))
}

func (e *InconsistentEvidenceError) Is(target error) bool { return target == ErrInconsistentEvidence }

// InvalidQuery wraps ErrInvalidQuery with a reason.
func InvalidQuery(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}

// FormatAssignment renders an assignment as "A=x, B=y" with keys sorted.
func FormatAssignment(assignment map[string]string) string {
	keys := make([]string, 0, len(assignment))
	for k := range assignment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + assignment[k]
	}
	return strings.Join(parts, ", ")
}
