/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: codec.go
Description: JSON and YAML encoding of networks. A Document lists variables with their
ordered domains, the edges and one probability column per parent assignment for every
CPD. Decoding always goes back through Build so a loaded model is validated like a new one.
*/

package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kleascm/bayesnet/pkg/bnerr"
	"github.com/kleascm/bayesnet/pkg/factor"
	"gopkg.in/yaml.v3"
)

// Supported document formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Document is the serialized form of a network
type Document struct {
	Name      string        `json:"name,omitempty" yaml:"name,omitempty"`
	Variables []VariableDoc `json:"variables" yaml:"variables"`
	Edges     []Edge        `json:"edges" yaml:"edges"`
	CPDs      []CPDDoc      `json:"cpds" yaml:"cpds"`
}

// VariableDoc is a variable with its ordered domain
type VariableDoc struct {
	Name   string   `json:"name" yaml:"name"`
	States []string `json:"states" yaml:"states,flow"`
}

// CPDDoc holds P(variable | parents) as one column per parent assignment, last parent fastest
type CPDDoc struct {
	Variable string      `json:"variable" yaml:"variable"`
	Parents  []string    `json:"parents,omitempty" yaml:"parents,omitempty,flow"`
	Columns  [][]float64 `json:"columns" yaml:"columns,flow"`
}

// ToDocument converts a network into its serializable form
func ToDocument(n *Network, name string) *Document {
	doc := &Document{Name: name, Edges: n.Edges()}
	for _, v := range n.Variables() {
		doc.Variables = append(doc.Variables, VariableDoc{Name: v.Name(), States: v.States()})
	}
	for _, cpd := range n.CPDs() {
		doc.CPDs = append(doc.CPDs, CPDDoc{
			Variable: cpd.Child().Name(),
			Parents:  cpd.ParentNames(),
			Columns:  cpd.Columns(),
		})
	}
	return doc
}

// FromDocument rebuilds and validates a network
func FromDocument(doc *Document, opts ...Option) (*Network, error) {
	vars := make([]factor.Variable, 0, len(doc.Variables))
	byName := make(map[string]factor.Variable, len(doc.Variables))
	for _, vd := range doc.Variables {
		v, err := factor.NewVariable(vd.Name, vd.States...)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
		byName[vd.Name] = v
	}

	cpds := make([]*factor.CPD, 0, len(doc.CPDs))
	for _, cd := range doc.CPDs {
		child, ok := byName[cd.Variable]
		if !ok {
			return nil, &bnerr.SchemaError{Variable: cd.Variable, Reason: "CPD for an undeclared variable"}
		}
		parents := make([]factor.Variable, len(cd.Parents))
		for i, p := range cd.Parents {
			if parents[i], ok = byName[p]; !ok {
				return nil, &bnerr.SchemaError{Variable: cd.Variable, Reason: fmt.Sprintf("CPD names undeclared parent %q", p)}
			}
		}
		cpd, err := factor.NewCPDFromColumns(child, parents, cd.Columns)
		if err != nil {
			return nil, err
		}
		cpds = append(cpds, cpd)
	}
	return Build(vars, doc.Edges, cpds, opts...)
}

// Encode writes the network in the given format
func Encode(w io.Writer, n *Network, name, format string) error {
	doc := ToDocument(n, name)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode network: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode network: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported network format: %s", format)
	}
	return nil
}

// Decode reads a document in the given format and builds the network
func Decode(r io.Reader, format string, opts ...Option) (*Network, *Document, error) {
	doc := &Document{}
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(doc); err != nil {
			return nil, nil, fmt.Errorf("failed to decode network: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(doc); err != nil {
			return nil, nil, fmt.Errorf("failed to decode network: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported network format: %s", format)
	}
	n, err := FromDocument(doc, opts...)
	if err != nil {
		return nil, nil, err
	}
	return n, doc, nil
}

// Marshal encodes the network to bytes
func Marshal(n *Network, name, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, n, name, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes bytes into a validated network
func Unmarshal(data []byte, format string, opts ...Option) (*Network, error) {
	n, _, err := Decode(bytes.NewReader(data), format, opts...)
	return n, err
}

// FormatForPath picks yaml for .yaml/.yml files and json otherwise
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}
