// Package dataset loads interval definitions from YAML (or JSON) documents
// and builds interval trees from them.
//
// A document looks like:
//
//	intervals:
//	  - start: 0
//	    end: 10
//	    data: "0-10"
//
// Documents are checked against an embedded JSON schema before decoding.
// Bounds ordering (start < end) is left to the interval package, which
// reports the offending entry index.
package dataset

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/interval"
)

// Sentinel errors.
var (
	ErrEmptyDocument   = errors.New("dataset document is empty")
	ErrSchemaViolation = errors.New("dataset does not match schema")
)

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Entry is one interval definition.
type Entry struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Data  string  `yaml:"data"`
}

// Document is a parsed dataset.
type Document struct {
	Entries []Entry `yaml:"intervals"`
}

// FieldError is a single schema violation.
type FieldError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

func (fe FieldError) String() string {
	return fe.Field + ": " + fe.Description
}

// Validate checks raw against the dataset schema. It returns the schema
// violations found; the error is reserved for documents that cannot be
// decoded at all.
func Validate(raw []byte) ([]FieldError, error) {
	var generic any

	err := yaml.Unmarshal(raw, &generic)
	if err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	if generic == nil {
		return nil, ErrEmptyDocument
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile dataset schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(generic))
	if err != nil {
		return nil, fmt.Errorf("validate dataset: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	fieldErrors := make([]FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		fieldErrors = append(fieldErrors, FieldError{Field: re.Field(), Description: re.Description()})
	}

	return fieldErrors, nil
}

// Parse validates and decodes a dataset document.
func Parse(raw []byte) (*Document, error) {
	fieldErrors, err := Validate(raw)
	if err != nil {
		return nil, err
	}

	if len(fieldErrors) > 0 {
		msgs := make([]string, len(fieldErrors))
		for i, fe := range fieldErrors {
			msgs[i] = fe.String()
		}

		return nil, fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
	}

	var doc Document

	err = yaml.Unmarshal(raw, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	return &doc, nil
}

// Read parses a dataset from r.
func Read(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	return Parse(raw)
}

// LoadFile parses the dataset at path.
func LoadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	doc, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

// Intervals converts the entries to intervals without validating bounds.
func (d *Document) Intervals() []interval.Interval[float64, string] {
	out := make([]interval.Interval[float64, string], len(d.Entries))
	for i, e := range d.Entries {
		out[i] = interval.Interval[float64, string]{Start: e.Start, End: e.End, Data: e.Data}
	}

	return out
}

// Tree builds an interval tree from the document. An entry with
// start >= end fails the whole build with interval.ErrInvalidRange.
func (d *Document) Tree(opts ...interval.Option[float64, string]) (*interval.Tree[float64, string], error) {
	tree, err := interval.NewFromIntervals(d.Intervals(), opts...)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}

	return tree, nil
}
