package model

import (
	"fmt"
	"sort"
)

// Encoding maps the training-time vocabulary of one categorical column to dense integer codes.
// It is immutable once built.
type Encoding struct {
	column  string
	classes []string
	index   map[string]int
}

// BuildEncoding learns the vocabulary of a categorical column.
// Codes are assigned in lexicographic order of the distinct values, so the same
// input always yields the same mapping.
func BuildEncoding(column string, values []string) (*Encoding, error) {
	if column == "" {
		return nil, fmt.Errorf("encoding: column name is required")
	}

	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for i, v := range values {
		if v == "" {
			return nil, fmt.Errorf("encoding %s: empty value at row %d", column, i)
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)

	return NewEncoding(column, classes)
}

// NewEncoding reconstructs an Encoding from an ordered vocabulary where the
// position of each class is its code.
func NewEncoding(column string, classes []string) (*Encoding, error) {
	if column == "" {
		return nil, fmt.Errorf("encoding: column name is required")
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("encoding %s: %w", column, ErrEmptyVocabulary)
	}

	index := make(map[string]int, len(classes))
	for code, class := range classes {
		if class == "" {
			return nil, fmt.Errorf("encoding %s: empty class at code %d", column, code)
		}
		if _, dup := index[class]; dup {
			return nil, fmt.Errorf("encoding %s: duplicate class %q", column, class)
		}
		index[class] = code
	}

	owned := make([]string, len(classes))
	copy(owned, classes)

	return &Encoding{column: column, classes: owned, index: index}, nil
}

// Column returns the column this encoding belongs to.
func (e *Encoding) Column() string {
	return e.column
}

// Classes returns a copy of the vocabulary in code order.
func (e *Encoding) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Len returns the vocabulary size.
func (e *Encoding) Len() int {
	return len(e.classes)
}

// Encode returns the code for value or an *UnseenCategoryError.
func (e *Encoding) Encode(value string) (int, error) {
	code, ok := e.index[value]
	if !ok {
		return 0, &UnseenCategoryError{Column: e.column, Value: value}
	}
	return code, nil
}

// Decode returns the category for a code.
func (e *Encoding) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", fmt.Errorf("encoding %s: code %d out of range [0,%d)", e.column, code, len(e.classes))
	}
	return e.classes[code], nil
}

// Registry holds the encodings of every categorical column in a fixed order.
type Registry struct {
	columns   []string
	encodings map[string]*Encoding
}

// NewRegistry builds a registry; column order follows the order of encodings.
func NewRegistry(encodings ...*Encoding) (*Registry, error) {
	r := &Registry{
		columns:   make([]string, 0, len(encodings)),
		encodings: make(map[string]*Encoding, len(encodings)),
	}
	for _, enc := range encodings {
		if enc == nil {
			return nil, fmt.Errorf("registry: nil encoding")
		}
		if _, dup := r.encodings[enc.Column()]; dup {
			return nil, fmt.Errorf("registry: duplicate column %q", enc.Column())
		}
		r.columns = append(r.columns, enc.Column())
		r.encodings[enc.Column()] = enc
	}
	return r, nil
}

// Columns returns the categorical column names in validation order.
func (r *Registry) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of categorical columns.
func (r *Registry) Len() int {
	return len(r.columns)
}

// Has reports whether column is categorical.
func (r *Registry) Has(column string) bool {
	_, ok := r.encodings[column]
	return ok
}

// Encoding returns the encoding for column.
func (r *Registry) Encoding(column string) (*Encoding, bool) {
	enc, ok := r.encodings[column]
	return enc, ok
}

// Encode encodes value for a categorical column.
func (r *Registry) Encode(column, value string) (int, error) {
	enc, ok := r.encodings[column]
	if !ok {
		return 0, fmt.Errorf("registry: %q is not a categorical column", column)
	}
	return enc.Encode(value)
}
