package model

import (
	"fmt"
	"strings"
)

// FeatureSchema is the ordered list of columns the model's feature vector expects.
type FeatureSchema struct {
	columns []string
	index   map[string]int
}

// CaptureSchema freezes the training-time column order.
func CaptureSchema(columns []string) (FeatureSchema, error) {
	if len(columns) == 0 {
		return FeatureSchema{}, fmt.Errorf("schema: no feature columns")
	}

	index := make(map[string]int, len(columns))
	owned := make([]string, len(columns))
	for i, name := range columns {
		if strings.TrimSpace(name) == "" {
			return FeatureSchema{}, fmt.Errorf("schema: blank column name at position %d", i)
		}
		if _, dup := index[name]; dup {
			return FeatureSchema{}, fmt.Errorf("schema: duplicate column %q", name)
		}
		index[name] = i
		owned[i] = name
	}

	return FeatureSchema{columns: owned, index: index}, nil
}

// Columns returns a copy of the column names in feature order.
func (s FeatureSchema) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Len returns the feature vector width.
func (s FeatureSchema) Len() int {
	return len(s.columns)
}

// Position returns the feature index of column.
func (s FeatureSchema) Position(column string) (int, bool) {
	i, ok := s.index[column]
	return i, ok
}

// Reorder returns the record's values in schema order. Keys not in the schema are ignored;
// absent or null columns yield a *MissingColumnError.
func (s FeatureSchema) Reorder(record Record) ([]any, error) {
	out := make([]any, len(s.columns))
	for i, name := range s.columns {
		v, ok := record.Value(name)
		if !ok {
			return nil, &MissingColumnError{Column: name}
		}
		out[i] = v
	}
	return out, nil
}
