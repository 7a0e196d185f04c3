package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
)

// Vectorizer turns one record into the feature vector the model was trained on.
// Training and serving share it so both sides apply the same transformation.
type Vectorizer struct {
	registry *model.Registry
	schema   model.FeatureSchema
	columns  []string
}

// NewVectorizer creates a Vectorizer for a registry and schema captured from the same dataset.
func NewVectorizer(registry *model.Registry, schema model.FeatureSchema) (*Vectorizer, error) {
	if registry == nil {
		return nil, fmt.Errorf("vectorizer: registry is required")
	}
	for _, col := range registry.Columns() {
		if _, ok := schema.Position(col); !ok {
			return nil, fmt.Errorf("vectorizer: categorical column %q is not a feature", col)
		}
	}
	return &Vectorizer{
		registry: registry,
		schema:   schema,
		columns:  schema.Columns(),
	}, nil
}

// Vectorize validates and encodes the categorical columns, reorders the record into
// schema order and coerces every value to float64. The input record is not modified.
//
// Errors are *model.MissingColumnError, *model.UnseenCategoryError or *model.InvalidValueError.
func (v *Vectorizer) Vectorize(record model.Record) ([]float64, error) {
	encoded := record.Clone()

	for _, col := range v.registry.Columns() {
		raw, ok := record.Value(col)
		if !ok {
			return nil, &model.MissingColumnError{Column: col}
		}
		category, err := categoryString(col, raw)
		if err != nil {
			return nil, err
		}
		code, err := v.registry.Encode(col, category)
		if err != nil {
			return nil, err
		}
		encoded[col] = code
	}

	values, err := v.schema.Reorder(encoded)
	if err != nil {
		return nil, err
	}

	vec := make([]float64, len(values))
	for i, raw := range values {
		f, err := toFloat(v.columns[i], raw)
		if err != nil {
			return nil, err
		}
		vec[i] = f
	}
	return vec, nil
}

// Width returns the feature vector length.
func (v *Vectorizer) Width() int {
	return len(v.columns)
}

func categoryString(column string, raw any) (string, error) {
	switch val := raw.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", &model.InvalidValueError{Column: column, Value: raw, Reason: "unsupported category type"}
	}
}

func toFloat(column string, raw any) (float64, error) {
	var f float64
	switch val := raw.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, &model.InvalidValueError{Column: column, Value: raw, Reason: "not a valid number"}
		}
		f = parsed
	case string:
		return 0, &model.InvalidValueError{Column: column, Value: raw, Reason: "expected a number, got a string"}
	default:
		return 0, &model.InvalidValueError{Column: column, Value: raw, Reason: fmt.Sprintf("expected a number, got %T", raw)}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &model.InvalidValueError{Column: column, Value: raw, Reason: "not a finite number"}
	}
	return f, nil
}
