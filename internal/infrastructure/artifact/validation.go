package artifact

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const columnsSchemaJSON = `{
	"type": "array",
	"minItems": 1,
	"uniqueItems": true,
	"items": {"type": "string", "minLength": 1}
}`

const paramsSchemaJSON = `{
	"type": "object",
	"additionalProperties": {"type": "number"}
}`

const manifestSchemaJSON = `{
	"type": "object",
	"required": ["id", "created_at", "model_type", "label_column", "feature_columns", "categorical_columns", "hyperparameters", "checksums"],
	"properties": {
		"id": {"type": "string", "pattern": "^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$"},
		"created_at": {"type": "string", "minLength": 1},
		"model_type": {"type": "string", "minLength": 1},
		"label_column": {"type": "string"},
		"feature_columns": {"type": "array", "minItems": 1, "uniqueItems": true, "items": {"type": "string", "minLength": 1}},
		"categorical_columns": {"type": "array", "uniqueItems": true, "items": {"type": "string", "minLength": 1}},
		"hyperparameters": {"type": "object", "additionalProperties": {"type": "number"}},
		"checksums": {"type": "object", "additionalProperties": {"type": "string", "pattern": "^[0-9a-f]{64}$"}}
	}
}`

var (
	columnsSchema  = mustSchema(columnsSchemaJSON)
	paramsSchema   = mustSchema(paramsSchemaJSON)
	manifestSchema = mustSchema(manifestSchemaJSON)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("artifact: invalid built-in schema: %v", err))
	}
	return schema
}

// validateDocument checks raw JSON against schema and joins every violation into one error.
func validateDocument(schema *gojsonschema.Schema, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("does not match schema: %s", strings.Join(msgs, "; "))
}
