package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Record is one flat customer record keyed by column name.
// Values are string, json.Number, float64, int, bool or nil.
type Record map[string]any

// ErrMalformedRecord is returned when a request body is not a single flat JSON object.
var ErrMalformedRecord = errors.New("malformed record")

// ParseRecord decodes body as exactly one flat JSON object. Numbers are kept as
// json.Number so no precision is lost before feature coercion.
func ParseRecord(body []byte) (Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: request body is empty", ErrMalformedRecord)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", ErrMalformedRecord)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedRecord)
	}

	for key, v := range obj {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("%w: column %q holds a nested value", ErrMalformedRecord, key)
		}
	}

	return Record(obj), nil
}

// Value returns the value of column. Null values count as absent.
func (r Record) Value(column string) (any, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
