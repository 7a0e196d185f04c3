package model

import (
	"errors"
	"fmt"
)

// ErrEmptyVocabulary is returned when a categorical column has no values to learn from.
var ErrEmptyVocabulary = errors.New("categorical column has no values")

// UnseenCategoryError is returned when a value was not part of the training-time vocabulary.
type UnseenCategoryError struct {
	Column string
	Value  string
}

func (e *UnseenCategoryError) Error() string {
	return fmt.Sprintf("unseen category %q for column %q", e.Value, e.Column)
}

// MissingColumnError is returned when a required column is absent from a record or dataset.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("Missing column: %s", e.Column)
}

// InvalidValueError is returned when a feature value cannot be used as a model input.
type InvalidValueError struct {
	Column string
	Value  any
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v for column %q: %s", e.Value, e.Column, e.Reason)
}

// DataNotFoundError is returned when the training data source is unavailable.
type DataNotFoundError struct {
	Source string
	Err    error
}

func (e *DataNotFoundError) Error() string {
	return fmt.Sprintf("training data not found at %s: %v", e.Source, e.Err)
}

func (e *DataNotFoundError) Unwrap() error { return e.Err }

// LabelError is returned when a label value is not in the label dictionary.
type LabelError struct {
	Column string
	Value  string
	Row    int
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("unrecognized label %q in column %q at row %d", e.Value, e.Column, e.Row)
}

// ArtifactLoadError is returned when a persisted artifact is missing, unreadable or malformed.
type ArtifactLoadError struct {
	Artifact string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("loading artifact %s: %v", e.Artifact, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }
