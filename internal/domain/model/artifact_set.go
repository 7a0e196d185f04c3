package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Classifier is a fitted binary classifier. Implementations must be safe for
// concurrent use once fitted.
type Classifier interface {
	// PredictProbability returns the positive-class probability for each row of X.
	PredictProbability(X [][]float64) ([]float64, error)
	// NumFeatures returns the feature vector width the classifier was fit on.
	NumFeatures() int
}

// Manifest identifies one artifact set and pins the checksum of every file in it.
type Manifest struct {
	CreatedAt          time.Time          `json:"created_at"`
	Hyperparameters    map[string]float64 `json:"hyperparameters"`
	Checksums          map[string]string  `json:"checksums"`
	FeatureColumns     []string           `json:"feature_columns"`
	CategoricalColumns []string           `json:"categorical_columns"`
	LabelColumn        string             `json:"label_column"`
	ModelType          string             `json:"model_type"`
	ID                 uuid.UUID          `json:"id"`
}

// ArtifactSet is the immutable context shared by every prediction request.
// It is built once by the artifact loader and never mutated.
type ArtifactSet struct {
	manifest Manifest
	registry *Registry
	schema   FeatureSchema
	model    Classifier
}

// NewArtifactSet checks the three artifacts agree with each other.
func NewArtifactSet(manifest Manifest, registry *Registry, schema FeatureSchema, classifier Classifier) (*ArtifactSet, error) {
	if registry == nil {
		return nil, fmt.Errorf("artifact set: registry is required")
	}
	if schema.Len() == 0 {
		return nil, fmt.Errorf("artifact set: schema is empty")
	}
	if classifier == nil {
		return nil, fmt.Errorf("artifact set: model is required")
	}
	for _, col := range registry.Columns() {
		if _, ok := schema.Position(col); !ok {
			return nil, fmt.Errorf("artifact set: categorical column %q is not in the feature schema", col)
		}
	}
	if classifier.NumFeatures() != schema.Len() {
		return nil, fmt.Errorf("artifact set: model expects %d features, schema has %d",
			classifier.NumFeatures(), schema.Len())
	}

	return &ArtifactSet{
		manifest: manifest,
		registry: registry,
		schema:   schema,
		model:    classifier,
	}, nil
}

// ID returns the artifact set identifier.
func (a *ArtifactSet) ID() uuid.UUID { return a.manifest.ID }

// Manifest returns the manifest the set was loaded with.
func (a *ArtifactSet) Manifest() Manifest { return a.manifest }

// Registry returns the categorical encoder registry.
func (a *ArtifactSet) Registry() *Registry { return a.registry }

// Schema returns the feature schema.
func (a *ArtifactSet) Schema() FeatureSchema { return a.schema }

// Model returns the fitted classifier.
func (a *ArtifactSet) Model() Classifier { return a.model }
