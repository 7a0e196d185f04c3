package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/gbt"
)

// ErrChecksumMismatch is wrapped when a file does not match its manifest checksum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ModelDecoder restores a classifier from its serialized form.
type ModelDecoder func(data []byte) (model.Classifier, error)

// Loader reads artifact sets, dispatching model decoding on the manifest model type.
type Loader struct {
	decoders map[string]ModelDecoder
}

// NewLoader creates a Loader that understands gbt models plus any extra decoders.
func NewLoader(extra map[string]ModelDecoder) *Loader {
	decoders := map[string]ModelDecoder{
		gbt.ModelType: func(data []byte) (model.Classifier, error) {
			c, err := gbt.Decode(data)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
	for k, d := range extra {
		decoders[k] = d
	}
	return &Loader{decoders: decoders}
}

// Load reads the artifact set in dir with the default decoders.
func Load(dir string) (*model.ArtifactSet, error) {
	return NewLoader(nil).Load(dir)
}

// Load reads and cross-checks the manifest, feature schema, encoder registry
// and model. Every failure is a *model.ArtifactLoadError naming the file.
func (l *Loader) Load(dir string) (*model.ArtifactSet, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	for _, name := range requiredFiles {
		if _, ok := manifest.Checksums[name]; !ok {
			return nil, &model.ArtifactLoadError{Artifact: name, Err: errors.New("not listed in manifest")}
		}
	}
	contents := make(map[string][]byte, len(manifest.Checksums))
	for _, name := range slices.Sorted(maps.Keys(manifest.Checksums)) {
		want := manifest.Checksums[name]
		if name != filepath.Base(name) {
			return nil, &model.ArtifactLoadError{Artifact: FileManifest, Err: fmt.Errorf("invalid file name %q", name)}
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, &model.ArtifactLoadError{Artifact: name, Err: err}
		}
		if got := checksum(data); got != want {
			return nil, &model.ArtifactLoadError{Artifact: name, Err: fmt.Errorf("%w: got %s, manifest has %s", ErrChecksumMismatch, got, want)}
		}
		contents[name] = data
	}

	schema, err := parseColumns(contents[FileColumns])
	if err != nil {
		return nil, &model.ArtifactLoadError{Artifact: FileColumns, Err: err}
	}
	if !slices.Equal(schema.Columns(), manifest.FeatureColumns) {
		return nil, &model.ArtifactLoadError{Artifact: FileColumns, Err: errors.New("columns differ from manifest feature_columns")}
	}

	registry, err := decodeRegistry(contents[FileEncoders])
	if err != nil {
		return nil, &model.ArtifactLoadError{Artifact: FileEncoders, Err: err}
	}
	if !slices.Equal(registry.Columns(), manifest.CategoricalColumns) {
		return nil, &model.ArtifactLoadError{Artifact: FileEncoders, Err: errors.New("columns differ from manifest categorical_columns")}
	}

	if err := validateDocument(paramsSchema, contents[FileParams]); err != nil {
		return nil, &model.ArtifactLoadError{Artifact: FileParams, Err: err}
	}

	decode, ok := l.decoders[manifest.ModelType]
	if !ok {
		return nil, &model.ArtifactLoadError{Artifact: FileModel, Err: fmt.Errorf("unknown model type %q", manifest.ModelType)}
	}
	classifier, err := decode(contents[FileModel])
	if err != nil {
		return nil, &model.ArtifactLoadError{Artifact: FileModel, Err: err}
	}

	set, err := model.NewArtifactSet(manifest, registry, schema, classifier)
	if err != nil {
		return nil, &model.ArtifactLoadError{Artifact: dir, Err: err}
	}
	return set, nil
}

// ReadManifest reads and validates manifest.json in dir.
func ReadManifest(dir string) (model.Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, FileManifest))
	if err != nil {
		return model.Manifest{}, &model.ArtifactLoadError{Artifact: FileManifest, Err: err}
	}
	if err := validateDocument(manifestSchema, raw); err != nil {
		return model.Manifest{}, &model.ArtifactLoadError{Artifact: FileManifest, Err: err}
	}
	var manifest model.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return model.Manifest{}, &model.ArtifactLoadError{Artifact: FileManifest, Err: err}
	}
	return manifest, nil
}

// ReadReport reads the training report persisted in metrics.json.
func ReadReport(dir string) (model.TrainingReport, error) {
	var report model.TrainingReport
	raw, err := os.ReadFile(filepath.Join(dir, FileMetrics))
	if err != nil {
		return report, &model.ArtifactLoadError{Artifact: FileMetrics, Err: err}
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		return report, &model.ArtifactLoadError{Artifact: FileMetrics, Err: err}
	}
	return report, nil
}

func parseColumns(raw []byte) (model.FeatureSchema, error) {
	if err := validateDocument(columnsSchema, raw); err != nil {
		return model.FeatureSchema{}, err
	}
	var columns []string
	if err := json.Unmarshal(raw, &columns); err != nil {
		return model.FeatureSchema{}, err
	}
	return model.CaptureSchema(columns)
}
