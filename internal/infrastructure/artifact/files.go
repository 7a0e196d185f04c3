// Package artifact persists and loads the versioned artifact set shared by
// the training pipeline and the prediction service.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
)

// Artifact file names inside a set directory.
const (
	FileColumns  = "columns.json"
	FileEncoders = "encoders.gob"
	FileModel    = "model.gob"
	FileParams   = "params.json"
	FileMetrics  = "metrics.json"
	FileManifest = "manifest.json"
)

// requiredFiles must be present and checksummed in every set.
var requiredFiles = []string{FileColumns, FileEncoders, FileModel, FileParams}

// encoderFile is the gob payload of encoders.gob: registry order plus each
// column's ordered vocabulary, where position is the code.
type encoderFile struct {
	Columns []string
	Classes map[string][]string
}

func encodeRegistry(reg *model.Registry) ([]byte, error) {
	payload := encoderFile{Columns: reg.Columns(), Classes: make(map[string][]string, reg.Len())}
	for _, col := range payload.Columns {
		enc, _ := reg.Encoding(col)
		payload.Classes[col] = enc.Classes()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encoding registry: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRegistry(data []byte) (*model.Registry, error) {
	var payload encoderFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding registry: %w", err)
	}
	if len(payload.Classes) != len(payload.Columns) {
		return nil, fmt.Errorf("registry lists %d columns but holds %d vocabularies", len(payload.Columns), len(payload.Classes))
	}

	encodings := make([]*model.Encoding, 0, len(payload.Columns))
	for _, col := range payload.Columns {
		classes, ok := payload.Classes[col]
		if !ok {
			return nil, fmt.Errorf("registry has no vocabulary for column %q", col)
		}
		enc, err := model.NewEncoding(col, classes)
		if err != nil {
			return nil, err
		}
		encodings = append(encodings, enc)
	}
	return model.NewRegistry(encodings...)
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
