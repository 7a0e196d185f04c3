package artifact

import (
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
)

// Store writes artifact sets to a directory on the local filesystem.
type Store struct {
	logger *slog.Logger
	now    func() time.Time
	dir    string
}

// NewStore creates a Store that persists to dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger, now: time.Now}
}

// Location returns the set directory.
func (s *Store) Location() string { return s.dir }

// Save serializes every artifact into a temporary sibling directory and then
// swaps it into place. An existing set is replaced only once the new one is
// complete, so readers never observe a partial set. On error nothing is left
// behind and any previous set is untouched.
func (s *Store) Save(ctx context.Context, art *model.TrainedArtifacts) (model.Manifest, error) {
	files, manifest, err := s.render(art)
	if err != nil {
		return model.Manifest{}, err
	}

	parent := filepath.Dir(filepath.Clean(s.dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return model.Manifest{}, fmt.Errorf("creating %s: %w", parent, err)
	}

	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(s.dir)+".tmp-")
	if err != nil {
		return model.Manifest{}, fmt.Errorf("creating staging directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmp)
		}
	}()
	if err := os.Chmod(tmp, 0o755); err != nil {
		return model.Manifest{}, fmt.Errorf("creating staging directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeFileSync(filepath.Join(tmp, name), files[name]); err != nil {
			return model.Manifest{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return model.Manifest{}, fmt.Errorf("saving artifacts: %w", err)
	}
	if err := swap(tmp, s.dir, manifest.ID); err != nil {
		return model.Manifest{}, err
	}
	committed = true

	s.logger.Info("artifact set saved",
		slog.String("dir", s.dir),
		slog.String("artifact_set_id", manifest.ID.String()),
		slog.Int("files", len(files)),
	)
	return manifest, nil
}

// render serializes all files and builds the manifest that pins their checksums.
func (s *Store) render(art *model.TrainedArtifacts) (map[string][]byte, model.Manifest, error) {
	if art == nil || art.Registry == nil || art.Model == nil || art.Schema.Len() == 0 {
		return nil, model.Manifest{}, errors.New("saving artifacts: incomplete artifact set")
	}
	marshaler, ok := art.Model.(encoding.BinaryMarshaler)
	if !ok {
		return nil, model.Manifest{}, fmt.Errorf("saving artifacts: model %T cannot be serialized", art.Model)
	}

	files := make(map[string][]byte, 6+len(art.Diagnostics))
	var err error

	if files[FileColumns], err = json.MarshalIndent(art.Schema.Columns(), "", "  "); err != nil {
		return nil, model.Manifest{}, fmt.Errorf("encoding %s: %w", FileColumns, err)
	}
	if files[FileEncoders], err = encodeRegistry(art.Registry); err != nil {
		return nil, model.Manifest{}, err
	}
	if files[FileModel], err = marshaler.MarshalBinary(); err != nil {
		return nil, model.Manifest{}, fmt.Errorf("encoding %s: %w", FileModel, err)
	}
	params := art.Report.BestParams
	if params == nil {
		params = map[string]float64{}
	}
	if files[FileParams], err = json.MarshalIndent(params, "", "  "); err != nil {
		return nil, model.Manifest{}, fmt.Errorf("encoding %s: %w", FileParams, err)
	}
	if files[FileMetrics], err = json.MarshalIndent(art.Report, "", "  "); err != nil {
		return nil, model.Manifest{}, fmt.Errorf("encoding %s: %w", FileMetrics, err)
	}
	for name, data := range art.Diagnostics {
		if name != filepath.Base(name) || name == FileManifest || files[name] != nil {
			return nil, model.Manifest{}, fmt.Errorf("saving artifacts: invalid diagnostic name %q", name)
		}
		files[name] = data
	}

	manifest := model.Manifest{
		ID:                 uuid.New(),
		CreatedAt:          s.now().UTC(),
		ModelType:          art.ModelType,
		LabelColumn:        art.LabelColumn,
		FeatureColumns:     art.Schema.Columns(),
		CategoricalColumns: art.Registry.Columns(),
		Hyperparameters:    params,
		Checksums:          make(map[string]string, len(files)),
	}
	for name, data := range files {
		manifest.Checksums[name] = checksum(data)
	}

	if files[FileManifest], err = json.MarshalIndent(manifest, "", "  "); err != nil {
		return nil, model.Manifest{}, fmt.Errorf("encoding %s: %w", FileManifest, err)
	}
	return files, manifest, nil
}

// swap moves staged into dest, keeping any previous set until the rename succeeds.
func swap(staged, dest string, id uuid.UUID) error {
	backup := ""
	if _, err := os.Stat(dest); err == nil {
		backup = fmt.Sprintf("%s.old-%s", filepath.Clean(dest), id)
		if err := os.Rename(dest, backup); err != nil {
			return fmt.Errorf("moving previous artifact set aside: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", dest, err)
	}

	if err := os.Rename(staged, dest); err != nil {
		if backup != "" {
			_ = os.Rename(backup, dest)
		}
		return fmt.Errorf("publishing artifact set: %w", err)
	}

	if backup != "" {
		_ = os.RemoveAll(backup)
	}
	return nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
