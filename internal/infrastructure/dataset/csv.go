package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
)

// CSVSource reads a labeled dataset from a CSV file with a header row.
type CSVSource struct {
	path string
}

// NewCSVSource creates a CSVSource for path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Describe returns the file path.
func (s *CSVSource) Describe() string { return s.path }

// Load reads the whole file. A missing file is a *model.DataNotFoundError.
func (s *CSVSource) Load(ctx context.Context) (*model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &model.DataNotFoundError{Source: s.path, Err: err}
		}
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	return readCSV(f, s.path)
}

func readCSV(r io.Reader, name string) (*model.Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: file is empty", name)
		}
		return nil, fmt.Errorf("%s: reading header: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: reading rows: %w", name, err)
	}

	ds := &model.Dataset{Columns: header, Rows: rows}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ds, nil
}
