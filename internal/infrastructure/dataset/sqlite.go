package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
)

// SQLiteSource reads a labeled dataset from a table in a SQLite database file.
type SQLiteSource struct {
	path  string
	table string
}

// NewSQLiteSource creates a source for table in the database at path.
func NewSQLiteSource(path, table string) *SQLiteSource {
	return &SQLiteSource{path: path, table: table}
}

// Describe returns the database path and table.
func (s *SQLiteSource) Describe() string { return s.path + "#" + s.table }

// Load selects every row of the table.
func (s *SQLiteSource) Load(ctx context.Context) (*model.Dataset, error) {
	// The driver creates missing files on open, so check first.
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &model.DataNotFoundError{Source: s.path, Err: err}
		}
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(s.table))
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, &model.DataNotFoundError{Source: s.Describe(), Err: err}
		}
		return nil, fmt.Errorf("querying %s: %w", s.Describe(), err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", s.Describe(), err)
	}

	ds := &model.Dataset{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row %d: %w", s.Describe(), len(ds.Rows), err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = cellText(v)
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Describe(), err)
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
