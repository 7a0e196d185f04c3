// Package dataset provides the training data sources.
package dataset

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/port"
)

// Open selects a source for the --data argument: a postgres:// or
// postgresql:// URL, a sqlite:// path, or otherwise a CSV file path.
// Database sources require a table name.
func Open(data, table string, logger *slog.Logger) (port.DatasetSource, error) {
	switch {
	case data == "":
		return nil, fmt.Errorf("no training data source given")
	case strings.HasPrefix(data, "postgres://"), strings.HasPrefix(data, "postgresql://"):
		if table == "" {
			return nil, fmt.Errorf("a table is required for postgres sources")
		}
		return NewPostgresSource(data, table, logger), nil
	case strings.HasPrefix(data, "sqlite://"):
		if table == "" {
			return nil, fmt.Errorf("a table is required for sqlite sources")
		}
		return NewSQLiteSource(strings.TrimPrefix(data, "sqlite://"), table), nil
	default:
		return NewCSVSource(data), nil
	}
}
