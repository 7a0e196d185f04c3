package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/pkg/postgres"
)

// undefinedTable is the PostgreSQL SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// PostgresSource reads a labeled dataset from a PostgreSQL table.
type PostgresSource struct {
	logger *slog.Logger
	url    string
	table  string
}

// NewPostgresSource creates a source for table (optionally schema-qualified) at url.
func NewPostgresSource(url, table string, logger *slog.Logger) *PostgresSource {
	return &PostgresSource{url: url, table: table, logger: logger}
}

// Describe returns the table name; the URL is left out because it may hold credentials.
func (s *PostgresSource) Describe() string { return "postgres table " + s.table }

// Load selects every row of the table. Cells are rendered as text so the
// dataset matches what a CSV export would hold.
func (s *PostgresSource) Load(ctx context.Context) (*model.Dataset, error) {
	pool, err := postgres.NewPool(ctx, postgres.Config{URL: s.url, ApplicationName: "churn-train", MaxConns: 2, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	query := "SELECT * FROM " + pgx.Identifier(strings.Split(s.table, ".")).Sanitize()
	start := time.Now()

	rows, err := pool.Query(ctx, query)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return nil, &model.DataNotFoundError{Source: s.Describe(), Err: err}
		}
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	ds := &model.Dataset{Columns: make([]string, len(fields))}
	for i, f := range fields {
		ds.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading %s row %d: %w", s.table, len(ds.Rows), err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellText(v)
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.table, err)
	}

	s.logger.Debug("loaded training table",
		slog.String("table", s.table),
		slog.Int("rows", len(ds.Rows)),
		slog.Duration("elapsed", time.Since(start)),
	)
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// cellText renders a decoded column value as text. NULL becomes the empty string.
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
