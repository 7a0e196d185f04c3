package postgres

import (
	"context"
	"fmt"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	pgutil "github.com/sibi-seeni/credit-churn-deploy/pkg/postgres"
)

// PredictionRepository implements port.PredictionRepository using PostgreSQL.
type PredictionRepository struct {
	db pgutil.Querier
}

// NewPredictionRepository creates a new PostgreSQL-backed prediction audit repository.
func NewPredictionRepository(db pgutil.Querier) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Save persists one prediction audit record.
func (r *PredictionRepository) Save(ctx context.Context, rec model.PredictionRecord) error {
	query := `
		INSERT INTO predictions (
			id, artifact_set_id, outcome, reason, detail,
			churn_probability, duration_us, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.ArtifactSetID,
		rec.Outcome,
		nullString(rec.Reason),
		nullString(rec.Detail),
		rec.Probability,
		rec.Duration.Microseconds(),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction %s: %w", rec.ID, err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
