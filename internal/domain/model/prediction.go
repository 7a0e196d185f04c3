package model

import (
	"time"

	"github.com/google/uuid"
)

// PredictionRecord is the audit trail of one answered request.
type PredictionRecord struct {
	CreatedAt     time.Time
	Probability   *float64
	Outcome       string
	Reason        string
	Detail        string
	Duration      time.Duration
	ID            uuid.UUID
	ArtifactSetID uuid.UUID
}

// NewPredictionRecord builds the audit record for an outcome.
func NewPredictionRecord(artifactSetID uuid.UUID, outcome Outcome, duration time.Duration) PredictionRecord {
	rec := PredictionRecord{
		ID:            uuid.New(),
		ArtifactSetID: artifactSetID,
		Duration:      duration,
		CreatedAt:     time.Now().UTC(),
	}
	if outcome.IsSuccess() {
		p := outcome.Probability()
		rec.Probability = &p
		rec.Outcome = "success"
		return rec
	}
	rec.Outcome = "rejected"
	rec.Reason = outcome.Reason().String()
	rec.Detail = outcome.Detail()
	return rec
}
