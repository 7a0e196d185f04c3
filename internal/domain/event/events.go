package event

import (
	"time"

	"github.com/google/uuid"
)

const (
	// EventTypeModelTrained is emitted once a new artifact set has been persisted.
	EventTypeModelTrained = "churn.model.trained"

	// EventTypePredictionScored is emitted for every answered prediction request.
	EventTypePredictionScored = "churn.prediction.scored"
)

// ModelTrained is published when the training pipeline has persisted an artifact set.
type ModelTrained struct {
	ArtifactSetID   uuid.UUID          `json:"artifact_set_id"`
	Directory       string             `json:"directory"`
	Hyperparameters map[string]float64 `json:"hyperparameters"`
	CVScore         float64            `json:"cv_score"`
	HeldOutAccuracy float64            `json:"held_out_accuracy"`
	TrainRows       int                `json:"train_rows"`
	TestRows        int                `json:"test_rows"`
	TrainedAt       time.Time          `json:"trained_at"`
}

// EventType returns the event type identifier.
func (e ModelTrained) EventType() string {
	return EventTypeModelTrained
}

// AggregateID returns the artifact set ID as the aggregate identifier.
func (e ModelTrained) AggregateID() uuid.UUID {
	return e.ArtifactSetID
}

// PredictionScored is published after a prediction request reaches a terminal state.
type PredictionScored struct {
	PredictionID     uuid.UUID `json:"prediction_id"`
	ArtifactSetID    uuid.UUID `json:"artifact_set_id"`
	Outcome          string    `json:"outcome"`
	Reason           string    `json:"reason,omitempty"`
	ChurnProbability *float64  `json:"churn_probability,omitempty"`
	ScoredAt         time.Time `json:"scored_at"`
}

// EventType returns the event type identifier.
func (e PredictionScored) EventType() string {
	return EventTypePredictionScored
}

// AggregateID returns the prediction ID as the aggregate identifier.
func (e PredictionScored) AggregateID() uuid.UUID {
	return e.PredictionID
}
