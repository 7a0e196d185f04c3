package dto

import (
	"github.com/google/uuid"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
)

// TrainModelRequest is the input DTO for the TrainModel use case.
type TrainModelRequest struct {
	LabelMap           map[string]int       `json:"label_map"`
	Grid               map[string][]float64 `json:"grid"`
	LabelColumn        string               `json:"label_column"`
	Scoring            string               `json:"scoring"`
	IdentifierColumns  []string             `json:"identifier_columns"`
	CategoricalColumns []string             `json:"categorical_columns"`
	TestSize           float64              `json:"test_size"`
	Seed               int64                `json:"seed"`
	Folds              int                  `json:"folds"`
	PlotROC            bool                 `json:"plot_roc"`
}

// TrainModelResponse summarizes a completed training run.
type TrainModelResponse struct {
	BestParams    map[string]float64 `json:"best_params"`
	Directory     string             `json:"directory"`
	HeldOut       model.Evaluation   `json:"held_out"`
	Files         []string           `json:"files"`
	BestScore     float64            `json:"best_cv_score"`
	TrainRows     int                `json:"train_rows"`
	TestRows      int                `json:"test_rows"`
	ArtifactSetID uuid.UUID          `json:"artifact_set_id"`
}
