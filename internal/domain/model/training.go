package model

import "time"

// CandidateResult is the cross-validated score of one hyperparameter configuration.
type CandidateResult struct {
	Params    map[string]float64 `json:"params"`
	MeanScore float64            `json:"mean_score"`
	StdScore  float64            `json:"std_score"`
	Rank      int                `json:"rank"`
}

// FitResult is what the model-fitting collaborator returns.
type FitResult struct {
	Model      Classifier
	BestParams map[string]float64
	Candidates []CandidateResult
	BestScore  float64
}

// Evaluation holds held-out metrics. ROCAUC and LogLoss are nil when undefined
// (for example a held-out subset containing a single class).
type Evaluation struct {
	ROCAUC    *float64 `json:"roc_auc,omitempty"`
	LogLoss   *float64 `json:"log_loss,omitempty"`
	Accuracy  float64  `json:"accuracy"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        float64  `json:"f1"`
	Samples   int      `json:"samples"`
	Positives int      `json:"positives"`
}

// TrainingReport is the diagnostic summary persisted next to the artifacts.
type TrainingReport struct {
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	BestParams map[string]float64 `json:"best_params"`
	Candidates []CandidateResult  `json:"candidates"`
	HeldOut    Evaluation         `json:"held_out"`
	Scoring    string             `json:"scoring"`
	BestScore  float64            `json:"best_cv_score"`
	TrainRows  int                `json:"train_rows"`
	TestRows   int                `json:"test_rows"`
	Folds      int                `json:"folds"`
	Seed       int64              `json:"seed"`
}

// TrainedArtifacts is everything the training pipeline hands to the artifact store.
type TrainedArtifacts struct {
	Diagnostics map[string][]byte
	Registry    *Registry
	Model       Classifier
	Report      TrainingReport
	LabelColumn string
	ModelType   string
	Schema      FeatureSchema
}

// ROCPoint is one threshold on the receiver operating characteristic curve.
type ROCPoint struct {
	FalsePositiveRate float64 `json:"fpr"`
	TruePositiveRate  float64 `json:"tpr"`
	Threshold         float64 `json:"threshold"`
}
