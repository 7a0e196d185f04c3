package port

import (
	"context"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/pkg/events"
)

// DatasetSource loads the raw labeled training snapshot.
type DatasetSource interface {
	// Load returns the dataset or a *model.DataNotFoundError when the source is unavailable.
	Load(ctx context.Context) (*model.Dataset, error)

	// Describe returns a human-readable location used in logs.
	Describe() string
}

// ModelFitter is the external model-fitting collaborator: it searches the
// hyperparameter grid and returns the best fitted classifier.
type ModelFitter interface {
	Fit(ctx context.Context, X [][]float64, y []int, grid map[string][]float64) (*model.FitResult, error)

	// ModelType names the classifier family recorded in the manifest.
	ModelType() string
}

// ArtifactStore persists a complete artifact set atomically.
type ArtifactStore interface {
	Save(ctx context.Context, artifacts *model.TrainedArtifacts) (model.Manifest, error)

	// Location returns where the set is persisted.
	Location() string
}

// DiagnosticRenderer renders optional training diagnostics.
type DiagnosticRenderer interface {
	// RenderROC renders the held-out ROC curve as an image.
	RenderROC(points []model.ROCPoint, auc float64) ([]byte, error)
}

// PredictionRepository stores the audit trail of answered requests.
type PredictionRepository interface {
	Save(ctx context.Context, record model.PredictionRecord) error
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	// Publish sends one or more domain events to the messaging infrastructure.
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}
