package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/event"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/port"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/service"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/valueobject"
)

var tracer = otel.Tracer("github.com/sibi-seeni/credit-churn-deploy/internal/application/usecase")

// DefaultRecordTimeout bounds the audit write and event publish of one request.
const DefaultRecordTimeout = 2 * time.Second

// PredictChurn is the use case that scores one customer record against a
// loaded artifact set. It is safe for concurrent use.
type PredictChurn struct {
	artifacts  *model.ArtifactSet
	vectorizer *service.Vectorizer
	repo       port.PredictionRepository
	publisher  port.EventPublisher
	logger     *slog.Logger

	recordTimeout time.Duration
}

// PredictOption configures a PredictChurn.
type PredictOption func(*PredictChurn)

// WithRecordTimeout bounds the time the recorder may add to a request.
// Non-positive values keep DefaultRecordTimeout.
func WithRecordTimeout(d time.Duration) PredictOption {
	return func(uc *PredictChurn) {
		if d > 0 {
			uc.recordTimeout = d
		}
	}
}

// NewPredictChurn creates a new PredictChurn use case. repo and publisher may
// be nil to disable the audit trail and event publishing.
func NewPredictChurn(
	artifacts *model.ArtifactSet,
	repo port.PredictionRepository,
	publisher port.EventPublisher,
	logger *slog.Logger,
	opts ...PredictOption,
) (*PredictChurn, error) {
	if artifacts == nil {
		return nil, fmt.Errorf("predict churn: artifact set is required")
	}
	vec, err := service.NewVectorizer(artifacts.Registry(), artifacts.Schema())
	if err != nil {
		return nil, fmt.Errorf("predict churn: %w", err)
	}
	uc := &PredictChurn{
		artifacts:     artifacts,
		vectorizer:    vec,
		repo:          repo,
		publisher:     publisher,
		logger:        logger,
		recordTimeout: DefaultRecordTimeout,
	}
	for _, o := range opts {
		o(uc)
	}
	return uc, nil
}

// ArtifactSetID returns the ID of the set requests are scored against.
func (uc *PredictChurn) ArtifactSetID() string {
	return uc.artifacts.ID().String()
}

// Execute reads one JSON record from body and returns its terminal outcome.
// A read error, including an exceeded body limit, is a BAD_REQUEST rejection.
func (uc *PredictChurn) Execute(ctx context.Context, body io.Reader) model.Outcome {
	ctx, span := tracer.Start(ctx, "PredictChurn.Execute",
		trace.WithAttributes(attribute.String("churn.artifact_set_id", uc.ArtifactSetID())),
	)
	defer span.End()

	start := time.Now()
	outcome := uc.evaluate(body)
	elapsed := time.Since(start)

	if outcome.IsSuccess() {
		span.SetAttributes(attribute.Float64("churn.probability", outcome.Probability()))
	} else {
		span.SetAttributes(attribute.String("churn.rejection_reason", outcome.Reason().String()))
		span.SetStatus(codes.Error, outcome.Reason().String())
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.recordTimeout)
	uc.record(recordCtx, outcome, elapsed)
	cancel()
	return outcome
}

func (uc *PredictChurn) evaluate(body io.Reader) model.Outcome {
	raw, err := io.ReadAll(body)
	if err != nil {
		return model.Rejected(valueobject.RejectionBadRequest, fmt.Sprintf("reading request body: %v", err))
	}

	rec, err := model.ParseRecord(raw)
	if err != nil {
		return model.RejectedFromError(err)
	}

	vec, err := uc.vectorizer.Vectorize(rec)
	if err != nil {
		return model.RejectedFromError(err)
	}

	return uc.score(vec)
}

// score runs the model on one vector. A panicking model is a scoring failure.
func (uc *PredictChurn) score(vec []float64) (outcome model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = model.Rejected(valueobject.RejectionScoringFailed, fmt.Sprintf("scoring failed: %v", r))
		}
	}()

	proba, err := uc.artifacts.Model().PredictProbability([][]float64{vec})
	if err != nil {
		return model.Rejected(valueobject.RejectionScoringFailed, fmt.Sprintf("scoring failed: %v", err))
	}
	if len(proba) != 1 {
		return model.Rejected(valueobject.RejectionScoringFailed,
			fmt.Sprintf("scoring failed: model returned %d probabilities for one record", len(proba)))
	}
	p := proba[0]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return model.Rejected(valueobject.RejectionScoringFailed,
			fmt.Sprintf("scoring failed: probability %v outside [0, 1]", p))
	}
	return model.Succeeded(p)
}

// record stores the audit row and publishes the scored event within ctx's
// deadline. Failures are logged and never change the outcome.
func (uc *PredictChurn) record(ctx context.Context, outcome model.Outcome, elapsed time.Duration) {
	if uc.repo == nil && uc.publisher == nil {
		return
	}
	rec := model.NewPredictionRecord(uc.artifacts.ID(), outcome, elapsed)

	if uc.repo != nil {
		if err := uc.repo.Save(ctx, rec); err != nil {
			uc.logger.WarnContext(ctx, "failed to save prediction audit record",
				slog.String("prediction_id", rec.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if uc.publisher != nil {
		evt := event.PredictionScored{
			PredictionID:     rec.ID,
			ArtifactSetID:    rec.ArtifactSetID,
			Outcome:          rec.Outcome,
			Reason:           rec.Reason,
			ChurnProbability: rec.Probability,
			ScoredAt:         rec.CreatedAt,
		}
		if err := uc.publisher.Publish(ctx, evt); err != nil {
			uc.logger.WarnContext(ctx, "failed to publish prediction event",
				slog.String("prediction_id", rec.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}
