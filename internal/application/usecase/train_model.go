package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sibi-seeni/credit-churn-deploy/internal/application/dto"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/event"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/port"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/service"
)

// ROCFileName is the diagnostic file written when ROC plotting is enabled.
const ROCFileName = "roc.png"

// TrainModel is the use case that turns a labeled dataset into a persisted artifact set.
type TrainModel struct {
	source    port.DatasetSource
	fitter    port.ModelFitter
	store     port.ArtifactStore
	renderer  port.DiagnosticRenderer
	publisher port.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewTrainModel creates a new TrainModel use case. renderer and publisher may be nil.
func NewTrainModel(
	source port.DatasetSource,
	fitter port.ModelFitter,
	store port.ArtifactStore,
	renderer port.DiagnosticRenderer,
	publisher port.EventPublisher,
	logger *slog.Logger,
) *TrainModel {
	return &TrainModel{
		source:    source,
		fitter:    fitter,
		store:     store,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute runs the pipeline. Nothing is written unless every step before
// persistence succeeds.
func (uc *TrainModel) Execute(ctx context.Context, req dto.TrainModelRequest) (dto.TrainModelResponse, error) {
	started := uc.now().UTC()

	// 1. Load the raw snapshot.
	ds, err := uc.source.Load(ctx)
	if err != nil {
		return dto.TrainModelResponse{}, fmt.Errorf("loading training data: %w", err)
	}
	uc.logger.InfoContext(ctx, "training data loaded",
		slog.String("source", uc.source.Describe()),
		slog.Int("rows", len(ds.Rows)),
		slog.Int("columns", len(ds.Columns)),
	)

	// 2. Drop identifiers and map the label.
	ds = ds.Drop(req.IdentifierColumns...)
	y, err := mapLabels(ds, req.LabelColumn, req.LabelMap)
	if err != nil {
		return dto.TrainModelResponse{}, err
	}
	features := ds.Drop(req.LabelColumn)

	// 3. Fit one encoding per categorical column.
	registry, err := buildRegistry(features, req.CategoricalColumns)
	if err != nil {
		return dto.TrainModelResponse{}, err
	}

	// 4. Freeze the feature order.
	schema, err := model.CaptureSchema(features.Columns)
	if err != nil {
		return dto.TrainModelResponse{}, fmt.Errorf("capturing feature schema: %w", err)
	}

	// 5. Vectorize every row through the same path serving uses.
	X, err := vectorizeRows(features, registry, schema)
	if err != nil {
		return dto.TrainModelResponse{}, err
	}

	// 6. Hold out a seeded test subset.
	trainIdx, testIdx, err := splitIndices(len(X), req.TestSize, req.Seed)
	if err != nil {
		return dto.TrainModelResponse{}, err
	}
	trainX, trainY := subset(X, y, trainIdx)
	testX, testY := subset(X, y, testIdx)

	// 7. Search the grid and refit the best configuration.
	fit, err := uc.fitter.Fit(ctx, trainX, trainY, req.Grid)
	if err != nil {
		return dto.TrainModelResponse{}, fmt.Errorf("fitting model: %w", err)
	}

	// 8. Evaluate on the held-out rows.
	proba, err := fit.Model.PredictProbability(testX)
	if err != nil {
		return dto.TrainModelResponse{}, fmt.Errorf("scoring held-out rows: %w", err)
	}
	heldOut := service.Evaluate(testY, proba, 0.5)
	uc.logger.InfoContext(ctx, "held-out evaluation",
		slog.Float64("accuracy", heldOut.Accuracy),
		slog.Float64("f1", heldOut.F1),
		slog.Int("samples", heldOut.Samples),
	)

	diagnostics, err := uc.diagnostics(ctx, req.PlotROC, testY, proba)
	if err != nil {
		return dto.TrainModelResponse{}, err
	}

	if err := ctx.Err(); err != nil {
		return dto.TrainModelResponse{}, fmt.Errorf("training cancelled: %w", err)
	}

	// 9. Persist the set.
	artifacts := &model.TrainedArtifacts{
		Diagnostics: diagnostics,
		Registry:    registry,
		Model:       fit.Model,
		LabelColumn: req.LabelColumn,
		ModelType:   uc.fitter.ModelType(),
		Schema:      schema,
		Report: model.TrainingReport{
			StartedAt:  started,
			FinishedAt: uc.now().UTC(),
			BestParams: fit.BestParams,
			Candidates: fit.Candidates,
			HeldOut:    heldOut,
			Scoring:    req.Scoring,
			BestScore:  fit.BestScore,
			TrainRows:  len(trainIdx),
			TestRows:   len(testIdx),
			Folds:      req.Folds,
			Seed:       req.Seed,
		},
	}
	manifest, err := uc.store.Save(ctx, artifacts)
	if err != nil {
		return dto.TrainModelResponse{}, fmt.Errorf("persisting artifacts: %w", err)
	}

	// 10. Announce the new set.
	uc.announce(ctx, manifest, artifacts.Report)

	files := append(slices.Sorted(maps.Keys(manifest.Checksums)), "manifest.json")
	return dto.TrainModelResponse{
		ArtifactSetID: manifest.ID,
		Directory:     uc.store.Location(),
		BestParams:    fit.BestParams,
		BestScore:     fit.BestScore,
		HeldOut:       heldOut,
		TrainRows:     len(trainIdx),
		TestRows:      len(testIdx),
		Files:         files,
	}, nil
}

func (uc *TrainModel) diagnostics(ctx context.Context, plot bool, yTrue []int, proba []float64) (map[string][]byte, error) {
	if !plot || uc.renderer == nil {
		return nil, nil
	}
	points, auc, ok := service.ROCCurve(yTrue, proba)
	if !ok {
		uc.logger.WarnContext(ctx, "skipping ROC plot: held-out rows contain a single class")
		return nil, nil
	}
	png, err := uc.renderer.RenderROC(points, auc)
	if err != nil {
		return nil, fmt.Errorf("rendering ROC curve: %w", err)
	}
	return map[string][]byte{ROCFileName: png}, nil
}

func (uc *TrainModel) announce(ctx context.Context, manifest model.Manifest, report model.TrainingReport) {
	if uc.publisher == nil {
		return
	}
	evt := event.ModelTrained{
		ArtifactSetID:   manifest.ID,
		Directory:       uc.store.Location(),
		Hyperparameters: manifest.Hyperparameters,
		CVScore:         report.BestScore,
		HeldOutAccuracy: report.HeldOut.Accuracy,
		TrainRows:       report.TrainRows,
		TestRows:        report.TestRows,
		TrainedAt:       manifest.CreatedAt,
	}
	if err := uc.publisher.Publish(ctx, evt); err != nil {
		uc.logger.WarnContext(ctx, "failed to publish model trained event",
			slog.String("artifact_set_id", manifest.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func mapLabels(ds *model.Dataset, column string, labels map[string]int) ([]int, error) {
	raw, err := ds.Column(column)
	if err != nil {
		return nil, fmt.Errorf("reading label column: %w", err)
	}
	y := make([]int, len(raw))
	for i, v := range raw {
		label, ok := labels[strings.TrimSpace(v)]
		if !ok {
			return nil, &model.LabelError{Column: column, Value: v, Row: i + 1}
		}
		y[i] = label
	}
	return y, nil
}

func buildRegistry(ds *model.Dataset, columns []string) (*model.Registry, error) {
	encodings := make([]*model.Encoding, 0, len(columns))
	for _, col := range columns {
		values, err := ds.Column(col)
		if err != nil {
			return nil, fmt.Errorf("building encoders: %w", err)
		}
		enc, err := model.BuildEncoding(col, values)
		if err != nil {
			return nil, fmt.Errorf("building encoders: %w", err)
		}
		encodings = append(encodings, enc)
	}
	registry, err := model.NewRegistry(encodings...)
	if err != nil {
		return nil, fmt.Errorf("building encoders: %w", err)
	}
	return registry, nil
}

func vectorizeRows(ds *model.Dataset, registry *model.Registry, schema model.FeatureSchema) ([][]float64, error) {
	vec, err := service.NewVectorizer(registry, schema)
	if err != nil {
		return nil, err
	}

	X := make([][]float64, len(ds.Rows))
	for i, row := range ds.Rows {
		rec := make(model.Record, len(ds.Columns))
		for j, col := range ds.Columns {
			cell := row[j]
			if registry.Has(col) {
				rec[col] = cell
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1,
					&model.InvalidValueError{Column: col, Value: cell, Reason: "not a number"})
			}
			rec[col] = f
		}
		x, err := vec.Vectorize(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		X[i] = x
	}
	return X, nil
}

// splitIndices shuffles row indices with seed and holds out ceil(n*testSize) of them.
func splitIndices(n int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %g", testSize)
	}
	nTest := int(math.Ceil(float64(n) * testSize))
	if n < 2 || nTest >= n {
		return nil, nil, errors.New("not enough rows to hold out a test subset")
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = slices.Clone(perm[:nTest])
	train = slices.Clone(perm[nTest:])
	slices.Sort(test)
	slices.Sort(train)
	return train, test, nil
}

func subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	outX := make([][]float64, len(idx))
	outY := make([]int, len(idx))
	for i, j := range idx {
		outX[i] = X[j]
		outY[i] = y[j]
	}
	return outX, outY
}
