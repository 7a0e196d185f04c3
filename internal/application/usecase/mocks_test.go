package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/pkg/events"
)

// --- Mock implementations ---

type mockDatasetSource struct {
	dataset *model.Dataset
	err     error
}

func (m *mockDatasetSource) Load(_ context.Context) (*model.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.dataset, nil
}

func (m *mockDatasetSource) Describe() string { return "mock dataset" }

// constantModel predicts the same probability for every row.
type constantModel struct {
	calls *atomic.Int64
	Width int     `json:"width"`
	P     float64 `json:"p"`
}

func (m *constantModel) PredictProbability(X [][]float64) ([]float64, error) {
	if m.calls != nil {
		m.calls.Add(1)
	}
	out := make([]float64, len(X))
	for i := range out {
		out[i] = m.P
	}
	return out, nil
}

func (m *constantModel) NumFeatures() int { return m.Width }

func (m *constantModel) MarshalBinary() ([]byte, error) { return json.Marshal(m) }

func decodeConstant(data []byte) (model.Classifier, error) {
	var m constantModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ageModel scores a row by its first feature, read as an age in years.
type ageModel struct {
	Width int `json:"width"`
}

func (m *ageModel) PredictProbability(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = x[0] / 100
	}
	return out, nil
}

func (m *ageModel) NumFeatures() int { return m.Width }

func (m *ageModel) MarshalBinary() ([]byte, error) { return json.Marshal(m) }

type mockFitter struct {
	fitFunc  func(ctx context.Context, X [][]float64, y []int, grid map[string][]float64) (*model.FitResult, error)
	trainedX [][]float64
	trainedY []int
}

func (m *mockFitter) Fit(ctx context.Context, X [][]float64, y []int, grid map[string][]float64) (*model.FitResult, error) {
	m.trainedX, m.trainedY = X, y
	if m.fitFunc != nil {
		return m.fitFunc(ctx, X, y, grid)
	}
	return &model.FitResult{
		Model:      &constantModel{Width: len(X[0]), P: 0.7},
		BestParams: map[string]float64{"n_estimators": 100},
		Candidates: []model.CandidateResult{{Params: map[string]float64{"n_estimators": 100}, Rank: 1, MeanScore: 1}},
		BestScore:  1,
	}, nil
}

func (m *mockFitter) ModelType() string { return "constant" }

type mockRenderer struct {
	calls int
}

func (m *mockRenderer) RenderROC(_ []model.ROCPoint, _ float64) ([]byte, error) {
	m.calls++
	return []byte("png"), nil
}

type mockPredictionRepository struct {
	saved    []model.PredictionRecord
	saveFunc func(ctx context.Context, rec model.PredictionRecord) error
}

func (m *mockPredictionRepository) Save(ctx context.Context, rec model.PredictionRecord) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, rec)
	}
	m.saved = append(m.saved, rec)
	return nil
}

type mockEventPublisher struct {
	publishedEvents []events.DomainEvent
	publishFunc     func(ctx context.Context, evts ...events.DomainEvent) error
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.publishedEvents = append(m.publishedEvents, evts...)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
