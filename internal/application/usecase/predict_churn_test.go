package usecase_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibi-seeni/credit-churn-deploy/internal/application/usecase"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/event"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/valueobject"
	"github.com/sibi-seeni/credit-churn-deploy/pkg/events"
)

type funcModel struct {
	fn    func(X [][]float64) ([]float64, error)
	width int
}

func (m *funcModel) PredictProbability(X [][]float64) ([]float64, error) { return m.fn(X) }
func (m *funcModel) NumFeatures() int                                  { return m.width }

func artifactSet(t *testing.T, clf model.Classifier) *model.ArtifactSet {
	t.Helper()

	gender, err := model.BuildEncoding("Gender", []string{"M", "F", "M"})
	require.NoError(t, err)
	registry, err := model.NewRegistry(gender)
	require.NoError(t, err)
	schema, err := model.CaptureSchema([]string{"Customer_Age", "Gender", "Credit_Limit"})
	require.NoError(t, err)

	set, err := model.NewArtifactSet(model.Manifest{ID: uuid.New()}, registry, schema, clf)
	require.NoError(t, err)
	return set
}

func newPredictor(t *testing.T, clf model.Classifier) *usecase.PredictChurn {
	t.Helper()
	uc, err := usecase.NewPredictChurn(artifactSet(t, clf), nil, nil, quietLogger())
	require.NoError(t, err)
	return uc
}

func TestPredictChurn_Execute(t *testing.T) {
	calls := &atomic.Int64{}
	uc := newPredictor(t, &constantModel{calls: calls, Width: 3, P: 0.31})

	tests := []struct {
		name       string
		body       string
		wantReason valueobject.RejectionReason
		wantDetail string
		wantScored bool
	}{
		{
			name:       "valid record scores",
			body:       `{"Customer_Age": 45, "Gender": "M", "Credit_Limit": 12691}`,
			wantScored: true,
		},
		{
			name:       "key order and extra keys do not matter",
			body:       `{"Credit_Limit": 12691, "CLIENTNUM": 768805383, "Gender": "F", "Customer_Age": 45}`,
			wantScored: true,
		},
		{
			name:       "missing categorical column",
			body:       `{"Customer_Age": 45, "Credit_Limit": 12691}`,
			wantReason: valueobject.RejectionMissingColumn,
			wantDetail: "Missing column: Gender",
		},
		{
			name:       "missing numeric column",
			body:       `{"Customer_Age": 45, "Gender": "M"}`,
			wantReason: valueobject.RejectionMissingColumn,
			wantDetail: "Missing column: Credit_Limit",
		},
		{
			name:       "null counts as missing",
			body:       `{"Customer_Age": 45, "Gender": "M", "Credit_Limit": null}`,
			wantReason: valueobject.RejectionMissingColumn,
			wantDetail: "Missing column: Credit_Limit",
		},
		{
			name:       "unseen category",
			body:       `{"Customer_Age": 45, "Gender": "X", "Credit_Limit": 12691}`,
			wantReason: valueobject.RejectionUnseenCategory,
			wantDetail: "Gender",
		},
		{
			name:       "string where a number is expected",
			body:       `{"Customer_Age": "45", "Gender": "M", "Credit_Limit": 12691}`,
			wantReason: valueobject.RejectionInvalidValue,
			wantDetail: "Customer_Age",
		},
		{
			name:       "malformed JSON",
			body:       `{"Customer_Age": 45,`,
			wantReason: valueobject.RejectionBadRequest,
		},
		{
			name:       "array body",
			body:       `[{"Customer_Age": 45}]`,
			wantReason: valueobject.RejectionBadRequest,
		},
		{
			name:       "nested value",
			body:       `{"Customer_Age": 45, "Gender": {"code": "M"}, "Credit_Limit": 1}`,
			wantReason: valueobject.RejectionBadRequest,
		},
		{
			name:       "empty body",
			body:       ``,
			wantReason: valueobject.RejectionBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := calls.Load()
			outcome := uc.Execute(context.Background(), strings.NewReader(tt.body))

			if tt.wantScored {
				require.True(t, outcome.IsSuccess(), outcome.Detail())
				assert.Equal(t, 0.31, outcome.Probability())
				assert.Equal(t, before+1, calls.Load())
				return
			}

			require.False(t, outcome.IsSuccess())
			assert.Equal(t, tt.wantReason, outcome.Reason())
			assert.Contains(t, outcome.Detail(), tt.wantDetail)
			assert.Zero(t, outcome.Probability())
			assert.Equal(t, before, calls.Load(), "model must not be invoked for a rejected record")
		})
	}
}

func TestPredictChurn_Idempotent(t *testing.T) {
	uc := newPredictor(t, &funcModel{width: 3, fn: func(X [][]float64) ([]float64, error) {
		return []float64{1 / (1 + math.Exp(-X[0][0]/100+X[0][2]/10000))}, nil
	}})

	body := `{"Customer_Age": 45, "Gender": "M", "Credit_Limit": 12691}`
	first := uc.Execute(context.Background(), strings.NewReader(body))
	second := uc.Execute(context.Background(), strings.NewReader(body))

	require.True(t, first.IsSuccess())
	assert.Equal(t, first.Probability(), second.Probability())
}

func TestPredictChurn_ScoringFailures(t *testing.T) {
	body := `{"Customer_Age": 45, "Gender": "M", "Credit_Limit": 12691}`

	tests := []struct {
		name string
		fn   func(X [][]float64) ([]float64, error)
	}{
		{name: "model error", fn: func([][]float64) ([]float64, error) { return nil, errors.New("tree corrupted") }},
		{name: "probability above one", fn: func([][]float64) ([]float64, error) { return []float64{1.2}, nil }},
		{name: "negative probability", fn: func([][]float64) ([]float64, error) { return []float64{-0.1}, nil }},
		{name: "NaN probability", fn: func([][]float64) ([]float64, error) { return []float64{math.NaN()}, nil }},
		{name: "wrong number of outputs", fn: func([][]float64) ([]float64, error) { return []float64{0.1, 0.2}, nil }},
		{name: "panic", fn: func([][]float64) ([]float64, error) { panic("index out of range") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newPredictor(t, &funcModel{width: 3, fn: tt.fn})
			outcome := uc.Execute(context.Background(), strings.NewReader(body))
			require.False(t, outcome.IsSuccess())
			assert.Equal(t, valueobject.RejectionScoringFailed, outcome.Reason())
			assert.Contains(t, outcome.Detail(), "scoring failed")
		})
	}
}

func TestPredictChurn_ReadError(t *testing.T) {
	uc := newPredictor(t, &constantModel{Width: 3, P: 0.5})
	outcome := uc.Execute(context.Background(), iotest.ErrReader(errors.New("http: request body too large")))
	require.False(t, outcome.IsSuccess())
	assert.Equal(t, valueobject.RejectionBadRequest, outcome.Reason())
	assert.Contains(t, outcome.Detail(), "too large")
}

func TestPredictChurn_Recorder(t *testing.T) {
	t.Run("stores audit row and publishes event", func(t *testing.T) {
		repo := &mockPredictionRepository{}
		publisher := &mockEventPublisher{}
		set := artifactSet(t, &constantModel{Width: 3, P: 0.4})
		uc, err := usecase.NewPredictChurn(set, repo, publisher, quietLogger())
		require.NoError(t, err)
		assert.Equal(t, set.ID().String(), uc.ArtifactSetID())

		uc.Execute(context.Background(), strings.NewReader(`{"Customer_Age": 45, "Gender": "M", "Credit_Limit": 1}`))
		uc.Execute(context.Background(), strings.NewReader(`{"Customer_Age": 45, "Gender": "X", "Credit_Limit": 1}`))

		require.Len(t, repo.saved, 2)
		assert.Equal(t, "success", repo.saved[0].Outcome)
		require.NotNil(t, repo.saved[0].Probability)
		assert.Equal(t, 0.4, *repo.saved[0].Probability)
		assert.Equal(t, set.ID(), repo.saved[0].ArtifactSetID)
		assert.Equal(t, "rejected", repo.saved[1].Outcome)
		assert.Equal(t, "UNSEEN_CATEGORY", repo.saved[1].Reason)

		require.Len(t, publisher.publishedEvents, 2)
		scored, ok := publisher.publishedEvents[1].(event.PredictionScored)
		require.True(t, ok)
		assert.Equal(t, repo.saved[1].ID, scored.PredictionID)
		assert.Equal(t, "UNSEEN_CATEGORY", scored.Reason)
		assert.Nil(t, scored.ChurnProbability)
	})

	t.Run("recorder failures do not change the outcome", func(t *testing.T) {
		repo := &mockPredictionRepository{saveFunc: func(context.Context, model.PredictionRecord) error {
			return errors.New("connection refused")
		}}
		publisher := &mockEventPublisher{}
		publisher.publishFunc = func(context.Context, ...events.DomainEvent) error {
			return errors.New("broker down")
		}
		uc, err := usecase.NewPredictChurn(artifactSet(t, &constantModel{Width: 3, P: 0.9}), repo, publisher, quietLogger())
		require.NoError(t, err)

		outcome := uc.Execute(context.Background(), strings.NewReader(`{"Customer_Age": 45, "Gender": "F", "Credit_Limit": 1}`))
		require.True(t, outcome.IsSuccess())
		assert.Equal(t, 0.9, outcome.Probability())
	})
}

func TestPredictChurn_RecorderDeadline(t *testing.T) {
	var saveErr, publishErr atomic.Value
	repo := &mockPredictionRepository{saveFunc: func(ctx context.Context, _ model.PredictionRecord) error {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			return errors.New("no deadline")
		}
		<-ctx.Done()
		saveErr.Store(ctx.Err())
		return ctx.Err()
	}}
	publisher := &mockEventPublisher{publishFunc: func(ctx context.Context, _ ...events.DomainEvent) error {
		<-ctx.Done()
		publishErr.Store(ctx.Err())
		return ctx.Err()
	}}

	const timeout = 50 * time.Millisecond
	uc, err := usecase.NewPredictChurn(artifactSet(t, &constantModel{Width: 3, P: 0.6}), repo, publisher, quietLogger(),
		usecase.WithRecordTimeout(timeout))
	require.NoError(t, err)

	// A cancelled request must still get its audit attempt, bounded by the timeout.
	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	outcome := uc.Execute(reqCtx, strings.NewReader(`{"Customer_Age": 45, "Gender": "F", "Credit_Limit": 1}`))
	elapsed := time.Since(start)

	require.True(t, outcome.IsSuccess())
	assert.Equal(t, 0.6, outcome.Probability())
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, 2*time.Second, "a hung recorder must not hold the request")
	require.NotNil(t, saveErr.Load(), "repository saw a context without deadline")
	assert.ErrorIs(t, saveErr.Load().(error), context.DeadlineExceeded)
	require.NotNil(t, publishErr.Load())
	assert.ErrorIs(t, publishErr.Load().(error), context.DeadlineExceeded)
}

func TestNewPredictChurn_RequiresArtifacts(t *testing.T) {
	_, err := usecase.NewPredictChurn(nil, nil, nil, quietLogger())
	assert.Error(t, err)
}
