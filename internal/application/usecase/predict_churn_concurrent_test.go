package usecase_test

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibi-seeni/credit-churn-deploy/internal/application/usecase"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/valueobject"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/gbt"
)

// syncRepository records audit rows from many goroutines.
type syncRepository struct {
	mu    sync.Mutex
	saved []model.PredictionRecord
}

func (r *syncRepository) Save(_ context.Context, rec model.PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, rec)
	return nil
}

// fitChurnModel fits a small gbt model over Customer_Age, Gender code and
// Credit_Limit where older customers with low limits churn.
func fitChurnModel(t *testing.T) *gbt.Classifier {
	t.Helper()

	rnd := rand.New(rand.NewSource(7))
	X := make([][]float64, 200)
	y := make([]int, len(X))
	for i := range X {
		age := 25 + rnd.Float64()*45
		limit := 1000 + rnd.Float64()*20000
		X[i] = []float64{age, float64(rnd.Intn(2)), limit}
		if age > 45 && limit < 10000 {
			y[i] = 1
		}
	}

	params := gbt.DefaultParams()
	params.NEstimators = 20
	params.MaxDepth = 3
	clf := gbt.New(params)
	require.NoError(t, clf.Fit(context.Background(), X, y))
	return clf
}

// TestPredictChurn_ConcurrentRequests mixes valid and invalid bodies across
// goroutines sharing one use case. Each valid result must equal the sequential
// reference and each invalid one must keep its own rejection reason.
func TestPredictChurn_ConcurrentRequests(t *testing.T) {
	repo := &syncRepository{}
	uc, err := usecase.NewPredictChurn(artifactSet(t, fitChurnModel(t)), repo, nil, quietLogger())
	require.NoError(t, err)

	type request struct {
		body   string
		reason valueobject.RejectionReason
		valid  bool
	}
	requests := []request{
		{body: `{"Customer_Age": 62, "Gender": "F", "Credit_Limit": 2500}`, valid: true},
		{body: `{"Customer_Age": 31, "Gender": "M", "Credit_Limit": 18000}`, valid: true},
		{body: `{"Credit_Limit": 7000.5, "Gender": "M", "Customer_Age": 50}`, valid: true},
		{body: `{"Customer_Age": 40, "Gender": "X", "Credit_Limit": 5000}`, reason: valueobject.RejectionUnseenCategory},
		{body: `{"Customer_Age": 40, "Credit_Limit": 5000}`, reason: valueobject.RejectionMissingColumn},
		{body: `{"Customer_Age": 40, "Gender": "F"}`, reason: valueobject.RejectionMissingColumn},
		{body: `{"Customer_Age": "forty", "Gender": "F", "Credit_Limit": 5000}`, reason: valueobject.RejectionInvalidValue},
		{body: `{"Customer_Age": 40,`, reason: valueobject.RejectionBadRequest},
	}

	reference := make([]model.Outcome, len(requests))
	for i, req := range requests {
		reference[i] = uc.Execute(context.Background(), strings.NewReader(req.body))
		require.Equal(t, req.valid, reference[i].IsSuccess(), "reference for %s", req.body)
	}

	const goroutines = 400
	results := make([]model.Outcome, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			req := requests[idx%len(requests)]
			results[idx] = uc.Execute(context.Background(), strings.NewReader(req.body))
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		req := requests[i%len(requests)]
		want := reference[i%len(requests)]
		if req.valid {
			require.True(t, got.IsSuccess(), "request %d: %s", i, got.Detail())
			assert.Equal(t, want.Probability(), got.Probability(), "request %d", i)
			continue
		}
		require.False(t, got.IsSuccess(), "request %d", i)
		assert.Equal(t, req.reason, got.Reason(), "request %d", i)
		assert.Equal(t, want.Detail(), got.Detail(), "request %d", i)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.saved, goroutines+len(requests))
}
