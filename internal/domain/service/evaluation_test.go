package service_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/service"
)

func TestAccuracy(t *testing.T) {
	y := []int{1, 0, 1, 0}
	p := []float64{0.9, 0.2, 0.4, 0.6}

	assert.InDelta(t, 0.5, service.Accuracy(y, p, 0.5), 1e-12)
	assert.Equal(t, 0.0, service.Accuracy(nil, nil, 0.5))
}

func TestLogLoss(t *testing.T) {
	y := []int{1, 0}
	p := []float64{0.8, 0.2}

	assert.InDelta(t, -math.Log(0.8), service.LogLoss(y, p), 1e-12)

	// Certain and wrong stays finite because probabilities are clipped.
	ll := service.LogLoss([]int{1}, []float64{0})
	assert.False(t, math.IsInf(ll, 0))
}

func TestROCCurve(t *testing.T) {
	t.Run("perfect separation", func(t *testing.T) {
		points, auc, ok := service.ROCCurve([]int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9})
		require.True(t, ok)
		assert.InDelta(t, 1.0, auc, 1e-12)
		assert.InDelta(t, 0.0, points[0].FalsePositiveRate, 1e-12)
		assert.InDelta(t, 0.0, points[0].TruePositiveRate, 1e-12)
		last := points[len(points)-1]
		assert.InDelta(t, 1.0, last.FalsePositiveRate, 1e-12)
		assert.InDelta(t, 1.0, last.TruePositiveRate, 1e-12)
	})

	t.Run("mixed ranking", func(t *testing.T) {
		y := []int{0, 1, 0, 1, 1, 1}
		p := []float64{0, 3, 5, 6, 7.5, 8}
		points, auc, ok := service.ROCCurve(y, p)
		require.True(t, ok)
		assert.InDelta(t, 0.875, auc, 1e-12)
		require.Len(t, points, 7)
		assert.Equal(t, math.MaxFloat64, points[0].Threshold)
		for i := 1; i < len(points); i++ {
			assert.GreaterOrEqual(t, points[i].FalsePositiveRate, points[i-1].FalsePositiveRate)
			assert.GreaterOrEqual(t, points[i].TruePositiveRate, points[i-1].TruePositiveRate)
			assert.Less(t, points[i].Threshold, points[i-1].Threshold)
		}
	})

	t.Run("leaves inputs in place", func(t *testing.T) {
		y := []int{1, 0, 1, 0}
		p := []float64{0.9, 0.1, 0.4, 0.6}
		_, auc, ok := service.ROCCurve(y, p)
		require.True(t, ok)
		assert.InDelta(t, 0.75, auc, 1e-12)
		assert.Equal(t, []int{1, 0, 1, 0}, y)
		assert.Equal(t, []float64{0.9, 0.1, 0.4, 0.6}, p)
	})

	t.Run("length mismatch is undefined", func(t *testing.T) {
		_, _, ok := service.ROCCurve([]int{0, 1}, []float64{0.3})
		assert.False(t, ok)
	})

	t.Run("inverted ranking", func(t *testing.T) {
		_, auc, ok := service.ROCCurve([]int{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9})
		require.True(t, ok)
		assert.InDelta(t, 0.0, auc, 1e-12)
	})

	t.Run("all ties give chance level", func(t *testing.T) {
		points, auc, ok := service.ROCCurve([]int{1, 0, 1, 0}, []float64{0.5, 0.5, 0.5, 0.5})
		require.True(t, ok)
		assert.InDelta(t, 0.5, auc, 1e-12)
		assert.Len(t, points, 2)
	})

	t.Run("single class is undefined", func(t *testing.T) {
		_, _, ok := service.ROCCurve([]int{1, 1}, []float64{0.3, 0.7})
		assert.False(t, ok)
	})
}

func TestEvaluate(t *testing.T) {
	y := []int{1, 0, 1, 0, 1}
	p := []float64{0.9, 0.1, 0.7, 0.6, 0.2}

	ev := service.Evaluate(y, p, 0.5)

	assert.Equal(t, 5, ev.Samples)
	assert.Equal(t, 3, ev.Positives)
	assert.InDelta(t, 0.6, ev.Accuracy, 1e-12)
	// tp=2 fp=1 fn=1
	assert.InDelta(t, 2.0/3.0, ev.Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, ev.Recall, 1e-12)
	assert.InDelta(t, 2.0/3.0, ev.F1, 1e-12)
	require.NotNil(t, ev.LogLoss)
	require.NotNil(t, ev.ROCAUC)
	assert.InDelta(t, 5.0/6.0, *ev.ROCAUC, 1e-12)
}

func TestEvaluate_SingleClassHasNoAUC(t *testing.T) {
	ev := service.Evaluate([]int{0, 0}, []float64{0.2, 0.7}, 0.5)
	assert.Nil(t, ev.ROCAUC)
	assert.InDelta(t, 0.5, ev.Accuracy, 1e-12)
}
