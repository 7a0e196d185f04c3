package service

import (
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
)

// logLossEpsilon clips probabilities away from 0 and 1.
const logLossEpsilon = 1e-15

// Evaluate computes held-out classification metrics at the given decision threshold.
func Evaluate(yTrue []int, proba []float64, threshold float64) model.Evaluation {
	ev := model.Evaluation{Samples: len(yTrue)}
	if len(yTrue) == 0 || len(proba) != len(yTrue) {
		return ev
	}

	tp, fp, fn, correct := 0, 0, 0, 0
	for i, y := range yTrue {
		if y == 1 {
			ev.Positives++
		}
		pred := 0
		if proba[i] >= threshold {
			pred = 1
		}
		if pred == y {
			correct++
		}
		switch {
		case pred == 1 && y == 1:
			tp++
		case pred == 1 && y == 0:
			fp++
		case pred == 0 && y == 1:
			fn++
		}
	}

	ev.Accuracy = float64(correct) / float64(len(yTrue))
	if tp+fp > 0 {
		ev.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		ev.Recall = float64(tp) / float64(tp+fn)
	}
	if ev.Precision+ev.Recall > 0 {
		ev.F1 = 2 * ev.Precision * ev.Recall / (ev.Precision + ev.Recall)
	}

	ll := LogLoss(yTrue, proba)
	ev.LogLoss = &ll

	if _, auc, ok := ROCCurve(yTrue, proba); ok {
		ev.ROCAUC = &auc
	}

	return ev
}

// Accuracy returns the fraction of rows whose thresholded prediction matches the label.
func Accuracy(yTrue []int, proba []float64, threshold float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i, y := range yTrue {
		pred := 0
		if proba[i] >= threshold {
			pred = 1
		}
		if pred == y {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// LogLoss returns the mean binary cross-entropy.
func LogLoss(yTrue []int, proba []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	s := 0.0
	for i, y := range yTrue {
		p := math.Min(math.Max(proba[i], logLossEpsilon), 1-logLossEpsilon)
		if y == 1 {
			s -= math.Log(p)
		} else {
			s -= math.Log(1 - p)
		}
	}
	return s / float64(len(yTrue))
}

// ROCCurve returns the ROC curve and the area under it. ok is false when the labels
// contain a single class and the curve is undefined. Tied scores share one point,
// so ties form a diagonal segment.
func ROCCurve(yTrue []int, proba []float64) (points []model.ROCPoint, auc float64, ok bool) {
	if len(proba) != len(yTrue) {
		return nil, 0, false
	}
	scores := make([]float64, len(proba))
	copy(scores, proba)
	classes := make([]bool, len(yTrue))
	pos := 0
	for i, y := range yTrue {
		classes[i] = y == 1
		if classes[i] {
			pos++
		}
	}
	if pos == 0 || pos == len(yTrue) {
		return nil, 0, false
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, thresh := stat.ROC(nil, scores, classes, nil)

	points = make([]model.ROCPoint, len(tpr))
	for i := range tpr {
		t := thresh[i]
		// metrics.json cannot encode +Inf.
		if math.IsInf(t, 1) {
			t = math.MaxFloat64
		}
		points[i] = model.ROCPoint{FalsePositiveRate: fpr[i], TruePositiveRate: tpr[i], Threshold: t}
	}
	return points, integrate.Trapezoidal(fpr, tpr), true
}
