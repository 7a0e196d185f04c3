package gbt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/service"
)

// Scoring functions accepted by the searcher.
const (
	ScoringAccuracy = "accuracy"
	ScoringROCAUC   = "roc_auc"
)

// Searcher selects boosting hyperparameters by exhaustive grid search with
// stratified k-fold cross-validation, then refits the best configuration on
// all rows. It implements port.ModelFitter.
type Searcher struct {
	logger  *slog.Logger
	scoring string
	base    Params
	folds   int
	workers int
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithFolds sets the number of stratified cross-validation folds.
func WithFolds(k int) Option { return func(s *Searcher) { s.folds = k } }

// WithWorkers caps how many candidate fits run at once. Values below 1 mean one worker.
func WithWorkers(n int) Option { return func(s *Searcher) { s.workers = n } }

// WithScoring selects the fold metric, ScoringAccuracy or ScoringROCAUC.
func WithScoring(name string) Option { return func(s *Searcher) { s.scoring = name } }

// WithBaseParams sets the parameters that grid values are layered onto.
func WithBaseParams(p Params) Option { return func(s *Searcher) { s.base = p } }

// WithLogger sets the logger used for per-candidate progress.
func WithLogger(l *slog.Logger) Option { return func(s *Searcher) { s.logger = l } }

// NewSearcher returns a searcher with 5 folds, accuracy scoring and one worker per CPU.
func NewSearcher(opts ...Option) *Searcher {
	s := &Searcher{
		logger:  slog.Default(),
		scoring: ScoringAccuracy,
		base:    DefaultParams(),
		folds:   5,
		workers: runtime.NumCPU(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// ModelType returns the manifest model type.
func (s *Searcher) ModelType() string { return ModelType }

// Fit runs the grid search over X, y and returns the refit best model.
// Candidates are ranked by mean fold score; ties go to the earlier candidate.
// A grid with a single candidate is fit directly without cross-validation.
func (s *Searcher) Fit(ctx context.Context, X [][]float64, y []int, grid map[string][]float64) (*model.FitResult, error) {
	if _, err := checkTrainingData(X, y); err != nil {
		return nil, err
	}
	candidates, err := ParseGrid(s.base, grid)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 1 {
		best := New(candidates[0])
		if err := best.Fit(ctx, X, y); err != nil {
			return nil, err
		}
		return &model.FitResult{
			Model:      best,
			BestParams: candidates[0].Map(),
			Candidates: []model.CandidateResult{{Params: candidates[0].Map(), Rank: 1}},
		}, nil
	}

	score, err := scorer(s.scoring)
	if err != nil {
		return nil, err
	}
	folds, err := StratifiedKFold(y, s.folds)
	if err != nil {
		return nil, err
	}

	s.logger.Info("starting grid search",
		slog.Int("candidates", len(candidates)),
		slog.Int("folds", len(folds)),
		slog.Int("workers", s.workers),
		slog.String("scoring", s.scoring),
		slog.Int("rows", len(X)),
	)
	start := time.Now()

	scores := make([][]float64, len(candidates))
	for c := range scores {
		scores[c] = make([]float64, len(folds))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for c := range candidates {
		for f := range folds {
			g.Go(func() error {
				trainX, trainY, validX, validY := splitFold(X, y, folds[f])
				clf := New(candidates[c])
				if err := clf.Fit(gctx, trainX, trainY); err != nil {
					return fmt.Errorf("candidate %d fold %d: %w", c, f, err)
				}
				proba, err := clf.PredictProbability(validX)
				if err != nil {
					return fmt.Errorf("candidate %d fold %d: %w", c, f, err)
				}
				v, err := score(validY, proba)
				if err != nil {
					return fmt.Errorf("candidate %d fold %d: %w", c, f, err)
				}
				scores[c][f] = v
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gbt: grid search: %w", err)
	}

	results := make([]model.CandidateResult, len(candidates))
	bestIdx := 0
	for c, p := range candidates {
		mean, std := meanStd(scores[c])
		results[c] = model.CandidateResult{Params: p.Map(), MeanScore: mean, StdScore: std}
		if mean > results[bestIdx].MeanScore {
			bestIdx = c
		}
	}
	rankCandidates(results)

	s.logger.Info("grid search finished",
		slog.Duration("elapsed", time.Since(start)),
		slog.Any("best_params", results[bestIdx].Params),
		slog.Float64("best_score", results[bestIdx].MeanScore),
	)

	best := New(candidates[bestIdx])
	if err := best.Fit(ctx, X, y); err != nil {
		return nil, fmt.Errorf("gbt: refitting best candidate: %w", err)
	}

	return &model.FitResult{
		Model:      best,
		BestParams: candidates[bestIdx].Map(),
		Candidates: results,
		BestScore:  results[bestIdx].MeanScore,
	}, nil
}

// StratifiedKFold assigns row indices to k folds so each fold keeps the class
// ratio: within each class, the j-th row goes to fold j mod k. Every class must
// have at least k rows.
func StratifiedKFold(y []int, k int) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("gbt: need at least 2 folds, got %d", k)
	}
	var byClass [2][]int
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	for class, rows := range byClass {
		if len(rows) < k {
			return nil, fmt.Errorf("gbt: class %d has %d rows, fewer than %d folds", class, len(rows), k)
		}
	}

	folds := make([][]int, k)
	for _, rows := range byClass {
		for j, i := range rows {
			folds[j%k] = append(folds[j%k], i)
		}
	}
	for _, f := range folds {
		sort.Ints(f)
	}
	return folds, nil
}

func splitFold(X [][]float64, y []int, valid []int) (trainX [][]float64, trainY []int, validX [][]float64, validY []int) {
	inValid := make(map[int]struct{}, len(valid))
	for _, i := range valid {
		inValid[i] = struct{}{}
	}
	for i := range X {
		if _, ok := inValid[i]; ok {
			validX = append(validX, X[i])
			validY = append(validY, y[i])
			continue
		}
		trainX = append(trainX, X[i])
		trainY = append(trainY, y[i])
	}
	return trainX, trainY, validX, validY
}

type scoreFunc func(yTrue []int, proba []float64) (float64, error)

func scorer(name string) (scoreFunc, error) {
	switch name {
	case ScoringAccuracy:
		return func(yTrue []int, proba []float64) (float64, error) {
			return service.Accuracy(yTrue, proba, 0.5), nil
		}, nil
	case ScoringROCAUC:
		return func(yTrue []int, proba []float64) (float64, error) {
			_, auc, ok := service.ROCCurve(yTrue, proba)
			if !ok {
				return 0, errors.New("roc_auc is undefined for a single-class fold")
			}
			return auc, nil
		}, nil
	default:
		return nil, fmt.Errorf("gbt: unknown scoring %q", name)
	}
}

// meanStd returns the mean and population standard deviation of the fold scores.
func meanStd(v []float64) (float64, float64) {
	if len(v) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(v, nil)
}

// rankCandidates assigns rank 1 to the best mean score; equal scores share the lowest rank.
func rankCandidates(results []model.CandidateResult) {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]].MeanScore > results[order[b]].MeanScore
	})
	for pos, idx := range order {
		rank := pos + 1
		if pos > 0 && results[idx].MeanScore == results[order[pos-1]].MeanScore {
			rank = results[order[pos-1]].Rank
		}
		results[idx].Rank = rank
	}
}
