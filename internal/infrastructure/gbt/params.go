package gbt

import (
	"fmt"
	"math"
	"sort"
)

// Grid keys understood by ParseGrid.
const (
	KeyNEstimators    = "n_estimators"
	KeyMaxDepth       = "max_depth"
	KeyLearningRate   = "learning_rate"
	KeyMinChildWeight = "min_child_weight"
	KeyLambda         = "lambda"
	KeyGamma          = "gamma"
)

// Params are the boosting hyperparameters.
type Params struct {
	NEstimators    int
	MaxDepth       int
	LearningRate   float64
	MinChildWeight float64
	Lambda         float64
	Gamma          float64
}

// DefaultParams mirrors the usual gradient boosting defaults.
func DefaultParams() Params {
	return Params{
		NEstimators:    100,
		MaxDepth:       6,
		LearningRate:   0.3,
		MinChildWeight: 1,
		Lambda:         1,
		Gamma:          0,
	}
}

// Validate checks every parameter is in range.
func (p Params) Validate() error {
	switch {
	case p.NEstimators < 1:
		return fmt.Errorf("gbt: n_estimators must be at least 1, got %d", p.NEstimators)
	case p.MaxDepth < 1:
		return fmt.Errorf("gbt: max_depth must be at least 1, got %d", p.MaxDepth)
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return fmt.Errorf("gbt: learning_rate must be in (0, 1], got %g", p.LearningRate)
	case p.MinChildWeight < 0:
		return fmt.Errorf("gbt: min_child_weight must not be negative, got %g", p.MinChildWeight)
	case p.Lambda < 0:
		return fmt.Errorf("gbt: lambda must not be negative, got %g", p.Lambda)
	case p.Gamma < 0:
		return fmt.Errorf("gbt: gamma must not be negative, got %g", p.Gamma)
	}
	return nil
}

// Map returns the parameters keyed by grid name.
func (p Params) Map() map[string]float64 {
	return map[string]float64{
		KeyNEstimators:    float64(p.NEstimators),
		KeyMaxDepth:       float64(p.MaxDepth),
		KeyLearningRate:   p.LearningRate,
		KeyMinChildWeight: p.MinChildWeight,
		KeyLambda:         p.Lambda,
		KeyGamma:          p.Gamma,
	}
}

func (p Params) with(key string, v float64) (Params, error) {
	switch key {
	case KeyNEstimators:
		n, err := wholeNumber(key, v)
		if err != nil {
			return p, err
		}
		p.NEstimators = n
	case KeyMaxDepth:
		n, err := wholeNumber(key, v)
		if err != nil {
			return p, err
		}
		p.MaxDepth = n
	case KeyLearningRate:
		p.LearningRate = v
	case KeyMinChildWeight:
		p.MinChildWeight = v
	case KeyLambda:
		p.Lambda = v
	case KeyGamma:
		p.Gamma = v
	default:
		return p, fmt.Errorf("gbt: unknown hyperparameter %q", key)
	}
	return p, nil
}

func wholeNumber(key string, v float64) (int, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("gbt: %s must be a whole number, got %g", key, v)
	}
	return int(v), nil
}

// ParseGrid expands a hyperparameter grid into candidate configurations over base.
// Keys are walked in sorted order with the last key varying fastest, so the
// candidate order is deterministic. An empty grid yields base alone.
func ParseGrid(base Params, grid map[string][]float64) ([]Params, error) {
	keys := make([]string, 0, len(grid))
	for k, values := range grid {
		if len(values) == 0 {
			return nil, fmt.Errorf("gbt: hyperparameter %q has no values", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	candidates := []Params{base}
	for _, k := range keys {
		next := make([]Params, 0, len(candidates)*len(grid[k]))
		for _, c := range candidates {
			for _, v := range grid[k] {
				p, err := c.with(k, v)
				if err != nil {
					return nil, err
				}
				next = append(next, p)
			}
		}
		candidates = next
	}

	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return candidates, nil
}
