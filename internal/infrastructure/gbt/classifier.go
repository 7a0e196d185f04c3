// Package gbt implements a gradient-boosted decision tree binary classifier
// and the grid-search cross-validation driver that selects its hyperparameters.
package gbt

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ModelType identifies this classifier in artifact manifests.
const ModelType = "gbt"

// probabilityClip keeps the base score finite when the label mean is 0 or 1.
const probabilityClip = 1e-6

// Node is one node of a fitted tree. Rows with x[Feature] < Threshold go Left.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Leaf      bool
	Value     float64
}

// Tree is a regression tree stored as a flat node slice rooted at index 0.
type Tree struct {
	Nodes []Node
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Classifier is a boosted ensemble of regression trees fit on the logistic loss.
// A fitted Classifier is read-only and safe for concurrent use.
type Classifier struct {
	Params    Params
	Trees     []Tree
	BaseScore float64
	Features  int
}

// New returns an unfitted classifier.
func New(params Params) *Classifier {
	return &Classifier{Params: params}
}

// Fit trains the ensemble on X (n x p) and binary labels y. It checks ctx
// between boosting rounds.
func (c *Classifier) Fit(ctx context.Context, X [][]float64, y []int) error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	width, err := checkTrainingData(X, y)
	if err != nil {
		return err
	}

	n := len(X)
	pos := 0
	for _, label := range y {
		pos += label
	}
	mean := math.Min(math.Max(float64(pos)/float64(n), probabilityClip), 1-probabilityClip)

	c.Features = width
	c.BaseScore = math.Log(mean / (1 - mean))
	c.Trees = make([]Tree, 0, c.Params.NEstimators)

	sorted := presort(X, width)
	margin := make([]float64, n)
	for i := range margin {
		margin[i] = c.BaseScore
	}
	grad := make([]float64, n)
	hess := make([]float64, n)

	b := &builder{
		X:      X,
		grad:   grad,
		hess:   hess,
		params: c.Params,
		left:   make([]bool, n),
	}

	for round := 0; round < c.Params.NEstimators; round++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("gbt: fit cancelled at round %d: %w", round, err)
		}

		for i := range margin {
			p := sigmoid(margin[i])
			grad[i] = p - float64(y[i])
			hess[i] = math.Max(p*(1-p), 1e-16)
		}

		tree := b.build(sorted)
		for i, x := range X {
			margin[i] += tree.predict(x)
		}
		c.Trees = append(c.Trees, tree)
	}
	return nil
}

// PredictProbability returns the positive-class probability for each row.
func (c *Classifier) PredictProbability(X [][]float64) ([]float64, error) {
	if c.Features == 0 {
		return nil, errors.New("gbt: model is not fitted")
	}
	out := make([]float64, len(X))
	for i, x := range X {
		if len(x) != c.Features {
			return nil, fmt.Errorf("gbt: row %d has %d features, model expects %d", i, len(x), c.Features)
		}
		m := c.BaseScore
		for t := range c.Trees {
			m += c.Trees[t].predict(x)
		}
		out[i] = sigmoid(m)
	}
	return out, nil
}

// NumFeatures returns the feature vector width the model was fit on.
func (c *Classifier) NumFeatures() int {
	return c.Features
}

// Parameters returns the hyperparameters the model was fit with, keyed by grid name.
func (c *Classifier) Parameters() map[string]float64 {
	return c.Params.Map()
}

// classifierState is the gob payload. It has no methods so gob does not recurse
// into MarshalBinary.
type classifierState struct {
	Params    Params
	Trees     []Tree
	BaseScore float64
	Features  int
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (c *Classifier) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	state := classifierState{Params: c.Params, Trees: c.Trees, BaseScore: c.BaseScore, Features: c.Features}
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("gbt: encoding model: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler and validates the tree structure.
func (c *Classifier) UnmarshalBinary(data []byte) error {
	var state classifierState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("gbt: decoding model: %w", err)
	}
	if state.Features < 1 {
		return errors.New("gbt: decoded model has no features")
	}
	if len(state.Trees) == 0 {
		return errors.New("gbt: decoded model has no trees")
	}
	for t, tree := range state.Trees {
		if err := validateTree(tree, state.Features); err != nil {
			return fmt.Errorf("gbt: tree %d: %w", t, err)
		}
	}
	c.Params = state.Params
	c.Trees = state.Trees
	c.BaseScore = state.BaseScore
	c.Features = state.Features
	return nil
}

// Decode restores a classifier written by MarshalBinary.
func Decode(data []byte) (*Classifier, error) {
	c := &Classifier{}
	if err := c.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return c, nil
}

func validateTree(t Tree, features int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= features {
			return fmt.Errorf("node %d splits on feature %d of %d", i, n.Feature, features)
		}
		// Children always follow their parent, which also rules out cycles.
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
	}
	return nil
}

func checkTrainingData(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("gbt: empty X")
	}
	if len(y) != len(X) {
		return 0, fmt.Errorf("gbt: X has %d rows but y has %d", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return 0, errors.New("gbt: rows have no features")
	}
	var seen [2]bool
	for i := range X {
		if len(X[i]) != width {
			return 0, fmt.Errorf("gbt: row %d has %d features, want %d", i, len(X[i]), width)
		}
		for _, v := range X[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("gbt: row %d holds a non-finite value", i)
			}
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, fmt.Errorf("gbt: label %d at row %d is not binary", y[i], i)
		}
		seen[y[i]] = true
	}
	if !seen[0] || !seen[1] {
		return 0, errors.New("gbt: labels contain a single class")
	}
	return width, nil
}

// presort returns, per feature, the row indices ordered by that feature's value.
func presort(X [][]float64, width int) [][]int {
	sorted := make([][]int, width)
	for f := 0; f < width; f++ {
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return X[idx[a]][f] < X[idx[b]][f] })
		sorted[f] = idx
	}
	return sorted
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// builder grows one tree with exact greedy second-order splits.
type builder struct {
	X      [][]float64
	grad   []float64
	hess   []float64
	left   []bool
	nodes  []Node
	params Params
}

func (b *builder) build(sorted [][]int) Tree {
	b.nodes = make([]Node, 0, 1<<uint(min(b.params.MaxDepth+1, 10)))
	b.grow(sorted, 0)
	return Tree{Nodes: b.nodes}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// grow appends the subtree for the rows in sorted and returns its root index.
// Every sorted[f] holds the same rows, ordered by feature f.
func (b *builder) grow(sorted [][]int, depth int) int {
	var G, H float64
	for _, i := range sorted[0] {
		G += b.grad[i]
		H += b.hess[i]
	}

	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Leaf: true, Value: b.params.LearningRate * leafWeight(G, H, b.params.Lambda)})

	if depth >= b.params.MaxDepth || len(sorted[0]) < 2 {
		return id
	}

	best, ok := b.bestSplit(sorted, G, H)
	if !ok {
		return id
	}

	for _, i := range sorted[0] {
		b.left[i] = b.X[i][best.feature] < best.threshold
	}
	leftRows := make([][]int, len(sorted))
	rightRows := make([][]int, len(sorted))
	for f, rows := range sorted {
		l := make([]int, 0, len(rows))
		r := make([]int, 0, len(rows))
		for _, i := range rows {
			if b.left[i] {
				l = append(l, i)
			} else {
				r = append(r, i)
			}
		}
		leftRows[f], rightRows[f] = l, r
	}

	leftID := b.grow(leftRows, depth+1)
	rightID := b.grow(rightRows, depth+1)
	b.nodes[id] = Node{Feature: best.feature, Threshold: best.threshold, Left: leftID, Right: rightID}
	return id
}

func (b *builder) bestSplit(sorted [][]int, G, H float64) (split, bool) {
	lambda := b.params.Lambda
	parent := G * G / (H + lambda)
	best := split{}
	found := false

	for f, rows := range sorted {
		var GL, HL float64
		for k := 0; k < len(rows)-1; k++ {
			i := rows[k]
			GL += b.grad[i]
			HL += b.hess[i]

			cur, next := b.X[i][f], b.X[rows[k+1]][f]
			if cur == next {
				continue
			}
			GR, HR := G-GL, H-HL
			if HL < b.params.MinChildWeight || HR < b.params.MinChildWeight {
				continue
			}
			gain := 0.5*(GL*GL/(HL+lambda)+GR*GR/(HR+lambda)-parent) - b.params.Gamma
			if gain > best.gain {
				threshold := cur + (next-cur)/2
				if threshold <= cur {
					threshold = next
				}
				best = split{feature: f, threshold: threshold, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func leafWeight(G, H, lambda float64) float64 {
	if H+lambda == 0 {
		return 0
	}
	return -G / (H + lambda)
}
