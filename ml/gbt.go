package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Fixed training configuration. Changing any of these invalidates
// reproducibility of previously reported metrics.
const (
	DefaultMaxDepth     = 6
	DefaultLearningRate = 0.05
	DefaultNumTrees     = 300
	DefaultSubsample    = 0.8
	DefaultColSample    = 0.8
	DefaultSeed         = 42

	regLambda = 1.0
)

// GradientBoosting is a binary classifier of boosted regression trees on the
// logistic objective. Each round fits a tree to the gradient of the log loss
// on a row and column subsample; leaf values are Newton steps. Deterministic
// for a fixed seed. Trees serialize as flat node arrays.
type GradientBoosting struct {
	MaxDepth     int     `json:"max_depth"`
	LearningRate float64 `json:"learning_rate"`
	NumTrees     int     `json:"num_trees"`
	Subsample    float64 `json:"subsample"`
	ColSample    float64 `json:"col_sample"`
	Seed         int64   `json:"seed"`

	Bias  float64    `json:"bias"`
	Trees [][]GBNode `json:"trees"`
}

type GBNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		MaxDepth:     DefaultMaxDepth,
		LearningRate: DefaultLearningRate,
		NumTrees:     DefaultNumTrees,
		Subsample:    DefaultSubsample,
		ColSample:    DefaultColSample,
		Seed:         DefaultSeed,
	}
}

func (gb *GradientBoosting) Fit(features [][]float64, labels []float64) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	var positives float64
	for i, row := range features {
		if len(row) != width {
			return errors.New("ragged feature rows")
		}
		if labels[i] != 0 && labels[i] != 1 {
			return fmt.Errorf("label %v is not binary", labels[i])
		}
		positives += labels[i]
	}

	base := positives / float64(len(labels))
	base = math.Min(math.Max(base, 1e-6), 1-1e-6)
	gb.Bias = math.Log(base / (1 - base))
	gb.Trees = nil

	rng := rand.New(rand.NewSource(gb.Seed))
	scores := make([]float64, len(labels))
	for i := range scores {
		scores[i] = gb.Bias
	}
	grads := make([]float64, len(labels))
	hess := make([]float64, len(labels))

	for t := 0; t < gb.NumTrees; t++ {
		for i := range labels {
			p := sigmoid(scores[i])
			grads[i] = labels[i] - p
			hess[i] = p * (1 - p)
		}
		rows := sampleIndexes(rng, len(labels), gb.Subsample)
		cols := sampleIndexes(rng, width, gb.ColSample)

		tree := buildRegTree(features, grads, hess, rows, cols, 0, gb.MaxDepth)
		gb.Trees = append(gb.Trees, tree)

		for i, row := range features {
			value, err := evalTree(tree, row)
			if err != nil {
				return err
			}
			scores[i] += gb.LearningRate * value
		}
	}
	return nil
}

// PredictProba returns the positive-class probability for one feature vector.
func (gb *GradientBoosting) PredictProba(features []float64) (float64, error) {
	score := gb.Bias
	for _, tree := range gb.Trees {
		value, err := evalTree(tree, features)
		if err != nil {
			return 0, err
		}
		score += gb.LearningRate * value
	}
	return sigmoid(score), nil
}

// Predict thresholds PredictProba at 0.5.
func (gb *GradientBoosting) Predict(features []float64) (float64, error) {
	p, err := gb.PredictProba(features)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// sampleIndexes draws round(fraction*n) indexes without replacement,
// returned ascending so tree construction is order-independent of the draw.
func sampleIndexes(rng *rand.Rand, n int, fraction float64) []int {
	if fraction >= 1 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	count := int(math.Round(fraction * float64(n)))
	if count < 1 {
		count = 1
	}
	perm := rng.Perm(n)
	picked := append([]int(nil), perm[:count]...)
	sort.Ints(picked)
	return picked
}

func buildRegTree(features [][]float64, grads, hess []float64, rows, cols []int, depth, maxDepth int) []GBNode {
	value := leafValue(grads, hess, rows)
	if depth >= maxDepth || len(rows) < 2 {
		return []GBNode{leafNode(value)}
	}

	bestCol, bestThreshold, ok := findBestRegSplit(features, grads, hess, rows, cols)
	if !ok {
		return []GBNode{leafNode(value)}
	}

	var left, right []int
	for _, idx := range rows {
		if features[idx][bestCol] <= bestThreshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return []GBNode{leafNode(value)}
	}

	leftNodes := buildRegTree(features, grads, hess, left, cols, depth+1, maxDepth)
	rightNodes := buildRegTree(features, grads, hess, right, cols, depth+1, maxDepth)

	root := GBNode{
		FeatureIdx: bestCol,
		Threshold:  bestThreshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		Value:      value,
	}
	// Subtree child indexes are relative to the subtree's own array; shift
	// them to absolute positions as the subtrees are spliced in.
	nodes := make([]GBNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = appendShifted(nodes, leftNodes, 1)
	nodes = appendShifted(nodes, rightNodes, 1+len(leftNodes))
	return nodes
}

func appendShifted(nodes, subtree []GBNode, offset int) []GBNode {
	for _, node := range subtree {
		if !node.IsLeaf {
			node.LeftChild += offset
			node.RightChild += offset
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func leafNode(value float64) GBNode {
	return GBNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: value, IsLeaf: true}
}

func leafValue(grads, hess []float64, rows []int) float64 {
	var g, h float64
	for _, idx := range rows {
		g += grads[idx]
		h += hess[idx]
	}
	return g / (h + regLambda)
}

// findBestRegSplit picks the candidate column whose median split maximizes
// the gain of the regularized Newton objective.
func findBestRegSplit(features [][]float64, grads, hess []float64, rows, cols []int) (int, float64, bool) {
	var gTotal, hTotal float64
	for _, idx := range rows {
		gTotal += grads[idx]
		hTotal += hess[idx]
	}
	parent := gTotal * gTotal / (hTotal + regLambda)

	bestCol := -1
	bestThreshold := 0.0
	bestGain := 0.0

	values := make([]float64, len(rows))
	for _, col := range cols {
		for i, idx := range rows {
			values[i] = features[idx][col]
		}
		threshold := median(values)

		var gLeft, hLeft float64
		var nLeft int
		for _, idx := range rows {
			if features[idx][col] <= threshold {
				gLeft += grads[idx]
				hLeft += hess[idx]
				nLeft++
			}
		}
		if nLeft == 0 || nLeft == len(rows) {
			continue
		}
		gRight := gTotal - gLeft
		hRight := hTotal - hLeft
		gain := gLeft*gLeft/(hLeft+regLambda) + gRight*gRight/(hRight+regLambda) - parent
		if gain > bestGain {
			bestGain = gain
			bestCol = col
			bestThreshold = threshold
		}
	}
	if bestCol == -1 {
		return -1, 0, false
	}
	return bestCol, bestThreshold, true
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func evalTree(nodes []GBNode, features []float64) (float64, error) {
	if len(nodes) == 0 {
		return 0, errors.New("invalid tree state")
	}
	idx := 0
	for {
		node := nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}
