package ml

import (
	"math"
	"testing"
)

func separableData() ([][]float64, []float64) {
	features := [][]float64{
		{0.1, 0.2}, {0.2, 0.1}, {0.15, 0.25}, {0.3, 0.2}, {0.25, 0.15},
		{0.9, 0.8}, {0.8, 0.9}, {0.85, 0.75}, {0.7, 0.8}, {0.75, 0.85},
	}
	labels := []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	return features, labels
}

func smallModel() *GradientBoosting {
	model := NewGradientBoosting()
	model.NumTrees = 30
	model.MaxDepth = 3
	model.LearningRate = 0.3
	return model
}

func TestGradientBoostingLearnsSeparableData(t *testing.T) {
	features, labels := separableData()
	model := smallModel()
	if err := model.Fit(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	low, err := model.PredictProba([]float64{0.2, 0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	high, err := model.PredictProba([]float64{0.8, 0.8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if low >= 0.5 {
		t.Fatalf("expected low probability for negative region, got %f", low)
	}
	if high <= 0.5 {
		t.Fatalf("expected high probability for positive region, got %f", high)
	}

	label, err := model.Predict([]float64{0.8, 0.8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 1 {
		t.Fatalf("expected label 1, got %f", label)
	}
}

func TestGradientBoostingDeterministicForFixedSeed(t *testing.T) {
	features, labels := separableData()

	first := smallModel()
	if err := first.Fit(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := smallModel()
	if err := second.Fit(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	point := []float64{0.4, 0.6}
	p1, err := first.PredictProba(point)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, err := second.PredictProba(point)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("same seed produced different probabilities: %f vs %f", p1, p2)
	}
}

func TestGradientBoostingBiasOnlyModel(t *testing.T) {
	model := &GradientBoosting{Bias: math.Log(3)}
	p, err := model.PredictProba([]float64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p-0.75) > 1e-9 {
		t.Fatalf("expected probability 0.75, got %f", p)
	}
}

func TestBuildRegTreeDepthTwoIndexes(t *testing.T) {
	// Gradients chosen so both children of the root split again: the tree
	// has three internal nodes and four leaves.
	features := [][]float64{{0}, {1}, {2}, {3}}
	grads := []float64{-4, -1, 1, 4}
	hess := []float64{1, 1, 1, 1}

	tree := buildRegTree(features, grads, hess, []int{0, 1, 2, 3}, []int{0}, 0, 2)
	if len(tree) != 7 {
		t.Fatalf("expected 7 nodes, got %d", len(tree))
	}
	for i, node := range tree {
		if node.IsLeaf {
			continue
		}
		if node.LeftChild <= i || node.LeftChild >= len(tree) {
			t.Fatalf("node %d has invalid left child %d", i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(tree) {
			t.Fatalf("node %d has invalid right child %d", i, node.RightChild)
		}
	}

	// Leaf values are sum(grad)/(sum(hess)+lambda) over the routed rows.
	cases := []struct {
		input float64
		want  float64
	}{
		{0, -2}, {1, -0.5}, {2, 0.5}, {3, 2},
	}
	for _, tc := range cases {
		got, err := evalTree(tree, []float64{tc.input})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("input %f routed to leaf %f, want %f", tc.input, got, tc.want)
		}
	}
}

func TestPredictProbaRejectsInvalidTree(t *testing.T) {
	model := &GradientBoosting{
		LearningRate: DefaultLearningRate,
		Trees: [][]GBNode{{
			{FeatureIdx: 0, Threshold: 0.5, LeftChild: 0, RightChild: 1},
			{Value: 1, IsLeaf: true},
		}},
	}
	if _, err := model.PredictProba([]float64{0}); err == nil {
		t.Fatal("expected error for self-referencing node")
	}

	model.Trees = [][]GBNode{{{FeatureIdx: 3, Threshold: 0.5, LeftChild: 1, RightChild: 1}, {Value: 1, IsLeaf: true}}}
	if _, err := model.PredictProba([]float64{0}); err == nil {
		t.Fatal("expected error for feature index out of range")
	}
}

func TestGradientBoostingValidatesInput(t *testing.T) {
	model := smallModel()
	if err := model.Fit(nil, nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if err := model.Fit([][]float64{{1}}, []float64{0, 1}); err == nil {
		t.Fatal("expected error for size mismatch")
	}
	if err := model.Fit([][]float64{{1}, {2}}, []float64{0, 2}); err == nil {
		t.Fatal("expected error for non-binary label")
	}
}
