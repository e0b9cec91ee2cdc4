package ml

import (
	"sort"
	"testing"
)

func TestStratifiedSplitPreservesClassRatio(t *testing.T) {
	labels := make([]float64, 100)
	for i := 80; i < 100; i++ {
		labels[i] = 1
	}

	trainIdx, testIdx, err := StratifiedSplit(labels, 0.25, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trainIdx)+len(testIdx) != len(labels) {
		t.Fatalf("split lost rows: %d + %d != %d", len(trainIdx), len(testIdx), len(labels))
	}

	var testPositives int
	for _, idx := range testIdx {
		if labels[idx] == 1 {
			testPositives++
		}
	}
	if len(testIdx) != 25 {
		t.Fatalf("expected 25 test rows, got %d", len(testIdx))
	}
	if testPositives != 5 {
		t.Fatalf("expected 5 positive test rows, got %d", testPositives)
	}
}

func TestStratifiedSplitDeterministicAndOrdered(t *testing.T) {
	labels := []float64{0, 1, 0, 1, 0, 1, 0, 1, 0, 1}

	train1, test1, err := StratifiedSplit(labels, 0.3, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	train2, test2, err := StratifiedSplit(labels, 0.3, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !equalInts(train1, train2) || !equalInts(test1, test2) {
		t.Fatal("same seed produced different splits")
	}
	if !sort.IntsAreSorted(train1) || !sort.IntsAreSorted(test1) {
		t.Fatal("split indexes not ascending")
	}
}

func TestStratifiedSplitRejectsBadTestSize(t *testing.T) {
	labels := []float64{0, 1}
	for _, size := range []float64{0, 1, -0.2, 1.5} {
		if _, _, err := StratifiedSplit(labels, size, 42); err == nil {
			t.Fatalf("expected error for test size %f", size)
		}
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
