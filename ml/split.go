package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions row indexes into train and test sets, drawing
// the test fraction independently per label class so the class ratio is
// preserved. Both index sets come back ascending, so time-ordered inputs
// stay time-ordered within each partition (the feature engineer depends on
// that). Deterministic for a fixed seed.
func StratifiedSplit(labels []float64, testSize float64, seed int64) (trainIdx, testIdx []int, err error) {
	if len(labels) == 0 {
		return nil, nil, errors.New("no labels to split")
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.New("test size must be in (0, 1)")
	}

	byClass := make(map[float64][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]float64, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Float64s(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, class := range classes {
		members := byClass[class]
		shuffled := append([]int(nil), members...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		take := int(math.Round(testSize * float64(len(shuffled))))
		if take >= len(shuffled) {
			take = len(shuffled) - 1
		}
		testIdx = append(testIdx, shuffled[:take]...)
		trainIdx = append(trainIdx, shuffled[take:]...)
	}

	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, nil, errors.New("split produced an empty partition")
	}
	return trainIdx, testIdx, nil
}
