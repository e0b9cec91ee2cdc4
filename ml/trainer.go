package ml

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quakewatch/catalog"
)

const splitSeed = 42

// Trainer fits the full pipeline on a processed dataset and packages the
// deployable artifact.
type Trainer struct {
	Datasets    *catalog.Store
	Artifacts   *ArtifactStore
	WindowHours float64
}

func NewTrainer(datasets *catalog.Store, artifacts *ArtifactStore, windowHours float64) *Trainer {
	return &Trainer{Datasets: datasets, Artifacts: artifacts, WindowHours: windowHours}
}

// Train loads the named processed dataset, fits the preprocessing pipeline
// on a stratified training split only, fits the classifier on the
// standardized training rows, evaluates on the held-out split, and saves
// the artifact atomically. Schema checks run before any fitting.
func (t *Trainer) Train(dataset, target string, testSize float64) (*GradientBoosting, *Report, error) {
	ds, err := t.Datasets.LoadProcessed(dataset)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := ds.ColumnIndex(target); !ok {
		return nil, nil, fmt.Errorf("target %q: %w", target, catalog.ErrColumnMissing)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.New("test size must be in (0, 1)")
	}

	raw, labels, err := rawRows(ds, target)
	if err != nil {
		return nil, nil, err
	}

	trainIdx, testIdx, err := StratifiedSplit(labels, testSize, splitSeed)
	if err != nil {
		return nil, nil, err
	}
	trainRaw, trainY := pick(raw, labels, trainIdx)
	testRaw, testY := pick(raw, labels, testIdx)

	scaler := &StandardScaler{}
	pipe := NewPipeline(NewFeatureEngineer(t.WindowHours), scaler)
	trainX, err := pipe.FitTransform(trainRaw)
	if err != nil {
		return nil, nil, err
	}
	testX, err := pipe.Transform(testRaw)
	if err != nil {
		return nil, nil, err
	}

	model := NewGradientBoosting()
	if err := model.Fit(trainX, trainY); err != nil {
		return nil, nil, err
	}

	predicted := make([]float64, len(testX))
	for i, row := range testX {
		label, err := model.Predict(row)
		if err != nil {
			return nil, nil, err
		}
		predicted[i] = label
	}
	report := Evaluate(predicted, testY)

	artifact := &ModelArtifact{
		Model:        model,
		Scaler:       scaler,
		FeatureNames: FeatureNames(),
		WindowHours:  t.WindowHours,
		TrainedAt:    time.Now().UTC(),
		Metrics:      report,
	}
	if err := t.Artifacts.Save(artifact); err != nil {
		return nil, nil, err
	}

	zap.S().Infow("training complete",
		"dataset", dataset, "target", target,
		"train_rows", len(trainX), "test_rows", len(testX),
		"accuracy", report.Accuracy, "weighted_f1", report.WeightedF1)
	return model, report, nil
}

// rawRows builds engineer input rows [timestamp, magnitude, depth, cdi,
// mmi, sig] plus labels, enforcing the schema.
func rawRows(ds *catalog.Dataset, target string) ([][]float64, []float64, error) {
	indexes := make([]int, 0, len(FeatureNames()))
	for _, name := range RawFeatureNames() {
		idx, ok := ds.ColumnIndex(name)
		if !ok {
			return nil, nil, fmt.Errorf("%s: %w", name, catalog.ErrColumnMissing)
		}
		indexes = append(indexes, idx)
	}
	targetIdx, _ := ds.ColumnIndex(target)

	rows := make([][]float64, ds.Len())
	labels := make([]float64, ds.Len())
	for i, src := range ds.Rows {
		row := make([]float64, 0, rawColumns)
		row = append(row, float64(ds.Times[i].Unix()))
		for _, idx := range indexes {
			row = append(row, src[idx])
		}
		rows[i] = row
		labels[i] = src[targetIdx]
	}
	return rows, labels, nil
}

func pick(rows [][]float64, labels []float64, idx []int) ([][]float64, []float64) {
	outRows := make([][]float64, len(idx))
	outLabels := make([]float64, len(idx))
	for i, j := range idx {
		outRows[i] = rows[j]
		outLabels[i] = labels[j]
	}
	return outRows, outLabels
}
