package db

import (
	"os"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	dbPath := "./test.db"
	InitDB(dbPath)

	code := m.Run()

	Close()
	os.Remove(dbPath)
	os.Exit(code)
}

func TestSaveAndListPredictions(t *testing.T) {
	rec := PredictionRecord{
		Magnitude: 6.5, Depth: 10, CDI: 8, MMI: 7, Sig: 750,
		Probability: 0.82, Risk: "high",
	}
	if err := SavePrediction(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := RecentPredictions(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected at least one prediction")
	}
	latest := records[0]
	if latest.Magnitude != 6.5 || latest.Risk != "high" {
		t.Fatalf("unexpected record: %+v", latest)
	}
	if latest.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestSaveAndListTrainingRuns(t *testing.T) {
	run := TrainingRun{
		Dataset: "quakes.csv", Target: "alert_binary", TestSize: 0.2,
		Accuracy: 0.91, Precision: 0.88, Recall: 0.87, F1: 0.875,
		Rows: 120, TrainedAt: time.Now().UTC(),
	}
	if err := SaveTrainingRun(run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runs, err := ListTrainingRuns(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) == 0 {
		t.Fatal("expected at least one training run")
	}
	if runs[0].Dataset != "quakes.csv" || runs[0].F1 != 0.875 {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
}
