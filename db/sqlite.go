package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        magnitude REAL NOT NULL,
        depth REAL NOT NULL,
        cdi REAL NOT NULL,
        mmi REAL NOT NULL,
        sig REAL NOT NULL,
        probability REAL NOT NULL,
        risk VARCHAR(10) NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        dataset VARCHAR(100) NOT NULL,
        target VARCHAR(50) NOT NULL,
        test_size REAL NOT NULL,
        accuracy REAL,
        precision REAL,
        recall REAL,
        f1 REAL,
        rows INTEGER,
        trained_at DATETIME NOT NULL
    );
    `
	_, err = database.Exec(query)
	return err
}

// Close closes the database handle
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

type PredictionRecord struct {
	ID          int64     `json:"id"`
	Magnitude   float64   `json:"magnitude"`
	Depth       float64   `json:"depth"`
	CDI         float64   `json:"cdi"`
	MMI         float64   `json:"mmi"`
	Sig         float64   `json:"sig"`
	Probability float64   `json:"probability"`
	Risk        string    `json:"risk"`
	CreatedAt   time.Time `json:"created_at"`
}

type TrainingRun struct {
	ID        int64     `json:"id"`
	Dataset   string    `json:"dataset"`
	Target    string    `json:"target"`
	TestSize  float64   `json:"test_size"`
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	Rows      int       `json:"rows"`
	TrainedAt time.Time `json:"trained_at"`
}

// SavePrediction records one served prediction
func SavePrediction(rec PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(
		`INSERT INTO predictions (magnitude, depth, cdi, mmi, sig, probability, risk) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Magnitude, rec.Depth, rec.CDI, rec.MMI, rec.Sig, rec.Probability, rec.Risk,
	)
	return err
}

// RecentPredictions returns the latest served predictions, newest first
func RecentPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(
		`SELECT id, magnitude, depth, cdi, mmi, sig, probability, risk, created_at
         FROM predictions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.ID, &rec.Magnitude, &rec.Depth, &rec.CDI, &rec.MMI,
			&rec.Sig, &rec.Probability, &rec.Risk, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveTrainingRun records the outcome of one training run
func SaveTrainingRun(run TrainingRun) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(
		`INSERT INTO training_runs (dataset, target, test_size, accuracy, precision, recall, f1, rows, trained_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Dataset, run.Target, run.TestSize, run.Accuracy, run.Precision, run.Recall,
		run.F1, run.Rows, run.TrainedAt,
	)
	return err
}

// ListTrainingRuns returns training runs, newest first
func ListTrainingRuns(limit int) ([]TrainingRun, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := database.Query(
		`SELECT id, dataset, target, test_size, accuracy, precision, recall, f1, rows, trained_at
         FROM training_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		var run TrainingRun
		if err := rows.Scan(&run.ID, &run.Dataset, &run.Target, &run.TestSize, &run.Accuracy,
			&run.Precision, &run.Recall, &run.F1, &run.Rows, &run.TrainedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
