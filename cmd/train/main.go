package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"quakewatch/catalog"
	"quakewatch/db"
	"quakewatch/logging"
	"quakewatch/ml"
)

type config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Storage struct {
		RawDir       string `yaml:"raw_dir"`
		ProcessedDir string `yaml:"processed_dir"`
		Encoding     string `yaml:"encoding"`
	} `yaml:"storage"`
	Model struct {
		Path        string  `yaml:"path"`
		WindowHours float64 `yaml:"window_hours"`
	} `yaml:"model"`
	Log logging.Config `yaml:"log"`
}

func main() {
	dataset := flag.String("dataset", "earthquake_processed.csv", "processed dataset filename")
	target := flag.String("target", "alert_binary", "target column to predict")
	testSize := flag.Float64("test-size", 0.2, "test set proportion (0 < value < 1)")
	configPath := flag.String("config", "config.yaml", "configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}

	datasets, err := catalog.NewStore(cfg.Storage.RawDir, cfg.Storage.ProcessedDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open dataset store: %v\n", err)
		os.Exit(1)
	}
	datasets.Encoding = cfg.Storage.Encoding

	windowHours := cfg.Model.WindowHours
	if windowHours <= 0 {
		windowHours = 24
	}
	trainer := ml.NewTrainer(datasets, ml.NewArtifactStore(cfg.Model.Path), windowHours)

	_, report, err := trainer.Train(*dataset, *target, *testSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "training failed: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Path != "" {
		if err := db.InitDB(cfg.Database.Path); err == nil {
			db.SaveTrainingRun(db.TrainingRun{
				Dataset:   *dataset,
				Target:    *target,
				TestSize:  *testSize,
				Accuracy:  report.Accuracy,
				Precision: report.WeightedPrecision,
				Recall:    report.WeightedRecall,
				F1:        report.WeightedF1,
				Rows:      report.Samples,
				TrainedAt: time.Now().UTC(),
			})
			db.Close()
		}
	}

	fmt.Printf("Training complete: precision=%.3f, recall=%.3f, f1=%.3f\n",
		report.WeightedPrecision, report.WeightedRecall, report.WeightedF1)
}

func loadConfig(path string) (*config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
