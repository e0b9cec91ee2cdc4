package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"quakewatch/catalog"
	"quakewatch/logging"
)

type config struct {
	Storage struct {
		RawDir       string `yaml:"raw_dir"`
		ProcessedDir string `yaml:"processed_dir"`
		Encoding     string `yaml:"encoding"`
	} `yaml:"storage"`
	Log logging.Config `yaml:"log"`
}

func main() {
	feed := flag.String("feed", "", "catalog feed URL to download")
	out := flag.String("out", "earthquake_raw.csv", "raw filename for the downloaded feed")
	raw := flag.String("raw", "", "raw filename to prepare into a processed dataset")
	dataset := flag.String("dataset", "earthquake_processed.csv", "processed dataset filename")
	label := flag.String("label", "alert_binary", "label column name in the processed dataset")
	configPath := flag.String("config", "config.yaml", "configuration file")
	flag.Parse()

	if *feed == "" && *raw == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass --feed to download or --raw to prepare")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}

	store, err := catalog.NewStore(cfg.Storage.RawDir, cfg.Storage.ProcessedDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open catalog store: %v\n", err)
		os.Exit(1)
	}
	store.Encoding = cfg.Storage.Encoding

	if *feed != "" {
		n, err := store.FetchRaw(*feed, *out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("downloaded %d bytes to %s\n", n, *out)
	}

	if *raw != "" {
		stats, err := store.Prepare(*raw, *dataset, *label)
		if err != nil {
			fmt.Fprintf(os.Stderr, "prepare failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("prepared %s: %d rows kept, %d dropped of %d\n",
			*dataset, stats.Kept, stats.Dropped, stats.Total)
	}
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
