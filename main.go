package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"quakewatch/db"
	qhttp "quakewatch/http"
	"quakewatch/logging"
	"quakewatch/ml"
	"quakewatch/monitoring"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
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
		Watch       bool    `yaml:"watch"`
	} `yaml:"model"`
	Log logging.Config `yaml:"log"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logging.Init(config.Log); err != nil {
		os.Stderr.WriteString("failed to init logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer zap.L().Sync()

	if err := db.InitDB(config.Database.Path); err != nil {
		zap.S().Fatalw("failed to initialize database", "error", err)
	}
	defer db.Close()
	zap.S().Infow("database initialized", "path", config.Database.Path)

	store := ml.NewArtifactStore(config.Model.Path)
	cache := ml.NewArtifactCache(store)
	// Warm the cache; a missing artifact is fine, the first predict retries.
	if _, err := cache.Get(); err != nil {
		zap.S().Warnw("model artifact not loaded yet", "error", err)
	}

	if config.Model.Watch {
		watcher, err := ml.WatchArtifact(config.Model.Path, cache)
		if err != nil {
			zap.S().Warnw("artifact watcher unavailable", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	feed := monitoring.NewFeed()
	go feed.Run()
	defer feed.Stop()

	qhttp.SetPredictor(ml.NewInferenceService(cache))
	qhttp.SetArtifactSource(cache)
	qhttp.SetPredictionFeed(feed)

	serverConfig := qhttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds != 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}
	server := qhttp.NewServer(serverConfig)
	go func() {
		if err := server.Start(); err != nil {
			zap.S().Fatalw("HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down")

	if err := server.Stop(); err != nil {
		zap.S().Warnw("server forced to shutdown", "error", err)
	}
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
