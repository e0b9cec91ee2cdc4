package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrArtifactMissing reports that no artifact file exists yet.
	ErrArtifactMissing = errors.New("model artifact not found")
	// ErrScalerMissing reports a bundle persisted without its scaler,
	// which makes its predictions meaningless.
	ErrScalerMissing = errors.New("model artifact missing scaler component")
)

// ModelArtifact is the persisted bundle needed to reproduce predictions:
// classifier, frozen scaler, and the exact feature order both were fit on.
// Immutable once written; replaced only by retraining.
type ModelArtifact struct {
	Model        *GradientBoosting `json:"model"`
	Scaler       *StandardScaler   `json:"scaler"`
	FeatureNames []string          `json:"feature_names"`
	WindowHours  float64           `json:"window_hours"`
	TrainedAt    time.Time         `json:"trained_at"`
	Metrics      *Report           `json:"metrics,omitempty"`
}

// ArtifactStore persists one artifact bundle at a fixed path.
type ArtifactStore struct {
	Path string
}

func NewArtifactStore(path string) *ArtifactStore {
	return &ArtifactStore{Path: path}
}

// Save writes the bundle atomically: marshal to a temp file in the target
// directory, then rename into place. A crash mid-write never leaves a
// partial artifact visible to Load.
func (s *ArtifactStore) Save(artifact *ModelArtifact) error {
	if artifact.Model == nil {
		return errors.New("artifact has no model")
	}
	if artifact.Scaler == nil {
		return ErrScalerMissing
	}
	payload, err := json.Marshal(artifact)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Load reads and validates the bundle. Returns ErrArtifactMissing when the
// file does not exist and ErrScalerMissing when the bundle has no scaler.
func (s *ArtifactStore) Load() (*ModelArtifact, error) {
	payload, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", s.Path, ErrArtifactMissing)
		}
		return nil, err
	}
	var artifact ModelArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	if artifact.Scaler == nil || artifact.Scaler.Mean == nil {
		return nil, fmt.Errorf("%s: %w", s.Path, ErrScalerMissing)
	}
	if artifact.Model == nil {
		return nil, fmt.Errorf("decode %s: bundle has no model", s.Path)
	}
	return &artifact, nil
}
