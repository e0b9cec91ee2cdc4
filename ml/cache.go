package ml

import (
	"sync"

	"go.uber.org/zap"
)

// ArtifactLoader loads the current artifact bundle from storage.
type ArtifactLoader interface {
	Load() (*ModelArtifact, error)
}

// ArtifactCache holds the one loaded artifact shared by all inference
// calls. The first Get loads from storage; later Gets return the same
// instance without touching disk. Failed loads are not cached, so the next
// Get retries. The artifact is immutable after load, so reads past the
// lock need no further synchronization.
type ArtifactCache struct {
	loader ArtifactLoader

	mu       sync.Mutex
	artifact *ModelArtifact
}

func NewArtifactCache(loader ArtifactLoader) *ArtifactCache {
	return &ArtifactCache{loader: loader}
}

func (c *ArtifactCache) Get() (*ModelArtifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.artifact != nil {
		return c.artifact, nil
	}
	artifact, err := c.loader.Load()
	if err != nil {
		return nil, err
	}
	c.artifact = artifact
	return artifact, nil
}

// Reload discards the cached artifact and reads storage again. On failure
// the cache is left empty rather than keeping the stale instance.
func (c *ArtifactCache) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifact = nil
	artifact, err := c.loader.Load()
	if err != nil {
		return err
	}
	c.artifact = artifact
	zap.S().Infow("model artifact reloaded",
		"features", len(artifact.FeatureNames), "trained_at", artifact.TrainedAt)
	return nil
}
