package ml

import (
	"fmt"
	"sync"
	"time"
)

// FeatureRequest carries the five raw scalars of one prediction call.
type FeatureRequest struct {
	Magnitude float64 `json:"magnitude"`
	Depth     float64 `json:"depth"`
	CDI       float64 `json:"cdi"`
	MMI       float64 `json:"mmi"`
	Sig       float64 `json:"sig"`
}

// Prediction is the model output for one request.
type Prediction struct {
	Probability  float64 `json:"probability"`
	RiskCategory string  `json:"risk_category"`
}

// CategorizeRisk maps a probability to a risk tier. Lower boundaries are
// inclusive: 0.4 is medium, 0.7 is high.
func CategorizeRisk(probability float64) string {
	switch {
	case probability >= 0.7:
		return "high"
	case probability >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

// InferenceService turns a request into a probability and risk tier using
// the cached artifact's frozen scaler and classifier.
//
// Artifacts trained with trailing-window aggregates need historical context
// the request does not carry. The service keeps its own trailing window of
// observed requests, stamped at arrival time, and computes the aggregates
// with the same semantics as the training-time feature engineer (a cold
// start aggregates over the request alone). Five-feature artifacts skip
// the window entirely.
type InferenceService struct {
	cache *ArtifactCache

	mu     sync.Mutex
	recent []observedEvent
	now    func() time.Time
}

type observedEvent struct {
	at    time.Time
	mag   float64
	depth float64
}

func NewInferenceService(cache *ArtifactCache) *InferenceService {
	return &InferenceService{cache: cache, now: time.Now}
}

// Predict propagates cache load failures (ErrArtifactMissing,
// ErrScalerMissing) unchanged to the caller.
func (s *InferenceService) Predict(req FeatureRequest) (*Prediction, error) {
	artifact, err := s.cache.Get()
	if err != nil {
		return nil, err
	}

	vector := []float64{req.Magnitude, req.Depth, req.CDI, req.MMI, req.Sig}
	if wantsWindowFeatures(artifact.FeatureNames) {
		magMean, depthMean, count := s.observe(req, artifact.WindowHours)
		vector = append(vector, magMean, depthMean, count)
	}
	if len(vector) != len(artifact.Scaler.Mean) {
		return nil, fmt.Errorf("feature vector has %d values, artifact expects %d",
			len(vector), len(artifact.Scaler.Mean))
	}

	scaled, err := artifact.Scaler.Transform([][]float64{vector})
	if err != nil {
		return nil, err
	}
	probability, err := artifact.Model.PredictProba(scaled[0])
	if err != nil {
		return nil, err
	}
	return &Prediction{
		Probability:  probability,
		RiskCategory: CategorizeRisk(probability),
	}, nil
}

func wantsWindowFeatures(featureNames []string) bool {
	for _, name := range featureNames {
		if name == "mag_mean" {
			return true
		}
	}
	return false
}

// observe appends the request to the trailing window, evicts expired
// entries, and returns the window aggregates including the request itself.
func (s *InferenceService) observe(req FeatureRequest, windowHours float64) (magMean, depthMean, count float64) {
	if windowHours <= 0 {
		windowHours = 24
	}
	now := s.now()
	cutoff := now.Add(-time.Duration(windowHours * float64(time.Hour)))

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent = append(s.recent, observedEvent{at: now, mag: req.Magnitude, depth: req.Depth})
	kept := s.recent[:0]
	for _, e := range s.recent {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	s.recent = kept

	var magSum, depthSum float64
	for _, e := range s.recent {
		magSum += e.mag
		depthSum += e.depth
	}
	n := float64(len(s.recent))
	return magSum / n, depthSum / n, n
}
