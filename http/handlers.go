package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"quakewatch/db"
	"quakewatch/ml"
	"quakewatch/monitoring"
)

// Predictor is the inference dependency of the predict handler.
type Predictor interface {
	Predict(req ml.FeatureRequest) (*ml.Prediction, error)
}

// ArtifactSource exposes the cached artifact for the model endpoints.
type ArtifactSource interface {
	Get() (*ml.ModelArtifact, error)
	Reload() error
}

var (
	predictor      Predictor
	artifactSource ArtifactSource
	feed           *monitoring.Feed

	// swappable for tests
	savePrediction = db.SavePrediction
)

func SetPredictor(p Predictor) {
	predictor = p
}

func SetArtifactSource(s ArtifactSource) {
	artifactSource = s
}

func SetPredictionFeed(f *monitoring.Feed) {
	feed = f
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /wakeup", handleWakeup)
	mux.HandleFunc("POST /predict", handlePredict)
	mux.HandleFunc("GET /api/model", handleModelInfo)
	mux.HandleFunc("POST /api/model/reload", handleModelReload)
	mux.HandleFunc("GET /api/predictions", handleRecentPredictions)
	mux.HandleFunc("GET /api/ws/predictions", handlePredictionFeed)
}

func handleWakeup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"is_awake": true})
}

// predictRequest uses pointer fields so absent keys are distinguishable
// from zero values.
type predictRequest struct {
	Magnitude *float64 `json:"magnitude"`
	Depth     *float64 `json:"depth"`
	CDI       *float64 `json:"cdi"`
	MMI       *float64 `json:"mmi"`
	Sig       *float64 `json:"sig"`
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	if predictor == nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	var body predictRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	fields := map[string]*float64{
		"magnitude": body.Magnitude, "depth": body.Depth,
		"cdi": body.CDI, "mmi": body.MMI, "sig": body.Sig,
	}
	for name, value := range fields {
		if value == nil {
			http.Error(w, `{"error":"missing field: `+name+`"}`, http.StatusBadRequest)
			return
		}
	}

	req := ml.FeatureRequest{
		Magnitude: *body.Magnitude,
		Depth:     *body.Depth,
		CDI:       *body.CDI,
		MMI:       *body.MMI,
		Sig:       *body.Sig,
	}
	prediction, err := predictor.Predict(req)
	if err != nil {
		// All load and configuration failures collapse into one generic
		// internal error; the detail goes to the log only.
		zap.S().Errorw("prediction failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	recordPrediction(req, prediction)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prediction)
}

// recordPrediction persists and broadcasts a served prediction,
// best-effort on both counts.
func recordPrediction(req ml.FeatureRequest, p *ml.Prediction) {
	if err := savePrediction(db.PredictionRecord{
		Magnitude:   req.Magnitude,
		Depth:       req.Depth,
		CDI:         req.CDI,
		MMI:         req.MMI,
		Sig:         req.Sig,
		Probability: p.Probability,
		Risk:        p.RiskCategory,
	}); err != nil {
		zap.S().Warnw("failed to persist prediction", "error", err)
	}
	if feed != nil {
		feed.Publish(monitoring.PredictionEvent{
			Magnitude:   req.Magnitude,
			Depth:       req.Depth,
			CDI:         req.CDI,
			MMI:         req.MMI,
			Sig:         req.Sig,
			Probability: p.Probability,
			Risk:        p.RiskCategory,
			Timestamp:   time.Now().UTC(),
		})
	}
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if artifactSource == nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	artifact, err := artifactSource.Get()
	if err != nil {
		zap.S().Errorw("artifact unavailable", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"feature_names": artifact.FeatureNames,
		"window_hours":  artifact.WindowHours,
		"trained_at":    artifact.TrainedAt,
		"metrics":       artifact.Metrics,
	})
}

func handleModelReload(w http.ResponseWriter, r *http.Request) {
	if artifactSource == nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if err := artifactSource.Reload(); err != nil {
		zap.S().Errorw("artifact reload failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "reloaded"})
}

func handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	records, err := db.RecentPredictions(limit)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": records})
}

func handlePredictionFeed(w http.ResponseWriter, r *http.Request) {
	if feed == nil {
		http.Error(w, `{"error":"feed not available"}`, http.StatusServiceUnavailable)
		return
	}
	feed.ServeWS(w, r)
}
