package catalog

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ValidationRule rejects catalog events that would poison a training set.
type ValidationRule interface {
	Name() string
	Apply(e *SeismicEvent) error
}

type magnitudeRangeRule struct{}

func (magnitudeRangeRule) Name() string { return "magnitude_range" }

func (magnitudeRangeRule) Apply(e *SeismicEvent) error {
	if isMissing(e.Magnitude) {
		return fmt.Errorf("magnitude missing")
	}
	if e.Magnitude < -1 || e.Magnitude > 10 {
		return fmt.Errorf("magnitude %.2f out of range", e.Magnitude)
	}
	return nil
}

type depthRangeRule struct{}

func (depthRangeRule) Name() string { return "depth_range" }

func (depthRangeRule) Apply(e *SeismicEvent) error {
	if isMissing(e.Depth) {
		return fmt.Errorf("depth missing")
	}
	// Deepest recorded hypocenters are short of 800km.
	if e.Depth < -10 || e.Depth > 800 {
		return fmt.Errorf("depth %.1f out of range", e.Depth)
	}
	return nil
}

type timestampRule struct{}

func (timestampRule) Name() string { return "timestamp_valid" }

func (timestampRule) Apply(e *SeismicEvent) error {
	if e.Time.IsZero() {
		return fmt.Errorf("timestamp missing")
	}
	if e.Time.After(time.Now().Add(24 * time.Hour)) {
		return fmt.Errorf("timestamp in the future")
	}
	return nil
}

type significanceRule struct{}

func (significanceRule) Name() string { return "significance_valid" }

func (significanceRule) Apply(e *SeismicEvent) error {
	if isMissing(e.Sig) {
		return fmt.Errorf("sig missing")
	}
	if e.Sig < 0 {
		return fmt.Errorf("sig %.1f negative", e.Sig)
	}
	return nil
}

// DefaultRules is the validation set Prepare applies.
func DefaultRules() []ValidationRule {
	return []ValidationRule{
		magnitudeRangeRule{},
		depthRangeRule{},
		timestampRule{},
		significanceRule{},
	}
}

// PrepareStats summarizes one raw-to-processed conversion.
type PrepareStats struct {
	Total   int            `json:"total"`
	Kept    int            `json:"kept"`
	Dropped int            `json:"dropped"`
	Issues  map[string]int `json:"issues"`
}

// Prepare converts a raw catalog download into a processed training dataset:
// selects the model columns, derives the binary label from the alert level,
// drops rows failing validation, sorts ascending by time, and writes the
// processed CSV under datasetName.
func (s *Store) Prepare(rawName, datasetName, labelColumn string) (*PrepareStats, error) {
	header, records, err := s.LoadRaw(rawName)
	if err != nil {
		return nil, err
	}

	cols, err := rawColumnIndexes(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawName, err)
	}

	stats := &PrepareStats{Issues: make(map[string]int)}
	rules := DefaultRules()
	events := make([]SeismicEvent, 0, len(records))

	for _, record := range records {
		stats.Total++
		e, err := eventFromRecord(record, cols)
		if err != nil {
			stats.Dropped++
			stats.Issues["parse"]++
			continue
		}
		rejected := false
		for _, rule := range rules {
			if err := rule.Apply(&e); err != nil {
				stats.Issues[rule.Name()]++
				rejected = true
				break
			}
		}
		if rejected {
			stats.Dropped++
			continue
		}
		e.Label = AlertLabel(e.Alert)
		events = append(events, e)
	}
	stats.Kept = len(events)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})

	if err := s.SaveProcessed(datasetName, DatasetFromEvents(events, labelColumn)); err != nil {
		return nil, err
	}
	zap.S().Infow("prepared dataset",
		"raw", rawName, "dataset", datasetName,
		"total", stats.Total, "kept", stats.Kept, "dropped", stats.Dropped)
	return stats, nil
}

type rawColumns struct {
	time, mag, depth, cdi, mmi, sig, alert int
}

func rawColumnIndexes(header []string) (rawColumns, error) {
	cols := rawColumns{time: -1, mag: -1, depth: -1, cdi: -1, mmi: -1, sig: -1, alert: -1}
	for i, name := range header {
		switch name {
		case "time", "timestamp":
			cols.time = i
		case "mag", "magnitude":
			cols.mag = i
		case "depth":
			cols.depth = i
		case "cdi":
			cols.cdi = i
		case "mmi":
			cols.mmi = i
		case "sig":
			cols.sig = i
		case "alert":
			cols.alert = i
		}
	}
	for name, idx := range map[string]int{
		"time": cols.time, "magnitude": cols.mag, "depth": cols.depth,
		"cdi": cols.cdi, "mmi": cols.mmi, "sig": cols.sig,
	} {
		if idx == -1 {
			return cols, fmt.Errorf("%s: %w", name, ErrColumnMissing)
		}
	}
	return cols, nil
}

func eventFromRecord(record []string, cols rawColumns) (SeismicEvent, error) {
	need := []int{cols.time, cols.mag, cols.depth, cols.cdi, cols.mmi, cols.sig}
	for _, idx := range need {
		if idx >= len(record) {
			return SeismicEvent{}, fmt.Errorf("short record")
		}
	}
	ts, err := ParseTimestamp(record[cols.time])
	if err != nil {
		return SeismicEvent{}, err
	}
	e := SeismicEvent{
		Time:      ts,
		Magnitude: parseCell(record[cols.mag]),
		Depth:     parseCell(record[cols.depth]),
		CDI:       parseCell(record[cols.cdi]),
		MMI:       parseCell(record[cols.mmi]),
		Sig:       parseCell(record[cols.sig]),
	}
	if cols.alert != -1 && cols.alert < len(record) {
		e.Alert = record[cols.alert]
	}
	return e, nil
}
