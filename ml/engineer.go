package ml

import (
	"errors"
	"fmt"
	"math"
)

// Column layout the engineer expects in its input rows. The timestamp is
// carried as unix seconds in column 0 and dropped from the output.
const (
	colTimestamp = iota
	colMagnitude
	colDepth
	colCDI
	colMMI
	colSig
	rawColumns
)

// FeatureNames is the output column order of the feature engineer. The
// artifact records this order; the scaler and classifier are only valid
// against vectors built in it.
func FeatureNames() []string {
	return []string{
		"magnitude", "depth", "cdi", "mmi", "sig",
		"mag_mean", "depth_mean", "event_count",
	}
}

// RawFeatureNames is the serving-request subset of FeatureNames.
func RawFeatureNames() []string {
	return []string{"magnitude", "depth", "cdi", "mmi", "sig"}
}

// FeatureEngineer augments a time-ordered event stream with trailing-window
// aggregates: mean magnitude, mean depth, and event count over the span
// (t - WindowHours, t]. Stateless; Fit records nothing.
//
// Backfill fills residual NaN cells from the nearest subsequent valid row,
// matching the historical preprocessing of this dataset. That pass reads
// future values, so it is a deliberate, opt-out leakage trade-off; see
// DESIGN.md before changing the default.
type FeatureEngineer struct {
	WindowHours float64
	Backfill    bool
}

func NewFeatureEngineer(windowHours float64) *FeatureEngineer {
	return &FeatureEngineer{WindowHours: windowHours, Backfill: true}
}

func (fe *FeatureEngineer) Fit(rows [][]float64) error {
	return nil
}

func (fe *FeatureEngineer) Transform(rows [][]float64) ([][]float64, error) {
	if fe.WindowHours <= 0 {
		return nil, errors.New("window hours must be positive")
	}
	windowSecs := fe.WindowHours * 3600

	out := make([][]float64, len(rows))
	var window deque
	var magSum, depthSum float64
	var magCount, depthCount int

	prevTS := math.Inf(-1)
	for i, row := range rows {
		if len(row) != rawColumns {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), rawColumns)
		}
		ts := row[colTimestamp]
		if ts < prevTS {
			return nil, fmt.Errorf("row %d out of time order", i)
		}
		prevTS = ts

		window.push(windowEntry{ts: ts, mag: row[colMagnitude], depth: row[colDepth]})
		if !math.IsNaN(row[colMagnitude]) {
			magSum += row[colMagnitude]
			magCount++
		}
		if !math.IsNaN(row[colDepth]) {
			depthSum += row[colDepth]
			depthCount++
		}
		for window.len() > 0 && window.front().ts <= ts-windowSecs {
			old := window.pop()
			if !math.IsNaN(old.mag) {
				magSum -= old.mag
				magCount--
			}
			if !math.IsNaN(old.depth) {
				depthSum -= old.depth
				depthCount--
			}
		}

		magMean := math.NaN()
		if magCount > 0 {
			magMean = magSum / float64(magCount)
		}
		depthMean := math.NaN()
		if depthCount > 0 {
			depthMean = depthSum / float64(depthCount)
		}

		out[i] = []float64{
			row[colMagnitude], row[colDepth], row[colCDI], row[colMMI], row[colSig],
			magMean, depthMean, float64(window.len()),
		}
	}

	if fe.Backfill {
		backfill(out)
	}
	return out, nil
}

type windowEntry struct {
	ts    float64
	mag   float64
	depth float64
}

// deque is a ring-buffer FIFO of window entries.
type deque struct {
	buf   []windowEntry
	head  int
	count int
}

func (d *deque) len() int { return d.count }

func (d *deque) push(e windowEntry) {
	if d.count == len(d.buf) {
		d.grow()
	}
	d.buf[(d.head+d.count)%len(d.buf)] = e
	d.count++
}

func (d *deque) front() windowEntry {
	return d.buf[d.head]
}

func (d *deque) pop() windowEntry {
	e := d.buf[d.head]
	d.head = (d.head + 1) % len(d.buf)
	d.count--
	return e
}

func (d *deque) grow() {
	size := len(d.buf) * 2
	if size == 0 {
		size = 8
	}
	buf := make([]windowEntry, size)
	for i := 0; i < d.count; i++ {
		buf[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf = buf
	d.head = 0
}

// backfill replaces NaN cells with the nearest subsequent valid value in
// the same column. Trailing NaNs stay NaN.
func backfill(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	width := len(rows[0])
	for col := 0; col < width; col++ {
		next := math.NaN()
		for i := len(rows) - 1; i >= 0; i-- {
			if math.IsNaN(rows[i][col]) {
				rows[i][col] = next
			} else {
				next = rows[i][col]
			}
		}
	}
}
