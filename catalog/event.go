package catalog

import (
	"math"
	"time"
)

// SeismicEvent is one row of an earthquake catalog. CDI and MMI are
// frequently unreported and carried as NaN.
type SeismicEvent struct {
	Time      time.Time
	Magnitude float64
	Depth     float64
	CDI       float64
	MMI       float64
	Sig       float64
	Alert     string
	Label     float64
}

// AlertLabel maps a PAGER alert level to the binary training label.
// Anything above green counts as the positive class.
func AlertLabel(alert string) float64 {
	switch alert {
	case "yellow", "orange", "red":
		return 1
	default:
		return 0
	}
}

// Dataset is a processed, column-named table of float64 values with the
// timestamp column parsed out separately. Rows are ordered ascending by time.
type Dataset struct {
	Columns []string
	Times   []time.Time
	Rows    [][]float64
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

func (d *Dataset) ColumnIndex(name string) (int, bool) {
	for i, col := range d.Columns {
		if col == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns a copy of the named column's values.
func (d *Dataset) Column(name string) ([]float64, bool) {
	idx, ok := d.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	values := make([]float64, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[idx]
	}
	return values, true
}

// DatasetFromEvents builds a processed dataset with the standard schema
// [magnitude, depth, cdi, mmi, sig, labelColumn]. Events must already be
// sorted ascending by time.
func DatasetFromEvents(events []SeismicEvent, labelColumn string) *Dataset {
	ds := &Dataset{
		Columns: []string{"magnitude", "depth", "cdi", "mmi", "sig", labelColumn},
		Times:   make([]time.Time, len(events)),
		Rows:    make([][]float64, len(events)),
	}
	for i, e := range events {
		ds.Times[i] = e.Time
		ds.Rows[i] = []float64{e.Magnitude, e.Depth, e.CDI, e.MMI, e.Sig, e.Label}
	}
	return ds
}

func isMissing(v float64) bool {
	return math.IsNaN(v)
}
