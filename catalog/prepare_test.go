package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const rawFixture = `time,latitude,longitude,depth,mag,magType,cdi,mmi,alert,sig
2026-03-01T02:00:00Z,38.2,142.3,29.0,7.1,mww,8.0,7.2,red,900
2026-03-01T01:00:00Z,36.1,140.0,40.0,5.2,mb,3.1,4.0,green,410
2026-03-01T03:00:00Z,35.0,139.0,900.0,5.0,mb,2.0,3.0,green,380
2026-03-01T04:00:00Z,34.0,138.0,15.0,4.8,mb,2.5,3.5,,350
bad-time,34.0,138.0,15.0,4.8,mb,2.5,3.5,,350
`

func writeRawFixture(t *testing.T, store *Store) {
	t.Helper()
	if err := os.MkdirAll(store.RawDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.RawDir, "feed.csv"), []byte(rawFixture), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPrepare(t *testing.T) {
	store := newTestStore(t)
	writeRawFixture(t, store)

	stats, err := store.Prepare("feed.csv", "quakes.csv", "alert_binary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 5 {
		t.Fatalf("expected 5 raw rows, got %d", stats.Total)
	}
	// one row fails depth validation, one fails timestamp parsing
	if stats.Kept != 3 || stats.Dropped != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Issues["depth_range"] != 1 {
		t.Fatalf("expected one depth_range issue, got %d", stats.Issues["depth_range"])
	}

	ds, err := store.LoadProcessed("quakes.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 processed rows, got %d", ds.Len())
	}

	// rows are sorted ascending by time
	for i := 1; i < ds.Len(); i++ {
		if ds.Times[i].Before(ds.Times[i-1]) {
			t.Fatal("processed rows not time-ordered")
		}
	}

	// labels derive from the alert level: red is positive, green and
	// unreported are negative
	labels, _ := ds.Column("alert_binary")
	mags, _ := ds.Column("magnitude")
	for i := range labels {
		want := 0.0
		if mags[i] == 7.1 {
			want = 1.0
		}
		if labels[i] != want {
			t.Fatalf("row %d: expected label %f, got %f", i, want, labels[i])
		}
	}
}

func TestPrepareMissingRaw(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Prepare("absent.csv", "quakes.csv", "alert_binary"); !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestPrepareMissingColumns(t *testing.T) {
	store := newTestStore(t)
	if err := os.MkdirAll(store.RawDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.RawDir, "feed.csv"),
		[]byte("time,mag\n2026-03-01T01:00:00Z,5.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Prepare("feed.csv", "quakes.csv", "alert_binary"); !errors.Is(err, ErrColumnMissing) {
		t.Fatalf("expected ErrColumnMissing, got %v", err)
	}
}

func TestAlertLabel(t *testing.T) {
	cases := map[string]float64{
		"green": 0, "": 0, "yellow": 1, "orange": 1, "red": 1,
	}
	for alert, want := range cases {
		if got := AlertLabel(alert); got != want {
			t.Fatalf("AlertLabel(%q) = %f, want %f", alert, got, want)
		}
	}
}
