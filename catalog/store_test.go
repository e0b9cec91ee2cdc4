package catalog

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "raw"), filepath.Join(dir, "processed"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func sampleEvents() []SeismicEvent {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []SeismicEvent{
		{Time: start, Magnitude: 5.1, Depth: 10, CDI: 3, MMI: 4, Sig: 400, Label: 0},
		{Time: start.Add(time.Hour), Magnitude: 6.4, Depth: 25, CDI: math.NaN(), MMI: 6, Sig: 700, Label: 1},
	}
}

func TestStoreProcessedRoundTrip(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveProcessed("quakes.csv", DatasetFromEvents(sampleEvents(), "alert_binary")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ds, err := store.LoadProcessed("quakes.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", ds.Len())
	}
	if _, ok := ds.ColumnIndex("alert_binary"); !ok {
		t.Fatal("expected label column in schema")
	}

	mags, ok := ds.Column("magnitude")
	if !ok {
		t.Fatal("expected magnitude column")
	}
	if mags[0] != 5.1 || mags[1] != 6.4 {
		t.Fatalf("unexpected magnitudes: %v", mags)
	}

	// empty cells round-trip as NaN
	cdis, _ := ds.Column("cdi")
	if !math.IsNaN(cdis[1]) {
		t.Fatalf("expected NaN cdi, got %f", cdis[1])
	}

	if !ds.Times[0].Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp: %v", ds.Times[0])
	}
}

func TestStoreLoadProcessedMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.LoadProcessed("absent.csv"); !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestStoreCachesParsedDatasets(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveProcessed("quakes.csv", DatasetFromEvents(sampleEvents(), "alert_binary")); err != nil {
		t.Fatal(err)
	}

	first, err := store.LoadProcessed("quakes.csv")
	if err != nil {
		t.Fatal(err)
	}

	// deleting the file does not affect the cached copy
	if err := os.Remove(filepath.Join(store.ProcessedDir, "quakes.csv")); err != nil {
		t.Fatal(err)
	}
	second, err := store.LoadProcessed("quakes.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached dataset instance")
	}

	// invalidation forces a re-read, which now fails
	store.Invalidate("quakes.csv")
	if _, err := store.LoadProcessed("quakes.csv"); !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound after invalidation, got %v", err)
	}
}

func TestStoreSaveProcessedInvalidatesCache(t *testing.T) {
	store := newTestStore(t)
	events := sampleEvents()
	if err := store.SaveProcessed("quakes.csv", DatasetFromEvents(events, "alert_binary")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadProcessed("quakes.csv"); err != nil {
		t.Fatal(err)
	}

	if err := store.SaveProcessed("quakes.csv", DatasetFromEvents(events[:1], "alert_binary")); err != nil {
		t.Fatal(err)
	}
	ds, err := store.LoadProcessed("quakes.csv")
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 {
		t.Fatalf("expected the rewritten dataset, got %d rows", ds.Len())
	}
}

func TestParseTimestampFormats(t *testing.T) {
	rfc, err := ParseTimestamp("2026-03-01T12:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rfc.Hour() != 12 {
		t.Fatalf("unexpected hour: %d", rfc.Hour())
	}

	epoch, err := ParseTimestamp("1767225600000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if epoch.Year() != 2026 {
		t.Fatalf("unexpected year: %d", epoch.Year())
	}

	if _, err := ParseTimestamp("not-a-time"); err == nil {
		t.Fatal("expected error for invalid timestamp")
	}
}
