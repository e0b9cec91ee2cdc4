package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrColumnMissing   = errors.New("column missing")
)

const datasetCacheSize = 16

// Store reads and writes catalog CSV files. Raw feed downloads live under
// RawDir, processed training datasets under ProcessedDir. Parsed processed
// datasets are cached so repeated training runs skip re-parsing.
type Store struct {
	RawDir       string
	ProcessedDir string
	Encoding     string

	cache *lru.Cache[string, *Dataset]
}

func NewStore(rawDir, processedDir string) (*Store, error) {
	cache, err := lru.New[string, *Dataset](datasetCacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{RawDir: rawDir, ProcessedDir: processedDir, cache: cache}, nil
}

// LoadProcessed loads a processed dataset by filename. Returns
// ErrDatasetNotFound if there is no such file.
func (s *Store) LoadProcessed(name string) (*Dataset, error) {
	if ds, ok := s.cache.Get(name); ok {
		return ds, nil
	}

	path := filepath.Join(s.ProcessedDir, name)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrDatasetNotFound)
		}
		return nil, err
	}
	defer file.Close()

	ds, err := parseDataset(s.decode(file))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	s.cache.Add(name, ds)
	return ds, nil
}

// SaveProcessed writes a processed dataset CSV and invalidates any
// cached copy under the same name.
func (s *Store) SaveProcessed(name string, ds *Dataset) error {
	if err := os.MkdirAll(s.ProcessedDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.ProcessedDir, name)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := append([]string{"timestamp"}, ds.Columns...)
	if err := writer.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for i, row := range ds.Rows {
		record[0] = ds.Times[i].UTC().Format(time.RFC3339)
		for j, v := range row {
			record[j+1] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	s.cache.Remove(name)
	return file.Close()
}

// LoadRaw reads a raw catalog CSV, returning the header and records.
func (s *Store) LoadRaw(name string) ([]string, [][]string, error) {
	path := filepath.Join(s.RawDir, name)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%s: %w", name, ErrDatasetNotFound)
		}
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(s.decode(file))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file", name)
	}
	return rows[0], rows[1:], nil
}

// Invalidate drops a cached processed dataset.
func (s *Store) Invalidate(name string) {
	s.cache.Remove(name)
}

// decode wraps a reader with a charset decoder when the store is
// configured for a non-UTF-8 source encoding.
func (s *Store) decode(r io.Reader) io.Reader {
	switch strings.ToLower(s.Encoding) {
	case "latin-1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case "windows-1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder())
	default:
		return r
	}
}

func parseDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}

	header := rows[0]
	tsIdx := -1
	for i, col := range header {
		if col == "timestamp" {
			tsIdx = i
			break
		}
	}
	if tsIdx == -1 {
		return nil, fmt.Errorf("timestamp: %w", ErrColumnMissing)
	}

	columns := make([]string, 0, len(header)-1)
	for i, col := range header {
		if i != tsIdx {
			columns = append(columns, col)
		}
	}

	ds := &Dataset{
		Columns: columns,
		Times:   make([]time.Time, 0, len(rows)-1),
		Rows:    make([][]float64, 0, len(rows)-1),
	}
	for _, record := range rows[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("row has %d cells, want %d", len(record), len(header))
		}
		ts, err := ParseTimestamp(record[tsIdx])
		if err != nil {
			return nil, err
		}
		values := make([]float64, 0, len(columns))
		for i, cell := range record {
			if i == tsIdx {
				continue
			}
			values = append(values, parseCell(cell))
		}
		ds.Times = append(ds.Times, ts)
		ds.Rows = append(ds.Rows, values)
	}
	return ds, nil
}

// ParseTimestamp accepts RFC3339 or epoch milliseconds.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
