package catalog

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FetchRaw downloads a catalog CSV feed (USGS query endpoints return one)
// and stores it under the raw directory. Returns the number of bytes written.
func (s *Store) FetchRaw(url, name string) (int64, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(s.RawDir, 0o755); err != nil {
		return 0, err
	}
	path := filepath.Join(s.RawDir, name)
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	n, err := io.Copy(file, s.decode(resp.Body))
	if err != nil {
		return n, err
	}
	if err := file.Close(); err != nil {
		return n, err
	}
	zap.S().Infow("fetched catalog feed", "url", url, "file", name, "bytes", n)
	return n, nil
}
