package scraper

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/precoterapia/precoterapia/internal/model"
)

// csvHeader is the raw scrape output contract; the ingest stage detects
// these columns by name.
var csvHeader = []string{"nome", "preco", "cidade", "uf", "cidade_slug", "url", "fonte"}

// Writer appends scraped listings to a CSV file incrementally, so an
// interrupted run keeps what it already collected. Safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewWriter opens (or creates) the scrape output file at path, appending to
// existing content. The header row is written only for a fresh file.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		w.Flush()
	}

	return &Writer{file: f, writer: w}, nil
}

// Write appends one listing row and flushes it, so rows survive interrupts.
func (w *Writer) Write(source model.Source, l Listing) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	row := []string{
		AnonymizeName(l.Name),
		l.RawPrice,
		l.City,
		l.State,
		l.CitySlug,
		l.ProfileURL,
		string(source),
	}
	if err := w.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write listing: %w", err)
	}

	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}
