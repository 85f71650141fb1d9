package corpus

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/newa-nlp/newasearch/pkg/errors"
	"github.com/newa-nlp/newasearch/pkg/progress"
)

// DefaultIDColumn and DefaultContentColumn name the corpus CSV columns the
// tooling produces and expects.
const (
	DefaultIDColumn      = "filename"
	DefaultContentColumn = "content"
)

// CSVStore reads documents from a corpus CSV file with a header row. The
// file is re-opened per operation so the store holds no file handles between
// calls.
type CSVStore struct {
	path       string
	idCol      string
	contentCol string
	logger     *slog.Logger
}

// NewCSVStore validates that the file exists and that both named columns are
// present, then returns a store. Empty column names fall back to the
// defaults.
func NewCSVStore(path, idColumn, contentColumn string) (*CSVStore, error) {
	if idColumn == "" {
		idColumn = DefaultIDColumn
	}
	if contentColumn == "" {
		contentColumn = DefaultContentColumn
	}
	s := &CSVStore{
		path:       path,
		idCol:      idColumn,
		contentCol: contentColumn,
		logger:     slog.Default().With("component", "csv-store"),
	}
	f, header, err := s.open()
	if err != nil {
		return nil, err
	}
	f.Close()
	if _, ok := header[s.idCol]; !ok {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument,
			"column %q not found in %s, available columns: %v", s.idCol, path, columnNames(header))
	}
	if _, ok := header[s.contentCol]; !ok {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument,
			"column %q not found in %s, available columns: %v", s.contentCol, path, columnNames(header))
	}
	return s, nil
}

// open opens the CSV file and reads the header row, returning the open file,
// a column-name→index map, and a reader positioned at the first record.
func (s *CSVStore) open() (*os.File, map[string]int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, apperrors.Newf(apperrors.ErrNotFound, "corpus CSV not found: %s", s.path)
		}
		return nil, nil, fmt.Errorf("opening corpus CSV %s: %w", s.path, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	record, err := r.Read()
	if err != nil {
		f.Close()
		return nil, nil, apperrors.Newf(apperrors.ErrInvalidArgument, "reading header of %s: %v", s.path, err)
	}
	header := make(map[string]int, len(record))
	for i, name := range record {
		header[strings.TrimSpace(name)] = i
	}
	return f, header, nil
}

// ForEach streams documents in file order.
func (s *CSVStore) ForEach(ctx context.Context, fn func(Document) error) error {
	f, header, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	idIdx := header[s.idCol]
	contentIdx := header[s.contentCol]
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil { // skip header
		return apperrors.Newf(apperrors.ErrInvalidArgument, "reading header of %s: %v", s.path, err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			s.logger.Warn("skipping malformed corpus row", "path", s.path, "error", err)
			continue
		}
		if len(record) <= idIdx || len(record) <= contentIdx {
			s.logger.Warn("skipping short corpus row", "path", s.path, "fields", len(record))
			continue
		}
		doc := Document{ID: record[idIdx], Content: record[contentIdx]}
		if err := fn(doc); err != nil {
			if err == ErrStop {
				return nil
			}
			return err
		}
	}
}

// Content scans the file for docID and returns its content.
func (s *CSVStore) Content(ctx context.Context, docID string) (string, bool, error) {
	var content string
	found := false
	err := s.ForEach(ctx, func(doc Document) error {
		if doc.ID == docID {
			content = doc.Content
			found = true
			return ErrStop
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return content, found, nil
}

// Count returns the number of data rows.
func (s *CSVStore) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.ForEach(ctx, func(Document) error {
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func columnNames(header map[string]int) []string {
	names := make([]string, len(header))
	for name, i := range header {
		names[i] = name
	}
	return names
}

// CreateCSV collects every *.txt file in dir into a corpus CSV with
// filename and content columns. Files that fail to read are reported through
// the progress callback and skipped.
func CreateCSV(dir, outPath string, onProgress progress.Func) error {
	report := progress.OrDefault(onProgress)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return apperrors.Newf(apperrors.ErrNotFound, "corpus directory not found: %s", dir)
		}
		return fmt.Errorf("checking corpus directory %s: %w", dir, err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return fmt.Errorf("globbing %s: %w", dir, err)
	}
	if len(files) == 0 {
		return apperrors.Newf(apperrors.ErrInvalidArgument, "no .txt files found in directory: %s", dir)
	}

	if outDir := filepath.Dir(outPath); outDir != "." {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating corpus CSV %s: %w", outPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write([]string{DefaultIDColumn, DefaultContentColumn}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	total := len(files)
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			report(i+1, total, fmt.Sprintf("skipping %s: %v", path, err))
			continue
		}
		row := []string{filepath.Base(path), strings.TrimSpace(string(data))}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", path, err)
		}
		if (i+1)%1000 == 0 || i+1 == total {
			report(i+1, total, fmt.Sprintf("processed %d files", i+1))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing corpus CSV: %w", err)
	}
	return nil
}

// FileStat describes a single corpus file.
type FileStat struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// DirStats summarises the *.txt files under a corpus directory.
type DirStats struct {
	FileCount   int        `json:"file_count"`
	TotalSize   int64      `json:"total_size"`
	AverageSize float64    `json:"average_size"`
	Files       []FileStat `json:"files"`
}

// StatDir reports file count and sizes for the *.txt files in dir.
func StatDir(dir string) (*DirStats, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "corpus directory not found: %s", dir)
		}
		return nil, fmt.Errorf("checking corpus directory %s: %w", dir, err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", dir, err)
	}
	stats := &DirStats{Files: make([]FileStat, 0, len(files))}
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		stats.FileCount++
		stats.TotalSize += info.Size()
		stats.Files = append(stats.Files, FileStat{Name: filepath.Base(path), Size: info.Size()})
	}
	if stats.FileCount > 0 {
		stats.AverageSize = float64(stats.TotalSize) / float64(stats.FileCount)
	}
	return stats, nil
}
