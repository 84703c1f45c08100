// Package tablestore persists pipeline tables as CSV files: raw tables keyed
// by season, processed tables keyed by timestamp, with optional S3 archival.
package tablestore

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/nba-analytics/internal/config"
	"github.com/ignite/nba-analytics/internal/etl"
)

// Store writes and reads CSV table files under the configured directories.
type Store struct {
	rawDir       string
	processedDir string
}

// New creates a store, creating both directories if needed.
func New(cfg config.StorageConfig) (*Store, error) {
	for _, dir := range []string{cfg.RawDir, cfg.ProcessedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory %s: %w", dir, err)
		}
	}
	return &Store{rawDir: cfg.RawDir, processedDir: cfg.ProcessedDir}, nil
}

// WriteRaw persists a raw table as {table}_{YYYY_YY}.csv.
func (s *Store) WriteRaw(season, table string, records []etl.Record) error {
	name := fmt.Sprintf("%s_%s.csv", table, strings.ReplaceAll(season, "-", "_"))
	return writeCSV(filepath.Join(s.rawDir, name), records)
}

// ReadRaw reloads a previously persisted raw table.
func (s *Store) ReadRaw(season, table string) ([]etl.Record, error) {
	name := fmt.Sprintf("%s_%s.csv", table, strings.ReplaceAll(season, "-", "_"))
	return readCSV(filepath.Join(s.rawDir, name))
}

// WriteProcessed persists a transformed table as {table}_{timestamp}.csv and
// returns the path written.
func (s *Store) WriteProcessed(table string, records []etl.Record, at time.Time) (string, error) {
	name := fmt.Sprintf("%s_%s.csv", table, at.UTC().Format("20060102_150405"))
	path := filepath.Join(s.processedDir, name)
	if err := writeCSV(path, records); err != nil {
		return "", err
	}
	return path, nil
}

// writeCSV writes records with a header row of the sorted column union.
// Null cells are written as empty strings.
func writeCSV(path string, records []etl.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	columns := etl.ColumnNames(records)

	if err := w.Write(columns); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}

	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = formatValue(rec[col])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// readCSV reloads records, inferring scalar types the same way the raw data
// carried them: numbers become float64, true/false become bool, empty cells
// become nil, everything else stays a string.
func readCSV(path string) ([]etl.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	var records []etl.Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		rec := make(etl.Record, len(header))
		for i, col := range header {
			if i >= len(row) {
				rec[col] = nil
				continue
			}
			rec[col] = inferValue(row[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func inferValue(s string) interface{} {
	if s == "" {
		return nil
	}
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
