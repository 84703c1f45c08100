package etl

import (
	"context"
	"time"

	"github.com/ignite/nba-analytics/internal/pkg/logger"
)

// ProcessedStore persists transformed tables locally and returns the file
// path written.
type ProcessedStore interface {
	WriteProcessed(table string, records []Record, at time.Time) (string, error)
}

// WarehouseSink bulk-loads a table with replace semantics (full overwrite).
type WarehouseSink interface {
	BulkLoad(ctx context.Context, table string, records []Record) error
}

// Archiver uploads a persisted local file to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, localPath string) error
}

// LoadResult reports what the loader persisted and which optional targets
// failed. Warehouse and archive failures are recorded here, not raised:
// local persistence is the durability floor and is never invalidated by a
// downstream sink failure.
type LoadResult struct {
	LocalFiles      []string `json:"local_files"`
	WarehouseTables []string `json:"warehouse_tables"`
	RecordsLoaded   int      `json:"records_loaded"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Loader persists a validated record set: local CSV first, then the
// warehouse sink and S3 archive when configured.
type Loader struct {
	store    ProcessedStore
	sink     WarehouseSink // nil when the warehouse is disabled
	archiver Archiver      // nil when archival is disabled
	now      func() time.Time
}

// NewLoader creates a loader. sink and archiver may be nil.
func NewLoader(store ProcessedStore, sink WarehouseSink, archiver Archiver) *Loader {
	return &Loader{store: store, sink: sink, archiver: archiver, now: time.Now}
}

// Load persists all tables. A local persistence failure is fatal and returns
// a LoadError; warehouse and archive failures are collected as warnings on
// the result.
func (l *Loader) Load(ctx context.Context, rs *RecordSet) (*LoadResult, error) {
	result := &LoadResult{}
	at := l.now()

	for _, table := range rs.TableNames() {
		records := rs.Tables[table]

		path, err := l.store.WriteProcessed(table, records, at)
		if err != nil {
			return nil, &LoadError{Target: "local", Table: table, Err: err}
		}
		result.LocalFiles = append(result.LocalFiles, path)
		result.RecordsLoaded += len(records)
		logger.Info("persisted processed table", "table", table, "path", path, "rows", len(records))

		if l.sink != nil {
			if err := l.sink.BulkLoad(ctx, table, records); err != nil {
				warn := (&LoadError{Target: "warehouse", Table: table, Err: err}).Error()
				result.Warnings = append(result.Warnings, warn)
				logger.Error("warehouse load failed", "table", table, "error", err.Error())
			} else {
				result.WarehouseTables = append(result.WarehouseTables, table)
				logger.Info("warehouse load complete", "table", table, "rows", len(records))
			}
		}

		if l.archiver != nil {
			if err := l.archiver.Archive(ctx, path); err != nil {
				result.Warnings = append(result.Warnings, "archive failed for "+path+": "+err.Error())
				logger.Warn("archive failed", "path", path, "error", err.Error())
			}
		}
	}

	return result, nil
}
