// Package watermark persists per-season extraction markers used to decide
// whether a season's raw data is fresh enough to skip refetching.
package watermark

import (
	"context"
	"time"
)

// Watermark records the last successful extraction for a season.
type Watermark struct {
	Season           string    `json:"season"`
	LastExtractedAt  time.Time `json:"last_extracted_at"`
	RecordsExtracted int       `json:"records_extracted"`
}

// Age returns how long ago the watermark was written, relative to now.
func (w Watermark) Age(now time.Time) time.Duration {
	return now.Sub(w.LastExtractedAt)
}

// Store reads and writes watermarks keyed by season. Read returns (nil, nil)
// when no watermark exists. Write must overwrite atomically: a reader never
// observes a partially written watermark.
type Store interface {
	Read(ctx context.Context, season string) (*Watermark, error)
	Write(ctx context.Context, season string, w Watermark) error
}
