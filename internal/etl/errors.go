package etl

import "fmt"

// ExtractionError marks a run-fatal extraction failure: the retry budget was
// exhausted, or the provider response violated the expected record shape.
type ExtractionError struct {
	Season string
	Table  string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s/%s: %v", e.Season, e.Table, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// QualityReason identifies which quality threshold was violated.
type QualityReason string

const (
	InsufficientRows     QualityReason = "insufficient_rows"
	ExcessiveMissingData QualityReason = "excessive_missing_data"
)

// QualityViolation is a hard gate failure: the run aborts before load.
type QualityViolation struct {
	Table  string
	Reason QualityReason
	Detail string
}

func (e *QualityViolation) Error() string {
	return fmt.Sprintf("quality violation in %s (%s): %s", e.Table, e.Reason, e.Detail)
}

// LoadError marks a failure persisting validated data.
type LoadError struct {
	Target string // "local" or "warehouse"
	Table  string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load to %s failed for table %s: %v", e.Target, e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
