// Package etl implements the extract-transform-load engine for NBA player
// statistics: watermark-driven extraction, data cleaning with outlier
// capping, a hard quality gate, and local/warehouse loading, sequenced by a
// pipeline orchestrator.
package etl

import (
	"sort"
)

// Record is one flat row: column name to scalar value. Values are float64,
// int64, string, bool, or nil (missing). Records are copied between stages,
// never mutated in place.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RecordSet is a named collection of tables for one season. The extractor
// produces a raw set; the transformer produces a new, cleaned set from it.
// Each stage owns its output exclusively and treats its input as read-only.
type RecordSet struct {
	Season string
	Tables map[string][]Record
}

// NewRecordSet creates an empty record set for a season.
func NewRecordSet(season string) *RecordSet {
	return &RecordSet{
		Season: season,
		Tables: make(map[string][]Record),
	}
}

// TableNames returns the table names in sorted order, for deterministic
// iteration.
func (rs *RecordSet) TableNames() []string {
	names := make([]string, 0, len(rs.Tables))
	for name := range rs.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalRows returns the row count summed over all tables.
func (rs *RecordSet) TotalRows() int {
	total := 0
	for _, records := range rs.Tables {
		total += len(records)
	}
	return total
}

// ColumnNames returns the sorted union of column names across records.
func ColumnNames(records []Record) []string {
	seen := make(map[string]bool)
	for _, rec := range records {
		for col := range rec {
			seen[col] = true
		}
	}
	names := make([]string, 0, len(seen))
	for col := range seen {
		names = append(names, col)
	}
	sort.Strings(names)
	return names
}

// asFloat converts a scalar value to float64. It returns ok=false for nil,
// non-numeric strings, and other non-coercible values.
func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		return parseFloat(x)
	default:
		return 0, false
	}
}
