package etl

import (
	"fmt"

	"github.com/ignite/nba-analytics/internal/config"
	"github.com/ignite/nba-analytics/internal/pkg/logger"
)

// QualityReport summarizes one table's data quality. It is produced fresh
// each run and lives only inside the run result.
type QualityReport struct {
	Table             string  `json:"table"`
	RowCount          int     `json:"row_count"`
	MissingFraction   float64 `json:"missing_fraction"`
	DuplicateKeyCount int     `json:"duplicate_key_count"`
}

// QualityGate validates a transformed record set against configured
// thresholds. It is a hard gate: any violation aborts the run before load.
type QualityGate struct {
	cfg   config.QualityConfig
	rules map[string]TableRules
}

// NewQualityGate creates a gate with the given thresholds and table rules.
func NewQualityGate(cfg config.QualityConfig, rules map[string]TableRules) *QualityGate {
	return &QualityGate{cfg: cfg, rules: rules}
}

// Validate computes a report per table and checks thresholds. A table with
// exactly MinRows rows passes; one below fails. A missing-cell fraction of
// exactly MaxMissingFraction passes; above fails. Duplicate identifiers are
// reported and logged but never fail the gate, since per-game tables
// legitimately repeat identifiers.
func (g *QualityGate) Validate(rs *RecordSet) ([]QualityReport, error) {
	var reports []QualityReport

	for _, table := range rs.TableNames() {
		records := rs.Tables[table]
		report := QualityReport{
			Table:    table,
			RowCount: len(records),
		}

		report.MissingFraction = missingFraction(records)
		if key := g.rules[table].PrimaryKey; key != "" {
			report.DuplicateKeyCount = duplicateKeyCount(records, key)
		}
		reports = append(reports, report)

		if report.RowCount < g.cfg.MinRows {
			return reports, &QualityViolation{
				Table:  table,
				Reason: InsufficientRows,
				Detail: fmt.Sprintf("%d rows, minimum %d", report.RowCount, g.cfg.MinRows),
			}
		}
		if report.MissingFraction > g.cfg.MaxMissingFraction {
			return reports, &QualityViolation{
				Table:  table,
				Reason: ExcessiveMissingData,
				Detail: fmt.Sprintf("missing fraction %.4f, maximum %.4f", report.MissingFraction, g.cfg.MaxMissingFraction),
			}
		}
		if report.DuplicateKeyCount > 0 {
			logger.Warn("duplicate identifiers found",
				"table", table,
				"duplicates", report.DuplicateKeyCount)
		}

		logger.Info("quality check passed",
			"table", table,
			"rows", report.RowCount,
			"missing_fraction", report.MissingFraction)
	}

	return reports, nil
}

// missingFraction is the share of null cells over all cells, where the cell
// grid is rows x the union of column names. An absent key counts as null.
func missingFraction(records []Record) float64 {
	columns := ColumnNames(records)
	total := len(records) * len(columns)
	if total == 0 {
		return 0
	}

	missing := 0
	for _, rec := range records {
		for _, col := range columns {
			if v, ok := rec[col]; !ok || v == nil {
				missing++
			}
		}
	}
	return float64(missing) / float64(total)
}

// duplicateKeyCount counts rows whose key value was already seen; a key
// appearing n times contributes n-1.
func duplicateKeyCount(records []Record, key string) int {
	seen := make(map[interface{}]bool)
	dupes := 0
	for _, rec := range records {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		if seen[v] {
			dupes++
		}
		seen[v] = true
	}
	return dupes
}
