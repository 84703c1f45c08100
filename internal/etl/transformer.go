package etl

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/nba-analytics/internal/pkg/logger"
)

// ProcessedAtColumn is the timestamp column stamped on every transformed
// record.
const ProcessedAtColumn = "processed_at"

// ValidColumn is the boolean column marking records whose primary identifier
// is present and positive. Invalid records are flagged, never dropped, so the
// quality gate can account for them.
const ValidColumn = "is_valid"

// Transformer cleans and enriches a raw record set. Per table it trims text,
// imputes identifier columns, coerces numerics (failures become null), caps
// outliers with the IQR method, computes derived metrics, flags validity, and
// stamps a processing timestamp. The input set is never modified.
type Transformer struct {
	rules map[string]TableRules
	now   func() time.Time
}

// NewTransformer creates a transformer with the given per-table rules.
func NewTransformer(rules map[string]TableRules) *Transformer {
	return &Transformer{rules: rules, now: time.Now}
}

// Transform produces a new, cleaned record set. Tables without declared rules
// pass through with only the processing timestamp added.
func (t *Transformer) Transform(raw *RecordSet) *RecordSet {
	out := NewRecordSet(raw.Season)
	stamp := t.now().UTC().Format(time.RFC3339)

	for _, table := range raw.TableNames() {
		records := cloneRecords(raw.Tables[table])
		rules, ok := t.rules[table]
		if ok {
			t.applyRules(records, rules)
		}
		for _, rec := range records {
			rec[ProcessedAtColumn] = stamp
		}
		out.Tables[table] = records
		logger.Info("transformed table", "table", table, "rows", len(records))
	}
	return out
}

func (t *Transformer) applyRules(records []Record, rules TableRules) {
	// 1. Trim whitespace on text columns
	for _, rec := range records {
		for _, col := range rules.TextColumns {
			if s, ok := rec[col].(string); ok {
				rec[col] = strings.TrimSpace(s)
			}
		}
	}

	// 2. Impute identifier columns only
	for _, rec := range records {
		for col, sentinel := range rules.IdentifierDefaults {
			if v, ok := rec[col]; !ok || v == nil {
				rec[col] = sentinel
			}
		}
	}

	// 3. Coerce numeric columns; failures become null, never a panic
	for _, rec := range records {
		for _, col := range rules.NumericColumns {
			v, ok := rec[col]
			if !ok || v == nil {
				rec[col] = nil
				continue
			}
			f, ok := asFloat(v)
			if !ok {
				rec[col] = nil
				continue
			}
			rec[col] = f
		}
	}

	// 4. IQR outlier capping: clamp, never drop, so row count is preserved
	for _, col := range rules.NumericColumns {
		capOutliers(records, col)
	}

	// 5. Derived metrics
	for _, d := range rules.Derived {
		for _, rec := range records {
			rec[d.Name] = d.Compute(rec)
		}
	}

	// 6. Validity flag on the primary identifier
	if rules.PrimaryKey != "" {
		for _, rec := range records {
			id, ok := asFloat(rec[rules.PrimaryKey])
			rec[ValidColumn] = ok && id > 0
		}
	}
}

// capOutliers clamps a column's values to [Q1-1.5*IQR, Q3+1.5*IQR], with
// quartiles computed over the column's non-null values.
func capOutliers(records []Record, col string) {
	values := make([]float64, 0, len(records))
	for _, rec := range records {
		if f, ok := asFloat(rec[col]); ok {
			values = append(values, f)
		}
	}
	if len(values) == 0 {
		return
	}

	sort.Float64s(values)
	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	for _, rec := range records {
		f, ok := asFloat(rec[col])
		if !ok {
			continue
		}
		if f < lower {
			rec[col] = lower
		} else if f > upper {
			rec[col] = upper
		}
	}
}

// quantile computes the q-th quantile of sorted values with linear
// interpolation between adjacent ranks.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
