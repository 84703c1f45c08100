package etl

// Table names produced by the extractor.
const (
	TablePlayers       = "players"
	TableAdvancedStats = "advanced_stats"
)

// DerivedColumn is a computed column added during transform. Compute must be
// a pure, total function of the record it receives: a zero or null
// denominator yields the default value, never NaN or a panic.
type DerivedColumn struct {
	Name    string
	Compute func(Record) float64
}

// TableRules declares, per table, which columns the transformer and quality
// gate act on.
type TableRules struct {
	// PrimaryKey is the identifier column used for validity flagging and
	// duplicate detection.
	PrimaryKey string
	// TextColumns get whitespace trimmed.
	TextColumns []string
	// IdentifierDefaults maps identifier columns to the sentinel used when
	// the value is missing. Only identifier columns get a default; missing
	// statistical values stay null so they are not silently corrupted.
	IdentifierDefaults map[string]interface{}
	// NumericColumns are the statistical columns: coerced to float64
	// (failures become null) and then IQR-capped. Identifier columns are
	// deliberately excluded — clamping an ID would corrupt it.
	NumericColumns []string
	// Derived columns are appended after capping.
	Derived []DerivedColumn
}

// DefaultRules returns the rule set for the tables the pipeline extracts.
func DefaultRules() map[string]TableRules {
	return map[string]TableRules{
		TablePlayers: {
			PrimaryKey:  "player_id",
			TextColumns: []string{"player_name", "team_name"},
			IdentifierDefaults: map[string]interface{}{
				"team_id":   float64(0),
				"is_active": false,
			},
		},
		TableAdvancedStats: {
			PrimaryKey:  "player_id",
			TextColumns: []string{"player_name", "team_name"},
			IdentifierDefaults: map[string]interface{}{
				"team_id": float64(0),
			},
			NumericColumns: []string{
				"gp", "min", "off_rating", "def_rating", "net_rating",
				"ast_pct", "reb_pct", "usg_pct", "ts_pct", "efg_pct", "pie",
			},
			Derived: []DerivedColumn{
				{Name: "games_played", Compute: copyOf("gp")},
				{Name: "minutes_per_game", Compute: copyOf("min")},
				{Name: "player_efficiency_rating", Compute: per48Efficiency},
			},
		},
	}
}

// copyOf mirrors an existing numeric column under a friendlier name; a
// missing or non-numeric source yields 0.
func copyOf(col string) func(Record) float64 {
	return func(r Record) float64 {
		v, ok := asFloat(r[col])
		if !ok {
			return 0
		}
		return v
	}
}

// per48Efficiency is a weighted box-score efficiency normalized to 48
// minutes: (pts + 0.8*reb + ast + 1.5*stl + 1.5*blk - tov) / min * 48.
// Missing inputs contribute 0; a zero, negative, or missing minutes value
// yields 0 so the column is total over any input.
func per48Efficiency(r Record) float64 {
	num := floatOrZero(r, "pts") +
		0.8*floatOrZero(r, "reb") +
		floatOrZero(r, "ast") +
		1.5*floatOrZero(r, "stl") +
		1.5*floatOrZero(r, "blk") -
		floatOrZero(r, "tov")

	min, ok := asFloat(r["min"])
	if !ok || min <= 0 {
		return 0
	}
	return num / min * 48
}

func floatOrZero(r Record, col string) float64 {
	v, ok := asFloat(r[col])
	if !ok {
		return 0
	}
	return v
}
