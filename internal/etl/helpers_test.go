package etl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/nba-analytics/internal/watermark"
)

// fakeProvider serves canned rows and counts calls.
type fakeProvider struct {
	players      []map[string]interface{}
	advanced     []map[string]interface{}
	playersErr   error
	advancedErr  error
	playersCalls int
	advancedCall int
}

func (p *fakeProvider) PlayersList(ctx context.Context, season string) ([]map[string]interface{}, error) {
	p.playersCalls++
	if p.playersErr != nil {
		return nil, p.playersErr
	}
	return p.players, nil
}

func (p *fakeProvider) AdvancedStats(ctx context.Context, season string) ([]map[string]interface{}, error) {
	p.advancedCall++
	if p.advancedErr != nil {
		return nil, p.advancedErr
	}
	return p.advanced, nil
}

func (p *fakeProvider) totalCalls() int { return p.playersCalls + p.advancedCall }

// memRawStore keeps raw tables in memory, keyed by season/table.
type memRawStore struct {
	tables  map[string][]Record
	readErr error
}

func newMemRawStore() *memRawStore {
	return &memRawStore{tables: make(map[string][]Record)}
}

func (s *memRawStore) key(season, table string) string { return season + "/" + table }

func (s *memRawStore) WriteRaw(season, table string, records []Record) error {
	s.tables[s.key(season, table)] = records
	return nil
}

func (s *memRawStore) ReadRaw(season, table string) ([]Record, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	records, ok := s.tables[s.key(season, table)]
	if !ok {
		return nil, fmt.Errorf("no raw data for %s/%s", season, table)
	}
	return records, nil
}

// memMarkStore is an in-memory watermark.Store.
type memMarkStore struct {
	mu    sync.Mutex
	marks map[string]watermark.Watermark
}

func newMemMarkStore() *memMarkStore {
	return &memMarkStore{marks: make(map[string]watermark.Watermark)}
}

func (s *memMarkStore) Read(ctx context.Context, season string) (*watermark.Watermark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.marks[season]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *memMarkStore) Write(ctx context.Context, season string, w watermark.Watermark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[season] = w
	return nil
}

// memProcessedStore records WriteProcessed calls.
type memProcessedStore struct {
	tables   map[string][]Record
	writeErr error
}

func newMemProcessedStore() *memProcessedStore {
	return &memProcessedStore{tables: make(map[string][]Record)}
}

func (s *memProcessedStore) WriteProcessed(table string, records []Record, at time.Time) (string, error) {
	if s.writeErr != nil {
		return "", s.writeErr
	}
	s.tables[table] = records
	return "mem://" + table, nil
}

// fakeSink counts bulk loads and optionally fails.
type fakeSink struct {
	loads   map[string]int
	loadErr error
}

func newFakeSink() *fakeSink { return &fakeSink{loads: make(map[string]int)} }

func (s *fakeSink) BulkLoad(ctx context.Context, table string, records []Record) error {
	if s.loadErr != nil {
		return s.loadErr
	}
	s.loads[table] = len(records)
	return nil
}

// playerRow builds a players-table record.
func playerRow(id interface{}, name string) map[string]interface{} {
	return map[string]interface{}{
		"player_id":   id,
		"player_name": name,
		"team_id":     float64(1610612743),
		"team_name":   "Denver Nuggets",
		"season":      "2023-24",
		"is_active":   true,
	}
}

// advancedRow builds an advanced_stats-table record with the given minutes.
func advancedRow(id float64, min interface{}) map[string]interface{} {
	return map[string]interface{}{
		"player_id":   id,
		"player_name": fmt.Sprintf("Player %d", int(id)),
		"team_id":     float64(1610612743),
		"team_name":   "DEN",
		"gp":          float64(70),
		"min":         min,
		"off_rating":  float64(110),
		"def_rating":  float64(108),
		"net_rating":  float64(2),
		"ast_pct":     0.15,
		"reb_pct":     0.1,
		"usg_pct":     0.2,
		"ts_pct":      0.57,
		"efg_pct":     0.53,
		"pie":         0.1,
		"season":      "2023-24",
	}
}
