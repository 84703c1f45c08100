package etl

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/nba-analytics/internal/watermark"
)

const testSeason = "2023-24"

func twelvePlayers() []map[string]interface{} {
	rows := make([]map[string]interface{}, 12)
	for i := range rows {
		rows[i] = playerRow(float64(i+1), fmt.Sprintf("Player %d", i+1))
	}
	return rows
}

func twelveAdvanced() []map[string]interface{} {
	rows := make([]map[string]interface{}, 12)
	for i := range rows {
		rows[i] = advancedRow(float64(i+1), float64(28+i))
	}
	return rows
}

func newTestExtractor(p *fakeProvider, store *memRawStore, marks watermark.Store) *Extractor {
	e := NewExtractor(p, store, marks, 7*24*time.Hour, true)
	e.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestExtractFullWhenNoWatermark(t *testing.T) {
	provider := &fakeProvider{players: twelvePlayers(), advanced: twelveAdvanced()}
	store := newMemRawStore()
	marks := newMemMarkStore()
	e := newTestExtractor(provider, store, marks)

	rs, err := e.Extract(context.Background(), testSeason, true)
	require.NoError(t, err)

	assert.Equal(t, 24, rs.TotalRows())
	assert.Equal(t, 1, provider.playersCalls)
	assert.Equal(t, 1, provider.advancedCall)

	// Raw tables persisted
	persisted, err := store.ReadRaw(testSeason, TablePlayers)
	require.NoError(t, err)
	assert.Len(t, persisted, 12)

	// Fresh watermark written with timestamp and row count
	mark, err := marks.Read(context.Background(), testSeason)
	require.NoError(t, err)
	require.NotNil(t, mark)
	assert.Equal(t, testSeason, mark.Season)
	assert.Equal(t, 24, mark.RecordsExtracted)
	assert.True(t, mark.LastExtractedAt.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
}

func TestExtractShortCircuitsOnFreshWatermark(t *testing.T) {
	provider := &fakeProvider{players: twelvePlayers(), advanced: twelveAdvanced()}
	store := newMemRawStore()
	marks := newMemMarkStore()
	e := newTestExtractor(provider, store, marks)

	// First run does the full extraction
	_, err := e.Extract(context.Background(), testSeason, true)
	require.NoError(t, err)
	require.Equal(t, 2, provider.totalCalls())

	// Second run with a fresh watermark issues zero provider calls
	rs, err := e.Extract(context.Background(), testSeason, true)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.totalCalls(), "no new provider calls expected")
	assert.Equal(t, 24, rs.TotalRows())
}

func TestExtractFullWhenWatermarkStale(t *testing.T) {
	provider := &fakeProvider{players: twelvePlayers(), advanced: twelveAdvanced()}
	store := newMemRawStore()
	marks := newMemMarkStore()
	e := newTestExtractor(provider, store, marks)

	stale := watermark.Watermark{
		Season:           testSeason,
		LastExtractedAt:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), // well past lookback
		RecordsExtracted: 24,
	}
	require.NoError(t, marks.Write(context.Background(), testSeason, stale))

	_, err := e.Extract(context.Background(), testSeason, true)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.totalCalls())

	// Watermark refreshed
	mark, err := marks.Read(context.Background(), testSeason)
	require.NoError(t, err)
	assert.True(t, mark.LastExtractedAt.After(stale.LastExtractedAt))
}

func TestExtractFullWhenIncrementalDisallowed(t *testing.T) {
	provider := &fakeProvider{players: twelvePlayers(), advanced: twelveAdvanced()}
	store := newMemRawStore()
	marks := newMemMarkStore()
	e := newTestExtractor(provider, store, marks)

	_, err := e.Extract(context.Background(), testSeason, true)
	require.NoError(t, err)

	// incrementalAllowed=false forces a refetch despite the fresh watermark
	_, err = e.Extract(context.Background(), testSeason, false)
	require.NoError(t, err)
	assert.Equal(t, 4, provider.totalCalls())
}

func TestExtractFallsBackWhenPersistedDataUnreadable(t *testing.T) {
	provider := &fakeProvider{players: twelvePlayers(), advanced: twelveAdvanced()}
	store := newMemRawStore()
	marks := newMemMarkStore()
	e := newTestExtractor(provider, store, marks)

	fresh := watermark.Watermark{
		Season:          testSeason,
		LastExtractedAt: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, marks.Write(context.Background(), testSeason, fresh))
	store.readErr = errors.New("disk gone")

	rs, err := e.Extract(context.Background(), testSeason, true)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.totalCalls())
	assert.Equal(t, 24, rs.TotalRows())
}

func TestExtractWrapsProviderFailure(t *testing.T) {
	provider := &fakeProvider{playersErr: errors.New("boom")}
	e := newTestExtractor(provider, newMemRawStore(), newMemMarkStore())

	_, err := e.Extract(context.Background(), testSeason, true)

	var extraction *ExtractionError
	require.True(t, errors.As(err, &extraction))
	assert.Equal(t, testSeason, extraction.Season)
	assert.Equal(t, TablePlayers, extraction.Table)
}

func TestExtractNoWatermarkWrittenOnFailure(t *testing.T) {
	provider := &fakeProvider{players: twelvePlayers(), advancedErr: errors.New("boom")}
	marks := newMemMarkStore()
	e := newTestExtractor(provider, newMemRawStore(), marks)

	_, err := e.Extract(context.Background(), testSeason, true)
	require.Error(t, err)

	mark, err := marks.Read(context.Background(), testSeason)
	require.NoError(t, err)
	assert.Nil(t, mark, "failed extraction must not advance the watermark")
}
