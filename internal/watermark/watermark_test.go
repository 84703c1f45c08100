package watermark

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	// No watermark yet
	w, err := store.Read(ctx, "2023-24")
	require.NoError(t, err)
	assert.Nil(t, w)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Write(ctx, "2023-24", Watermark{
		Season:           "2023-24",
		LastExtractedAt:  at,
		RecordsExtracted: 540,
	}))

	w, err = store.Read(ctx, "2023-24")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "2023-24", w.Season)
	assert.True(t, w.LastExtractedAt.Equal(at))
	assert.Equal(t, 540, w.RecordsExtracted)

	// Other seasons remain independent
	other, err := store.Read(ctx, "2022-23")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestFileStoreOverwrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	first := Watermark{Season: "2023-24", LastExtractedAt: time.Now().UTC(), RecordsExtracted: 10}
	require.NoError(t, store.Write(ctx, "2023-24", first))

	second := first
	second.RecordsExtracted = 20
	require.NoError(t, store.Write(ctx, "2023-24", second))

	w, err := store.Read(ctx, "2023-24")
	require.NoError(t, err)
	assert.Equal(t, 20, w.RecordsExtracted)

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "last_update_2023_24.json", entries[0].Name())
	assert.Equal(t, filepath.Ext(entries[0].Name()), ".json")
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "last_update_2023_24.json"), []byte("{not json"), 0644))

	_, err = store.Read(context.Background(), "2023-24")
	assert.Error(t, err)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)

	ctx := context.Background()

	w, err := store.Read(ctx, "2023-24")
	require.NoError(t, err)
	assert.Nil(t, w)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Write(ctx, "2023-24", Watermark{
		Season:           "2023-24",
		LastExtractedAt:  at,
		RecordsExtracted: 540,
	}))

	w, err = store.Read(ctx, "2023-24")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, 540, w.RecordsExtracted)
	assert.True(t, w.LastExtractedAt.Equal(at))

	// Keys are season-scoped
	assert.True(t, mr.Exists("watermark:2023-24"))
	assert.False(t, mr.Exists("watermark:2022-23"))
}

func TestWatermarkAge(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	w := Watermark{LastExtractedAt: now.Add(-72 * time.Hour)}
	assert.Equal(t, 72*time.Hour, w.Age(now))
}
