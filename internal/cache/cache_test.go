package cache

import (
	"testing"
	"time"

	"claimcheck/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenDatabase("file::memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func TestKey(t *testing.T) {
	a := Key("exa", "The tower is  324 meters tall")
	b := Key("exa", "the tower is 324 meters tall")
	c := Key("serper", "the tower is 324 meters tall")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "claimcheck:v1:exa:")
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_, found := c.Get("missing")
	assert.False(t, found)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	val, found := c.Get("k")
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, found = c.Get("k")
	assert.False(t, found)

	require.NoError(t, c.Set("a", []byte("1"), 0))
	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set("k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestStoreCache_SetGetUpsert(t *testing.T) {
	db := setupTestDB(t)
	store := NewStoreCache(db, "exa", time.Hour)

	require.NoError(t, store.Set("key-1", []byte(`[{"url":"https://a.example","text":"a"}]`), 0))
	require.NoError(t, store.Set("key-1", []byte(`[{"url":"https://b.example","text":"b"}]`), 0))

	val, found := store.Get("key-1")
	require.True(t, found)
	assert.JSONEq(t, `[{"url":"https://b.example","text":"b"}]`, string(val))

	var count int64
	require.NoError(t, db.Model(&models.EvidenceCacheEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStoreCache_ExpiredEntriesAreMisses(t *testing.T) {
	db := setupTestDB(t)
	store := NewStoreCache(db, "exa", time.Hour)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set("key-1", []byte(`[]`), time.Minute))
	require.NoError(t, store.Set("key-2", []byte(`[]`), 2*time.Hour))

	now = now.Add(time.Hour)

	_, found := store.Get("key-1")
	assert.False(t, found)
	_, found = store.Get("key-2")
	assert.True(t, found)
}

func TestStoreCache_PurgeExpired(t *testing.T) {
	db := setupTestDB(t)
	store := NewStoreCache(db, "exa", time.Hour)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set("old", []byte(`[]`), time.Minute))
	require.NoError(t, store.Set("fresh", []byte(`[]`), 2*time.Hour))

	now = now.Add(time.Hour)

	removed, err := store.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestStoreCache_ClearIsPerProvider(t *testing.T) {
	db := setupTestDB(t)
	exa := NewStoreCache(db, "exa", time.Hour)
	serper := NewStoreCache(db, "serper", time.Hour)

	require.NoError(t, exa.Set("a", []byte(`[]`), 0))
	require.NoError(t, serper.Set("b", []byte(`[]`), 0))

	require.NoError(t, exa.Clear())

	_, found := exa.Get("a")
	assert.False(t, found)
	_, found = serper.Get("b")
	assert.True(t, found)
}

func TestLayeredCache_PromotesStoreHits(t *testing.T) {
	memory := NewMemoryCache(time.Minute, time.Minute)
	store := NewStoreCache(setupTestDB(t), "exa", time.Hour)
	layered := NewLayeredCache(memory, store)

	require.NoError(t, store.Set("k", []byte(`["x"]`), 0))

	_, found := memory.Get("k")
	assert.False(t, found)

	val, found := layered.Get("k")
	require.True(t, found)
	assert.JSONEq(t, `["x"]`, string(val))

	promoted, found := memory.Get("k")
	assert.True(t, found)
	assert.JSONEq(t, `["x"]`, string(promoted))
}

func TestLayeredCache_SetDeleteClear(t *testing.T) {
	memory := NewMemoryCache(time.Minute, time.Minute)
	store := NewStoreCache(setupTestDB(t), "exa", time.Hour)
	layered := NewLayeredCache(memory, store)

	require.NoError(t, layered.Set("k", []byte(`[]`), 0))
	_, inMemory := memory.Get("k")
	_, inStore := store.Get("k")
	assert.True(t, inMemory)
	assert.True(t, inStore)

	require.NoError(t, layered.Delete("k"))
	_, found := layered.Get("k")
	assert.False(t, found)

	require.NoError(t, layered.Set("k2", []byte(`[]`), 0))
	require.NoError(t, layered.Clear())
	_, found = layered.Get("k2")
	assert.False(t, found)
}
