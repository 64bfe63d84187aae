package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseindex/internal/model"
)

func TestMemory_PutAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory(time.Hour, 100)

	require.NoError(t, c.Put(ctx, "acme", "hash1", model.CacheEntry{JobID: "job-1", ChunksCreated: 3}))

	entry, ok, err := c.Get(ctx, "acme", "hash1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "job-1", entry.JobID)
	assert.Equal(t, 3, entry.ChunksCreated)
}

func TestMemory_GetMissReturnsFalse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory(time.Hour, 100)

	_, ok, err := c.Get(ctx, "acme", "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_TenantsAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory(time.Hour, 100)

	require.NoError(t, c.Put(ctx, "acme", "hash1", model.CacheEntry{JobID: "acme-job"}))

	_, ok, err := c.Get(ctx, "globex", "hash1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory(time.Hour, 100)
	fakeNow := time.Now()
	c.now = func() time.Time { return fakeNow }

	require.NoError(t, c.Put(ctx, "acme", "hash1", model.CacheEntry{JobID: "job-1"}))

	fakeNow = fakeNow.Add(2 * time.Hour)
	_, ok, err := c.Get(ctx, "acme", "hash1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_EvictsOldestWhenOverCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory(time.Hour, 5)
	base := time.Now()

	for i := 0; i < 8; i++ {
		i := i
		c.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, c.Put(ctx, "acme", string(rune('a'+i)), model.CacheEntry{JobID: "job"}))
	}

	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()
	assert.LessOrEqual(t, count, 5)

	// the earliest keys should have been evicted first
	_, ok, err := c.Get(ctx, "acme", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_Invalidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory(time.Hour, 100)

	require.NoError(t, c.Put(ctx, "acme", "hash1", model.CacheEntry{JobID: "job-1"}))
	require.NoError(t, c.Invalidate(ctx, "acme", "hash1"))

	_, ok, err := c.Get(ctx, "acme", "hash1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_LenReflectsEntryCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory(time.Hour, 100)

	require.NoError(t, c.Put(ctx, "acme", "hash1", model.CacheEntry{JobID: "job-1"}))
	require.NoError(t, c.Put(ctx, "acme", "hash2", model.CacheEntry{JobID: "job-2"}))

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHashContent_IsDeterministic(t *testing.T) {
	t.Parallel()
	a := HashContent([]byte("same content"))
	b := HashContent([]byte("same content"))
	c := HashContent([]byte("different content"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
