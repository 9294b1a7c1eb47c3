package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryAt(now *time.Time) *Memory {
	m := NewMemory()
	m.now = func() time.Time { return *now }
	return m
}

func TestMemorySetGet(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	m := newMemoryAt(&now)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	_, ok, err = m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	m := newMemoryAt(&now)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(61 * time.Second)
	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry should miss")
}

func TestMemoryZeroTTLIsNoop(t *testing.T) {
	now := time.Now()
	m := newMemoryAt(&now)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryGetCopiesValue(t *testing.T) {
	now := time.Now()
	m := newMemoryAt(&now)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("abc"), time.Minute))

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	got[0] = 'z'

	again, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again, "callers must not mutate cached bytes")
}

func TestMemoryDelete(t *testing.T) {
	now := time.Now()
	m := newMemoryAt(&now)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, m.Delete(ctx, "a", "nope"))

	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemoryDeleteByPrefix(t *testing.T) {
	now := time.Now()
	m := newMemoryAt(&now)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "schedule:user-1:7", []byte("a"), time.Minute))
	require.NoError(t, m.Set(ctx, "schedule:user-1:14", []byte("b"), time.Minute))
	require.NoError(t, m.Set(ctx, "schedule:user-2:7", []byte("c"), time.Minute))

	require.NoError(t, m.DeleteByPrefix(ctx, "schedule:user-1:"))

	_, ok, _ := m.Get(ctx, "schedule:user-1:7")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "schedule:user-1:14")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "schedule:user-2:7")
	assert.True(t, ok)
}
