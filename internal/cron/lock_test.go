package cron

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) CompareAndExpire(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	if v, ok := m.data[key]; !ok || v != value {
		return false, nil
	}
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	if v, ok := m.data[key]; !ok || v != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "cron-a")
	store := newMemoryStore()
	first, err := NewRedisLock(store, "sf:lock:cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "sf:lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, store.data["sf:lock:cron"], "cron-a:")

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(context.Background()))
	assert.Contains(t, store.data, "sf:lock:cron", "non-owner must not release")

	require.NoError(t, first.Release(context.Background()))
	assert.NotContains(t, store.data, "sf:lock:cron")
}

func TestRedisLockRefreshDetectsTakeover(t *testing.T) {
	store := newMemoryStore()
	lock, err := NewRedisLock(store, "sf:lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "refresh without acquire")

	ok, err = lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	store.ttls["sf:lock:cron"] = time.Second

	ok, err = lock.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, store.ttls["sf:lock:cron"])

	// The key expired and another instance took it.
	store.data["sf:lock:cron"] = "cron-b:other"
	ok, err = lock.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(context.Background()))
	assert.Equal(t, "cron-b:other", store.data["sf:lock:cron"])
}

func TestNewRedisLockValidation(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Second)
	assert.Error(t, err)
	_, err = NewRedisLock(newMemoryStore(), "", time.Second)
	assert.Error(t, err)
}
