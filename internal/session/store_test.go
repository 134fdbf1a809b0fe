package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to a local Redis. Tests that call this helper need a
// running Redis on REDIS_ADDR or localhost:6379.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	s, err := NewStore(addr, "test-server")
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := uuid.NewString()
	require.NoError(t, s.Create(ctx, id))
	t.Cleanup(func() { _ = s.Delete(context.Background(), id) })

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, string(StatusIdle), got.Status)
	assert.Equal(t, "test-server", got.Server)
	assert.Equal(t, 0, got.Filtered)

	require.NoError(t, s.UpdateStatus(ctx, id, StatusAwaiting, 2))
	got, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(StatusAwaiting), got.Status)
	assert.Equal(t, 2, got.Filtered)

	ttl, err := s.client.TTL(ctx, SessionPrefix+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, SessionTTL)

	require.NoError(t, s.Delete(ctx, id))
	got, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}
