package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-checkout/internal/store"
)

func setupTestRedis(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "", 24*time.Hour), mr
}

// ---------------------------------------------------------------------------
// Get / Set
// ---------------------------------------------------------------------------

func TestStore_SetThenGet(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sess-1", []byte(`{"current_step":"contact"}`)))

	got, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"current_step":"contact"}`, string(got))

	assert.True(t, mr.Exists("checkout:wizard:sess-1"))
	assert.Equal(t, 24*time.Hour, mr.TTL("checkout:wizard:sess-1"))
}

func TestStore_Get_Missing(t *testing.T) {
	s, _ := setupTestRedis(t)

	_, err := s.Get(context.Background(), "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Get_Expired(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sess-1", []byte("x")))
	mr.FastForward(25 * time.Hour)

	_, err := s.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := New(client, "wz:", 0)
	require.NoError(t, s.Set(context.Background(), "a", []byte("1")))
	assert.True(t, mr.Exists("wz:a"))
}

// ---------------------------------------------------------------------------
// Remove
// ---------------------------------------------------------------------------

func TestStore_Remove(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sess-1", []byte("x")))
	require.NoError(t, s.Remove(ctx, "sess-1"))
	assert.False(t, mr.Exists("checkout:wizard:sess-1"))

	// Removing a missing key is not an error.
	assert.NoError(t, s.Remove(ctx, "sess-1"))
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestStore_ServerDown(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Close()

	ctx := context.Background()
	_, err := s.Get(ctx, "sess-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, s.Set(ctx, "sess-1", []byte("x")))
	assert.Error(t, s.Remove(ctx, "sess-1"))
}
