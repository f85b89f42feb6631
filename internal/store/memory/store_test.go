package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-checkout/internal/store"
)

var _ store.Store = (*Store)(nil)

func TestStore_RoundTripAndRemove(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)

	buf := []byte("value")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "value", string(got), "stored bytes are copied")
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Remove(ctx, "k"))
	assert.Equal(t, 0, s.Len())
}
