package checkout

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/backend-salon/internal/pricing"
)

func newRedisStore(t *testing.T) (RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return RedisStore{Client: client}, mr
}

func sampleSession(id string) *Session {
	return &Session{
		ID:        id,
		TenantID:  "tenant-1",
		BranchID:  "branch-1",
		Items:     []pricing.LineItem{},
		Discounts: []pricing.AppliedDiscount{},
		Payments:  []pricing.PaymentEntry{},
		TipAmount: decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	sess := sampleSession("s-1")
	require.NoError(t, store.Put(ctx, sess, 30*time.Minute))
	require.Equal(t, int64(1), sess.Version)

	loaded, ok, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tenant-1", loaded.TenantID)
	require.Equal(t, int64(1), loaded.Version)

	require.True(t, mr.Exists("checkout:session:s-1"))
	ttl := mr.TTL("checkout:session:s-1")
	require.Greater(t, ttl, 29*time.Minute)
}

func TestRedisStoreGetAbsent(t *testing.T) {
	store, _ := newRedisStore(t)

	_, ok, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStorePutRefreshesTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	sess := sampleSession("s-ttl")
	require.NoError(t, store.Put(ctx, sess, 30*time.Minute))

	mr.FastForward(20 * time.Minute)

	loaded, ok, err := store.Get(ctx, "s-ttl")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Put(ctx, &loaded, 30*time.Minute))
	require.Greater(t, mr.TTL("checkout:session:s-ttl"), 29*time.Minute)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	sess := sampleSession("s-exp")
	require.NoError(t, store.Put(ctx, sess, time.Minute))

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "s-exp")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreVersionConflict(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	sess := sampleSession("s-race")
	require.NoError(t, store.Put(ctx, sess, time.Minute))

	// two readers load version 1
	first, ok, err := store.Get(ctx, "s-race")
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := store.Get(ctx, "s-race")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Put(ctx, &first, time.Minute))

	err = store.Put(ctx, &second, time.Minute)
	require.ErrorIs(t, err, ErrVersionConflict)
	// the loser's snapshot keeps its read version so a reload can retry
	require.Equal(t, int64(1), second.Version)
}

func TestRedisStoreCreateRace(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	first := sampleSession("s-dup")
	second := sampleSession("s-dup")

	require.NoError(t, store.Put(ctx, first, time.Minute))
	require.ErrorIs(t, store.Put(ctx, second, time.Minute), ErrVersionConflict)
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	sess := sampleSession("s-del")
	require.NoError(t, store.Put(ctx, sess, time.Minute))
	require.NoError(t, store.Delete(ctx, "s-del"))

	_, ok, err := store.Get(ctx, "s-del")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Delete(ctx, "s-del"))
}
