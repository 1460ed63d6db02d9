package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetNX(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.SetNX(ctx, "k", "1", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = mc.SetNX(ctx, "k", "2", 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "1", mc.data["k"].Value)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	require.Eventually(t, func() bool {
		ok, _ := mc.Exists(ctx, "k")
		return !ok
	}, time.Second, 5*time.Millisecond)

	ok, err := mc.SetNX(ctx, "k", "again", 0)
	require.NoError(t, err)
	require.True(t, ok, "expired key can be claimed again")
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	time.Sleep(time.Millisecond)
	_, _ = mc.Exists(ctx, "a")
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	okA, _ := mc.Exists(ctx, "a")
	okB, _ := mc.Exists(ctx, "b")
	require.True(t, okA)
	require.False(t, okB)
	require.Equal(t, 2, mc.Len())
}

type failingService struct{ *MemoryCache }

func (failingService) Exists(context.Context, ...string) (bool, error) {
	return false, errors.New("redis down")
}

func TestLayeredCachePromotesRemoteHit(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache(WithMemoryCleanup(0))
	require.NoError(t, remote.Set(ctx, "trade", "1", 20*time.Millisecond))

	lc := NewLayeredCache(remote, WithMemoryMaxSize(10))
	defer lc.Close()

	ok, err := lc.Exists(ctx, "trade")
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		ok, _ := remote.Exists(ctx, "trade")
		return !ok
	}, time.Second, 5*time.Millisecond)
	ok, err = lc.Exists(ctx, "trade")
	require.NoError(t, err)
	require.True(t, ok, "served from L1")
}

func TestLayeredCacheSetNXClaimsOnce(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	defer lc.Close()

	ok, err := lc.SetNX(ctx, "trade", "t1", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = NewLayeredCache(remote).SetNX(ctx, "trade", "t2", 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "t1", remote.data["trade"].Value)
}

func TestLayeredCacheSurfacesRemoteError(t *testing.T) {
	lc := NewLayeredCache(failingService{NewMemoryCache()})
	defer lc.Close()

	_, err := lc.Exists(context.Background(), "missing")
	require.Error(t, err)
}

func TestGenerateKey(t *testing.T) {
	require.Equal(t, "p:bybit:42", GenerateKey("p", "bybit", "", "42"))
	require.Equal(t, "x", GenerateKey("", "x"))
}
