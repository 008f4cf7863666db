package wheel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPrizeCacheLoad(t *testing.T) {
	ctx := context.Background()
	cache := NewPrizeCache(time.Hour)

	calls := 0
	loader := func(context.Context) ([]*WheelPrize, error) {
		calls++
		return prizesWith(0.5, 0.5), nil
	}

	prizes, err := cache.Load(ctx, loader)
	require.NoError(t, err)
	require.Len(t, prizes, 2)

	_, err = cache.Load(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	cache.Invalidate()
	_, err = cache.Load(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestPrizeCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache := NewPrizeCache(time.Millisecond)

	calls := 0
	loader := func(context.Context) ([]*WheelPrize, error) {
		calls++
		return nil, nil
	}

	prizes, err := cache.Load(ctx, loader)
	require.NoError(t, err)
	require.Empty(t, prizes)

	time.Sleep(5 * time.Millisecond)
	_, err = cache.Load(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestPrizeCacheDropsLoadRacingInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewPrizeCache(time.Hour)

	calls := 0
	loader := func(context.Context) ([]*WheelPrize, error) {
		calls++
		if calls == 1 {
			cache.Invalidate()
		}
		return prizesWith(1), nil
	}

	_, err := cache.Load(ctx, loader)
	require.NoError(t, err)

	_, ok := cache.Get()
	require.False(t, ok, "a load that overlapped an invalidate must not be cached")

	_, err = cache.Load(ctx, loader)
	require.NoError(t, err)
	_, ok = cache.Get()
	require.True(t, ok)
	require.Equal(t, 2, calls)
}
