package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRedisLockerWithoutClientAlwaysAcquires(t *testing.T) {
	locker := NewRedisLocker(nil, "", 0)
	require.Equal(t, "lock", locker.prefix)
	require.Equal(t, 30*time.Second, locker.ttl)

	release, err := locker.Acquire(context.Background(), "incentives:period-1")
	require.NoError(t, err)
	require.NotNil(t, release)
	release()

	var nilLocker *RedisLocker
	release, err = nilLocker.Acquire(context.Background(), "any")
	require.NoError(t, err)
	release()
}
