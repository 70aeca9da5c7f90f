package cache

import (
	"context"
	"testing"

	"blogicum/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	for _, addr := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		c, err := Connect(ctx, addr)
		require.NoError(t, err, addr)
		require.NoError(t, c.Set(ctx, "k", "v", 0).Err())
		assert.True(t, mr.Exists("k"))
		require.NoError(t, c.Close())
	}

	_, err := Connect(ctx, "redis://%zz")
	assert.ErrorContains(t, err, "invalid REDIS_URL")
	_, err = Connect(ctx, " ")
	assert.Error(t, err)
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c, err := Connect(context.Background(), addr)
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "ping redis")
}

func TestErrorCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	opts, err := Options(mr.Addr())
	require.NoError(t, err)
	c := NewClient(opts)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	misses := testutil.ToFloat64(observability.RedisErrorRate.WithLabelValues("get"))
	assert.Error(t, c.Get(ctx, "absent").Err())
	assert.Equal(t, misses, testutil.ToFloat64(observability.RedisErrorRate.WithLabelValues("get")), "a miss is not an error")

	require.NoError(t, c.Set(ctx, "n", "text", 0).Err())
	before := testutil.ToFloat64(observability.RedisErrorRate.WithLabelValues("incr"))
	assert.Error(t, c.Incr(ctx, "n").Err())
	assert.Equal(t, before+1, testutil.ToFloat64(observability.RedisErrorRate.WithLabelValues("incr")))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session:revoked:abc", RevokedSessionKey("abc"))
	assert.Equal(t, "rl:login:ip:1.2.3.4", RateLimitKey("login", "ip:1.2.3.4"))
}
