package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker()

	require.NoError(t, r.Revoke(ctx, "a", time.Now().Add(time.Minute)))

	revoked, err := r.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "b")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevoker_ForgetsExpired(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker()
	now := time.Now()
	r.now = func() time.Time { return now }

	require.NoError(t, r.Revoke(ctx, "a", now.Add(time.Second)))
	require.NoError(t, r.Revoke(ctx, "past", now.Add(-time.Second)))
	assert.NotContains(t, r.revoked, "past")

	r.now = func() time.Time { return now.Add(time.Minute) }
	revoked, err := r.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "b", now.Add(time.Hour)))
	assert.NotContains(t, r.revoked, "a")
}

// recordingRedis implements the two commands RedisRevoker issues.
type recordingRedis struct {
	redis.UniversalClient
	keys      map[string]time.Duration
	existsErr error
}

func (r *recordingRedis) Set(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.StatusCmd {
	r.keys[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (r *recordingRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if r.existsErr != nil {
		return redis.NewIntResult(0, r.existsErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := r.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisRevoker(t *testing.T) {
	ctx := context.Background()
	rdb := &recordingRedis{keys: map[string]time.Duration{}}
	r := NewRedisRevoker(rdb)
	now := time.Now()
	r.now = func() time.Time { return now }

	require.NoError(t, r.Revoke(ctx, "abc", now.Add(90*time.Second)))
	assert.Equal(t, map[string]time.Duration{"revoked:abc": 90 * time.Second}, rdb.keys)

	revoked, err := r.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevoker_SkipsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	rdb := &recordingRedis{keys: map[string]time.Duration{}}
	r := NewRedisRevoker(rdb)
	now := time.Now()
	r.now = func() time.Time { return now }

	require.NoError(t, r.Revoke(ctx, "past", now.Add(-time.Second)))
	require.NoError(t, r.Revoke(ctx, "now", now))
	assert.Empty(t, rdb.keys)
}

func TestRedisRevoker_ExistsError(t *testing.T) {
	rdb := &recordingRedis{keys: map[string]time.Duration{}, existsErr: errors.New("connection refused")}

	revoked, err := NewRedisRevoker(rdb).IsRevoked(context.Background(), "abc")
	assert.EqualError(t, err, "connection refused")
	assert.False(t, revoked)
}
