package store

import (
	"context"
	"testing"

	"github.com/EasterCompany/pulse-service/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	s, err := NewRedis(context.Background(), &config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func backends(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemory(),
		"redis":  rs,
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "a:1", []byte(`{"v":1}`)))
			require.NoError(t, s.Set(ctx, "a:2", []byte(`{"v":2}`)))
			require.NoError(t, s.Set(ctx, "b:1", []byte(`{"v":3}`)))

			got, err := s.Get(ctx, "a:1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":1}`, string(got))

			keys, err := s.Keys(ctx, "a:")
			require.NoError(t, err)
			assert.Equal(t, []string{"a:1", "a:2"}, keys)

			n, err := s.Clear(ctx, "a:")
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			_, err = s.Get(ctx, "a:2")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.Get(ctx, "b:1")
			assert.NoError(t, err)

			require.NoError(t, s.Delete(ctx, "b:1"))
			_, err = s.Get(ctx, "b:1")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, s.Ping(ctx))
		})
	}
}

func TestNewRedis_NotConfigured(t *testing.T) {
	s, err := NewRedis(context.Background(), &config.RedisConfig{})
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestNewRedis_Unreachable(t *testing.T) {
	_, err := NewRedis(context.Background(), &config.RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not connect to redis")
}

func TestRedisStore_KeysArePrefixed(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, s.Set(context.Background(), "workspace:default:bento", []byte("{}")))

	assert.True(t, mr.Exists("test:workspace:default:bento"))

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer other.Close()
	require.NoError(t, other.Set(context.Background(), "unrelated", "x", 0).Err())

	_, err := s.Clear(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, mr.Exists("unrelated"))
}
