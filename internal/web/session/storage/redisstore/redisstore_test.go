package redisstore

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := New(Config{Addr: mr.Addr(), KeyPrefix: "test:"})
	require.NoError(t, err)

	val, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Set("a", []byte("first"), time.Minute))
	require.NoError(t, s.Set("b", []byte("forever"), 0))

	assert.True(t, mr.Exists("test:a"))
	assert.Equal(t, time.Minute, mr.TTL("test:a"))

	val, err = s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), val)

	mr.FastForward(2 * time.Minute)

	val, err = s.Get("a")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Delete("b"))
	assert.False(t, mr.Exists("test:b"))

	require.NoError(t, mr.Set("other", "kept"))
	require.NoError(t, s.Set("c", []byte("x"), 0))
	require.NoError(t, s.Set("d", []byte("y"), 0))
	require.NoError(t, s.Reset())

	assert.False(t, mr.Exists("test:c"))
	assert.False(t, mr.Exists("test:d"))
	assert.True(t, mr.Exists("other"))

	require.NoError(t, s.Close())
}

func TestNewFromClientDefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)

	s := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set("a", []byte("v"), 0))
	assert.True(t, mr.Exists("session:a"))
}

func TestNewUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(Config{Addr: addr})
	require.Error(t, err)
}
