package store

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(RedisConfig{Address: mr.Addr(), Prefix: "tessera:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.Get("doc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("doc", `{"siteName":"x"}`))
	got, err := mr.Get("tessera:doc")
	require.NoError(t, err)
	assert.Equal(t, `{"siteName":"x"}`, got)

	v, ok, err := s.Get("doc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"siteName":"x"}`, v)

	require.NoError(t, s.Delete("doc"))
	assert.False(t, mr.Exists("tessera:doc"))
}

func TestNewRedisStore_EmptyAddress(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{})
	assert.ErrorIs(t, err, ErrEmptyAddress)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(RedisConfig{Address: addr})
	assert.Error(t, err)
}
