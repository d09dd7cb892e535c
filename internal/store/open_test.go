package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-archive/tessera/internal/config"
)

func TestOpen(t *testing.T) {
	t.Run("sqlite file persists across opens", func(t *testing.T) {
		cfg := config.CacheConfig{
			Driver:        config.CacheSQLite,
			SQLitePath:    filepath.Join(t.TempDir(), "cache.db"),
			CredentialKey: "token",
			HistoryLimit:  intPtr(5),
		}
		c, err := Open(cfg)
		require.NoError(t, err)
		require.NoError(t, c.Set("doc", "persisted"))
		require.NoError(t, c.Close())

		c, err = Open(cfg)
		require.NoError(t, err)
		defer c.Close()
		v, ok, err := c.Get("doc")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "persisted", v)
		assert.Implements(t, (*Historian)(nil), c)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := Open(config.CacheConfig{Driver: config.CacheRedis, RedisAddress: mr.Addr()})
		require.NoError(t, err)
		defer c.Close()
		_, isHistorian := c.(Historian)
		assert.False(t, isHistorian)
	})

	t.Run("browser unavailable natively", func(t *testing.T) {
		_, err := Open(config.CacheConfig{Driver: config.CacheBrowser})
		assert.Error(t, err)
	})

	t.Run("memory", func(t *testing.T) {
		c, err := Open(config.CacheConfig{Driver: config.CacheMemory})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, c)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(config.CacheConfig{Driver: "etcd"})
		assert.Error(t, err)
	})
}

func intPtr(n int) *int { return &n }

func TestOpen_HistoryLimit(t *testing.T) {
	write := func(t *testing.T, limit *int) int {
		t.Helper()
		c, err := Open(config.CacheConfig{
			Driver:        config.CacheSQLite,
			SQLitePath:    filepath.Join(t.TempDir(), "cache.db"),
			CredentialKey: "token",
			HistoryLimit:  limit,
		})
		require.NoError(t, err)
		defer c.Close()
		for i := range 25 {
			require.NoError(t, c.Set("doc", fmt.Sprintf("v%d", i)))
		}
		versions, err := c.(Historian).ListVersions("doc")
		require.NoError(t, err)
		return len(versions)
	}

	t.Run("unset uses default", func(t *testing.T) {
		assert.Equal(t, config.DefaultHistoryLimit, write(t, nil))
	})
	t.Run("zero keeps every version", func(t *testing.T) {
		assert.Equal(t, 25, write(t, intPtr(0)))
	})
	t.Run("explicit limit", func(t *testing.T) {
		assert.Equal(t, 4, write(t, intPtr(4)))
	})
}
