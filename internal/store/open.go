package store

import (
	"fmt"

	"github.com/tessera-archive/tessera/internal/config"
)

// Open builds the cache selected by cfg.Driver. The credential key is
// always private: it keeps no history and is never exported.
func Open(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Driver {
	case config.CacheSQLite, "":
		limit := config.DefaultHistoryLimit
		if cfg.HistoryLimit != nil {
			limit = *cfg.HistoryLimit
		}
		return NewSQLiteStoreWithOptions(SQLiteOptions{
			DSN:          cfg.SQLitePath,
			HistoryLimit: limit,
			Private:      []string{cfg.CredentialKey},
		})
	case config.CacheRedis:
		return NewRedisStore(RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case config.CacheBrowser:
		return NewBrowserStore()
	case config.CacheMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store: unknown cache driver %q", cfg.Driver)
	}
}
