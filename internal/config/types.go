package config

import (
	"fmt"
	"time"

	"github.com/tessera-archive/tessera/internal/logger"
)

// SessionMode selects the init precedence of the document store.
type SessionMode string

const (
	// ModeAuthoring prefers the local cache so unsaved edits survive a reload.
	ModeAuthoring SessionMode = "authoring"
	// ModeVisitor always pulls the published document first.
	ModeVisitor SessionMode = "visitor"
)

// Config is the root configuration for both hosts.
type Config struct {
	Session SessionConfig `json:"session" yaml:"session"`
	Remote  RemoteConfig  `json:"remote"  yaml:"remote"`
	Cache   CacheConfig   `json:"cache"   yaml:"cache"`
	Log     logger.Config `json:"log"     yaml:"log"`
	Insight InsightConfig `json:"insight" yaml:"insight"`
}

// SessionConfig describes who is using this session.
type SessionConfig struct {
	Mode SessionMode `json:"mode" yaml:"mode" env:"TESSERA_MODE"`
}

// RemoteConfig locates the published document and image folder.
// Owner and Repo are fallbacks used until the document carries its own
// connection fields.
type RemoteConfig struct {
	Owner         string        `json:"owner"         yaml:"owner"          env:"TESSERA_OWNER"`
	Repo          string        `json:"repo"          yaml:"repo"           env:"TESSERA_REPO"`
	Branch        string        `json:"branch"        yaml:"branch"         env:"TESSERA_BRANCH"`
	DocumentPath  string        `json:"documentPath"  yaml:"document_path"  env:"TESSERA_DOCUMENT_PATH"`
	ImagePath     string        `json:"imagePath"     yaml:"image_path"     env:"TESSERA_IMAGE_PATH"`
	APIBaseURL    string        `json:"apiBaseUrl"    yaml:"api_base_url"   env:"TESSERA_API_BASE_URL"`
	RawBaseURL    string        `json:"rawBaseUrl"    yaml:"raw_base_url"   env:"TESSERA_RAW_BASE_URL"`
	CommitMessage string        `json:"commitMessage" yaml:"commit_message"`
	Timeout       time.Duration `json:"timeout"       yaml:"timeout"        env:"TESSERA_TIMEOUT"`
}

// CacheDriver names a local cache backend.
type CacheDriver string

const (
	CacheSQLite CacheDriver = "sqlite"
	CacheRedis  CacheDriver = "redis"
	// CacheBrowser is localStorage; only valid in the js/wasm build.
	CacheBrowser CacheDriver = "browser"
	// CacheMemory lives for the process only.
	CacheMemory CacheDriver = "memory"
)

// CacheConfig selects and configures the local cache.
type CacheConfig struct {
	Driver        CacheDriver `json:"driver"        yaml:"driver"         env:"TESSERA_CACHE_DRIVER"`
	SQLitePath    string      `json:"sqlitePath"    yaml:"sqlite_path"    env:"TESSERA_CACHE_PATH"`
	RedisAddress  string      `json:"redisAddress"  yaml:"redis_address"  env:"TESSERA_REDIS_ADDRESS"`
	RedisPassword string      `json:"redisPassword" yaml:"redis_password" env:"TESSERA_REDIS_PASSWORD"`
	RedisDB       int         `json:"redisDb"       yaml:"redis_db"       env:"TESSERA_REDIS_DB"`
	DocumentKey   string      `json:"documentKey"   yaml:"document_key"`
	CredentialKey string      `json:"credentialKey" yaml:"credential_key"`
	// HistoryLimit bounds retained document versions. Unset means
	// DefaultHistoryLimit; zero keeps every version.
	HistoryLimit *int `json:"historyLimit,omitempty" yaml:"history_limit"`
}

// InsightConfig configures the optional text enhancement service.
type InsightConfig struct {
	APIKey string `json:"apiKey" yaml:"api_key" env:"TESSERA_INSIGHT_API_KEY"`
	Model  string `json:"model"  yaml:"model"   env:"TESSERA_INSIGHT_MODEL"`
}

// Defaults observed in the published site.
const (
	DefaultBranch        = "main"
	DefaultDocumentPath  = "data/config.json"
	DefaultImagePath     = "images"
	DefaultAPIBaseURL    = "https://api.github.com"
	DefaultRawBaseURL    = "https://raw.githubusercontent.com"
	DefaultCommitMessage = "Sync: Global Configuration Update"
	DefaultTimeout       = 30 * time.Second
	DefaultDocumentKey   = "tessera_v2_config"
	DefaultCredentialKey = "tessera_secure_token"
	DefaultSQLitePath    = "tessera-cache.db"
	DefaultHistoryLimit  = 20
	DefaultInsightModel  = "gemini-3-flash-preview"
)

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	if c.Session.Mode == "" {
		c.Session.Mode = ModeAuthoring
	}

	r := &c.Remote
	if r.Branch == "" {
		r.Branch = DefaultBranch
	}
	if r.DocumentPath == "" {
		r.DocumentPath = DefaultDocumentPath
	}
	if r.ImagePath == "" {
		r.ImagePath = DefaultImagePath
	}
	if r.APIBaseURL == "" {
		r.APIBaseURL = DefaultAPIBaseURL
	}
	if r.RawBaseURL == "" {
		r.RawBaseURL = DefaultRawBaseURL
	}
	if r.CommitMessage == "" {
		r.CommitMessage = DefaultCommitMessage
	}
	if r.Timeout == 0 {
		r.Timeout = DefaultTimeout
	}

	k := &c.Cache
	if k.Driver == "" {
		k.Driver = CacheSQLite
	}
	if k.SQLitePath == "" {
		k.SQLitePath = DefaultSQLitePath
	}
	if k.DocumentKey == "" {
		k.DocumentKey = DefaultDocumentKey
	}
	if k.CredentialKey == "" {
		k.CredentialKey = DefaultCredentialKey
	}
	if k.HistoryLimit == nil {
		limit := DefaultHistoryLimit
		k.HistoryLimit = &limit
	}

	if c.Insight.Model == "" {
		c.Insight.Model = DefaultInsightModel
	}
	c.Log.SetDefaults()
}

// Validate reports configuration that can never work.
func (c *Config) Validate() error {
	switch c.Session.Mode {
	case ModeAuthoring, ModeVisitor:
	default:
		return fmt.Errorf("session.mode: unknown mode %q", c.Session.Mode)
	}
	switch c.Cache.Driver {
	case CacheSQLite, CacheBrowser, CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddress == "" {
			return fmt.Errorf("cache.redis_address: required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver: unknown driver %q", c.Cache.Driver)
	}
	if c.Cache.DocumentKey == c.Cache.CredentialKey {
		return fmt.Errorf("cache: document_key and credential_key must differ")
	}
	return nil
}

// LoadFile is the CLI entry point: YAML + .env + env overrides + defaults.
func LoadFile(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path, func(c *Config) { c.SetDefaults() })
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
