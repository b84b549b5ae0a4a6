// Package cache provides the key-value persistence used for settings blobs.
// Backends: in-memory, JSON file, Redis and SQL (gorm).
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"studyforge/internal/db"
)

// ErrNotFound is returned by Get when a key has never been set (or was deleted)
var ErrNotFound = errors.New("cache: key not found")

// Store is a string key-value store
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config selects and configures a backend
type Config struct {
	Backend string

	// RedisURL format: redis://[:password@]host:port[/db]
	RedisURL    string
	RedisPrefix string

	DatabaseURL string
	SQLitePath  string

	FilePath string

	DialTimeout time.Duration
}

// Open creates the configured store. A Redis backend that cannot be reached
// degrades to an in-memory store so the service still starts.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMemory, "":
		return NewMemoryStore(), nil

	case BackendFile:
		return NewFileStore(cfg.FilePath)

	case BackendRedis:
		store, err := NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix, cfg.DialTimeout)
		if err != nil {
			log.Warn("redis unavailable, using in-memory settings store", zap.Error(err))
			return NewMemoryStore(), nil
		}
		return store, nil

	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend requires DATABASE_URL")
		}
		return openSQL(&db.Config{Driver: db.DriverPostgres, DSN: cfg.DatabaseURL}, log)

	case BackendSQLite:
		return openSQL(&db.Config{Driver: db.DriverSQLite, DSN: cfg.SQLitePath}, log)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func openSQL(cfg *db.Config, log *zap.Logger) (Store, error) {
	database, err := db.NewDatabase(cfg, log, &KVEntry{})
	if err != nil {
		return nil, err
	}
	return NewSQLStore(database), nil
}
