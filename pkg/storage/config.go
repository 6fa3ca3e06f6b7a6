package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config selects and configures a storage backend.
type Config struct {
	// Backend is one of "sqlite", "badger", "redis" or "memory".
	Backend string `json:"backend"`

	// SQLitePath is the data source name handed to the SQLite driver. A path
	// without a query string gets WAL journaling and a busy timeout in the
	// form the compiled-in driver understands.
	SQLitePath string `json:"sqlite_path"`

	// BadgerDir is the directory holding the Badger database.
	BadgerDir string `json:"badger_dir"`

	// RedisURL is a redis:// URL.
	RedisURL string `json:"redis_url"`

	// KeyPrefix is prepended to champion ids in key-value backends.
	KeyPrefix string `json:"key_prefix"`
}

// DefaultConfig returns a Config using a local SQLite database.
func DefaultConfig() *Config {
	return &Config{
		Backend:    BackendSQLite,
		SQLitePath: "./data/zilean.db",
		BadgerDir:  "./data/badger",
		RedisURL:   "redis://127.0.0.1:6379/0",
		KeyPrefix:  "champion:",
	}
}

// Open creates the backend described by cfg.
func Open(ctx context.Context, cfg *Config) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendSQLite, "":
		if err := ensureDir(sqliteFile(cfg.SQLitePath)); err != nil {
			return nil, err
		}
		db, err := openSQLite(withPragmas(cfg.SQLitePath))
		if err != nil {
			return nil, fmt.Errorf("could not open sqlite database: %w", err)
		}
		if err = SetupSchema(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		backend, err := NewSQLiteBackend(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		backend.ownsDB = true
		return backend, nil
	case BackendBadger:
		return OpenBadgerBackend(cfg.BadgerDir, cfg.KeyPrefix)
	case BackendRedis:
		return OpenRedisBackend(ctx, cfg.RedisURL, cfg.KeyPrefix)
	case BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// withPragmas appends the driver's default pragmas to a DSN that has no
// query string of its own.
func withPragmas(dsn string) string {
	if strings.ContainsRune(dsn, '?') {
		return dsn
	}
	return dsn + "?" + sqlitePragmas
}

// sqliteFile strips the query string from a SQLite data source name.
func sqliteFile(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	return dsn
}

func ensureDir(file string) error {
	if file == "" || file == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("could not create data directory: %w", err)
	}
	return nil
}
